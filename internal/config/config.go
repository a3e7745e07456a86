// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port      string
	JWTSecret string

	RateLimitRPS   int
	RateLimitBurst int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LastPositionTTL time.Duration
	SubmittedTTL    time.Duration

	BackendBaseURL  string
	BackendTimeout  time.Duration
	SubmitTransport string
	NSQDAddr        string
	NSQTopic        string

	OutboxPath string

	LocationSource string
	SerialPort     string
	SerialBaud     int
	ReplayGPX      string
	SampleInterval time.Duration
	FixTimeout     time.Duration

	LogLevel string
	LogPath  string
}

// Load reads the process environment. Call godotenv.Load first if a .env
// file should be honoured.
func Load() Config {
	return Config{
		Port:      env("PORT", "8080"),
		JWTSecret: env("JWT_HS256_SECRET", ""),

		RateLimitRPS:   envInt("RATE_LIMIT_RPS", 2),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 4),

		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   env("REDIS_PASSWORD", ""),
		RedisDB:         envInt("REDIS_DB", 0),
		LastPositionTTL: time.Duration(envInt("LAST_POSITION_TTL_SEC", 172800)) * time.Second,
		SubmittedTTL:    time.Duration(envInt("SUBMITTED_TTL_SEC", 604800)) * time.Second,

		BackendBaseURL:  env("BACKEND_BASE_URL", "http://localhost:5000"),
		BackendTimeout:  time.Duration(envInt("BACKEND_TIMEOUT_SEC", 15)) * time.Second,
		SubmitTransport: env("SUBMIT_TRANSPORT", "http"),
		NSQDAddr:        env("NSQD_ADDR", "127.0.0.1:4150"),
		NSQTopic:        env("NSQ_TOPIC", "trips"),

		OutboxPath: env("OUTBOX_PATH", "route-tracker.db"),

		LocationSource: env("LOCATION_SOURCE", "serial"),
		SerialPort:     env("SERIAL_PORT", "/dev/ttyUSB0"),
		SerialBaud:     envInt("SERIAL_BAUD", 9600),
		ReplayGPX:      env("REPLAY_GPX", ""),
		SampleInterval: time.Duration(envInt("SAMPLE_INTERVAL_MS", 1000)) * time.Millisecond,
		FixTimeout:     time.Duration(envInt("FIX_TIMEOUT_MS", 10000)) * time.Millisecond,

		LogLevel: env("LOG_LEVEL", "info"),
		LogPath:  env("LOG_PATH", ""),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
