package geolocation

import (
	"io"

	"route-tracker/internal/config"
	"route-tracker/internal/monitoring"
)

// Source is a Provider that holds resources.
type Source interface {
	Provider
	io.Closer
}

// Open builds the location source selected by cfg.LocationSource. It returns
// ErrNoSource when the source is disabled or cannot be opened, so the
// recorder can report the environment as unsupported.
func Open(cfg config.Config) (Source, error) {
	switch cfg.LocationSource {
	case "serial":
		src, err := OpenSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			monitoring.Errorf("gps receiver %s: %v", cfg.SerialPort, err)
			return nil, ErrNoSource
		}
		monitoring.Infof("reading gps fixes from %s at %d baud", cfg.SerialPort, cfg.SerialBaud)
		return src, nil
	case "gpx":
		if cfg.ReplayGPX == "" {
			return nil, ErrNoSource
		}
		src, err := OpenReplay(cfg.ReplayGPX)
		if err != nil {
			monitoring.Errorf("gpx replay: %v", err)
			return nil, ErrNoSource
		}
		monitoring.Infof("replaying %d fixes from %s", src.Remaining(), cfg.ReplayGPX)
		return src, nil
	default:
		return nil, ErrNoSource
	}
}
