// internal/store/redis_store.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"route-tracker/internal/config"
)

// RedisStore keeps the live view of recordings: the last known position of
// each vehicle, a sample fan-out and the submitted-session markers.
type RedisStore struct {
	Rdb                 *redis.Client
	SubmittedTTL        time.Duration
	LastPositionTTL     time.Duration
	GEOKey              string
	StreamChannelPrefix string
}

func NewRedisStore(cfg config.Config) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return NewRedisStoreWith(rdb, cfg), nil
}

func NewRedisStoreWith(rdb *redis.Client, cfg config.Config) *RedisStore {
	return &RedisStore{
		Rdb:                 rdb,
		SubmittedTTL:        cfg.SubmittedTTL,
		LastPositionTTL:     cfg.LastPositionTTL,
		GEOKey:              "vehicles:last",
		StreamChannelPrefix: "samples",
	}
}

// MarkSubmitted returns true the first time a session is marked, so a
// retried stop never files the same track twice.
func (s *RedisStore) MarkSubmitted(ctx context.Context, sessionID string) (bool, error) {
	return s.Rdb.SetNX(ctx, "submitted:"+sessionID, 1, s.SubmittedTTL).Result()
}

func (s *RedisStore) IsSubmitted(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.Rdb.Exists(ctx, "submitted:"+sessionID).Result()
	return n > 0, err
}

// Update last position in GEO set and refresh the vehicle heartbeat.
func (s *RedisStore) UpdateLastPosition(ctx context.Context, vehicleID string, lat, lng float64) error {
	if err := s.Rdb.GeoAdd(ctx, s.GEOKey, &redis.GeoLocation{
		Name:      vehicleID,
		Longitude: lng,
		Latitude:  lat,
	}).Err(); err != nil {
		return err
	}
	return s.Rdb.Set(ctx, "vehicle:heartbeat:"+vehicleID, time.Now().UTC().Format(time.RFC3339), s.LastPositionTTL).Err()
}

// LastPosition reads back the vehicle's position from the GEO set.
func (s *RedisStore) LastPosition(ctx context.Context, vehicleID string) (lat, lng float64, ok bool, err error) {
	pos, err := s.Rdb.GeoPos(ctx, s.GEOKey, vehicleID).Result()
	if err != nil || len(pos) == 0 || pos[0] == nil {
		return 0, 0, false, err
	}
	return pos[0].Latitude, pos[0].Longitude, true, nil
}

// Publish fan-out: vehicle and session channels
func (s *RedisStore) PublishSample(ctx context.Context, sessionID, vehicleID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if vehicleID != "" {
		if err := s.Rdb.Publish(ctx, s.StreamChannelPrefix+":vehicle:"+vehicleID, data).Err(); err != nil {
			return err
		}
	}
	return s.Rdb.Publish(ctx, s.StreamChannelPrefix+":session:"+sessionID, data).Err()
}

func (s *RedisStore) Close() error {
	return s.Rdb.Close()
}
