package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/41vi4p/TankLens/internal/models"
)

// RedisSampleStore keeps the latest raw sample reported by each sensor,
// one JSON value per device key. This is the realtime snapshot the refresh
// pipeline reads; history lives in InfluxDB.
type RedisSampleStore struct {
	client *redis.Client
}

// NewRedisSampleStore connects to Redis and verifies the connection.
func NewRedisSampleStore(ctx context.Context, addr, password string, db int) (*RedisSampleStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisSampleStore{client: client}, nil
}

// Close shuts down the client.
func (s *RedisSampleStore) Close() error {
	return s.client.Close()
}

func sampleKey(deviceID string) string {
	return fmt.Sprintf("device:%s:sample", deviceID)
}

// SetLatest stores the newest sample for a device, replacing the previous
// one. Samples have no TTL: staleness is decided by the status classifier,
// not by key expiry.
func (s *RedisSampleStore) SetLatest(ctx context.Context, deviceID string, sample models.RawSample) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample for %s: %w", deviceID, err)
	}
	if err := s.client.Set(ctx, sampleKey(deviceID), payload, 0).Err(); err != nil {
		return fmt.Errorf("store sample for %s: %w", deviceID, err)
	}
	return nil
}

// GetLatest returns the latest sample, or (nil, nil) when the device has
// never reported. A missing sample is a normal state, not a failure.
func (s *RedisSampleStore) GetLatest(ctx context.Context, deviceID string) (*models.RawSample, error) {
	raw, err := s.client.Get(ctx, sampleKey(deviceID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch sample for %s: %w", deviceID, err)
	}

	var sample models.RawSample
	if err := json.Unmarshal([]byte(raw), &sample); err != nil {
		return nil, fmt.Errorf("decode sample for %s: %w", deviceID, err)
	}
	return &sample, nil
}

// DeleteLatest removes the snapshot when the device is deleted.
func (s *RedisSampleStore) DeleteLatest(ctx context.Context, deviceID string) error {
	if err := s.client.Del(ctx, sampleKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("delete sample for %s: %w", deviceID, err)
	}
	return nil
}
