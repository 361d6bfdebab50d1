// Package cache persists dispatcher state in Redis: the unit registry
// across restarts and a short-lived archive of utterance audio.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redwell-labs/rto-dispatch-service/config"
	"github.com/redwell-labs/rto-dispatch-service/dispatch"
)

const (
	keyPrefix      = "rto-dispatch:"
	unitsKey       = keyPrefix + "units"
	audioKeyPrefix = keyPrefix + "audio:"
)

// Cache is the persistence interface. Callers treat a nil Cache as
// "persistence disabled".
type Cache interface {
	SaveAudio(key string, data []byte, ttl time.Duration) error
	CleanAllAudio() (int64, error)
	SaveUnits(units []dispatch.Unit) error
	LoadUnits() ([]dispatch.Unit, error)
	Ping() error
	Close() error
}

// DB is the Redis-backed Cache implementation.
type DB struct {
	rdb *redis.Client
	ctx context.Context
}

// New connects to Redis. A nil or empty config yields (nil, nil):
// persistence is simply disabled.
func New(cfg *config.RedisConfig) (*DB, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("could not connect to cache at %s: %w", cfg.Addr, err)
	}
	return &DB{rdb: rdb, ctx: ctx}, nil
}

// Ping checks the connection.
func (db *DB) Ping() error {
	return db.rdb.Ping(db.ctx).Err()
}

// Close releases the connection.
func (db *DB) Close() error {
	return db.rdb.Close()
}

// AudioKey builds the cache key for one archived utterance.
func AudioKey(speakerID string, start time.Time) string {
	return fmt.Sprintf("%s%s-%d", audioKeyPrefix, speakerID, start.UnixNano())
}

// SaveAudio stores one archived utterance with a TTL.
func (db *DB) SaveAudio(key string, data []byte, ttl time.Duration) error {
	return db.rdb.Set(db.ctx, key, data, ttl).Err()
}

// CleanAllAudio finds and deletes all archived audio entries.
func (db *DB) CleanAllAudio() (int64, error) {
	var keys []string
	iter := db.rdb.Scan(db.ctx, 0, audioKeyPrefix+"*", 0).Iterator()
	for iter.Next(db.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return db.rdb.Del(db.ctx, keys...).Result()
}

// SaveUnits stores the unit registry snapshot.
func (db *DB) SaveUnits(units []dispatch.Unit) error {
	data, err := json.Marshal(units)
	if err != nil {
		return fmt.Errorf("could not marshal units: %w", err)
	}
	return db.rdb.Set(db.ctx, unitsKey, data, 0).Err()
}

// LoadUnits returns the persisted registry snapshot, or nil when none has
// been saved yet.
func (db *DB) LoadUnits() ([]dispatch.Unit, error) {
	data, err := db.rdb.Get(db.ctx, unitsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not load units: %w", err)
	}
	var units []dispatch.Unit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("could not unmarshal units: %w", err)
	}
	return units, nil
}
