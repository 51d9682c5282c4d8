package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	locker *redislock.Client
)

// Init connects to Redis. On failure the package stays disabled and every
// helper degrades to a no-op.
func Init(addr, password string, db int) error {
	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	locker = redislock.New(client)
	return nil
}

// GetClient returns the Redis client, nil when Redis is not available
func GetClient() *redis.Client {
	return client
}

// Close releases the connection
func Close() {
	if client != nil {
		client.Close()
		client = nil
		locker = nil
	}
}

// SocietySettingsKey caches a society's billing settings
func SocietySettingsKey(societyID int64) string {
	return fmt.Sprintf("billing:society:%d:settings", societyID)
}

// ReportKey caches a rendered report for one society
func ReportKey(societyID int64, name, asOf string) string {
	return fmt.Sprintf("billing:society:%d:report:%s:%s", societyID, name, asOf)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// GetJSON decodes a cached value into dest
func GetJSON(ctx context.Context, key string, dest interface{}) bool {
	data, ok := GetCached(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// SetJSON encodes and caches value
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	SetCached(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateReports drops cached reports after invoices or payments change
func InvalidateReports(ctx context.Context, societyID int64) {
	InvalidatePattern(ctx, fmt.Sprintf("billing:society:%d:report:*", societyID))
}

// ReportInvalidator drops cached reports through the package client
type ReportInvalidator struct{}

func (ReportInvalidator) InvalidateReports(ctx context.Context, societyID int64) {
	InvalidateReports(ctx, societyID)
}

// IsHealthy returns true if the Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
