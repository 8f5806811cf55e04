package storage

import (
	"context"
	"time"

	"starter/internal/common/config"
	"starter/internal/common/database"
)

// RedisSink stores each record as a string value at <prefix><name>.
type RedisSink struct {
	client *database.RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisSink returns a sink writing through client. A zero ttl keeps keys forever.
func NewRedisSink(client *database.RedisClient, prefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisSink) Save(ctx context.Context, name string, payload []byte) (string, error) {
	key := s.prefix + name
	if err := s.client.Set(ctx, key, payload, s.ttl); err != nil {
		return "", err
	}
	return key, nil
}

func (s *RedisSink) Backend() string { return config.BackendRedis }

func (s *RedisSink) Close() error { return s.client.Close() }
