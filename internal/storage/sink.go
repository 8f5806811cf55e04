// Package storage persists serialized output records. The file sink is the
// default; redis and postgres sinks keep the same naming so a record can be
// found under the name the pipeline logged.
package storage

import (
	"context"
	"fmt"

	"starter/internal/common/config"
	"starter/internal/common/database"
	apperrors "starter/internal/common/errors"
	"starter/internal/common/logger"
	"starter/internal/common/utils"
)

// Sink stores one serialized record under name and returns where it went.
// Saving an existing name overwrites it.
type Sink interface {
	Save(ctx context.Context, name string, payload []byte) (string, error)
	Backend() string
	Close() error
}

// Open builds the sink selected by cfg.Storage.Backend and checks that its
// backend is reachable.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (Sink, error) {
	switch cfg.Storage.Backend {
	case config.BackendFile, "":
		return NewFileSink(cfg.Paths.OutputDir, utils.NewFileHelper(log)), nil

	case config.BackendRedis:
		client := database.NewRedis(cfg.Storage.Redis)
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, apperrors.NewStorageUnavailableError(config.BackendRedis, err)
		}
		return NewRedisSink(client, cfg.Storage.Redis.KeyPrefix, config.GetDuration(cfg.Storage.Redis.TTLSec*1000)), nil

	case config.BackendPostgres:
		client, err := database.NewPostgres(cfg.Storage.Postgres)
		if err != nil {
			return nil, apperrors.NewStorageUnavailableError(config.BackendPostgres, err)
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, apperrors.NewStorageUnavailableError(config.BackendPostgres, err)
		}
		sink, err := NewPostgresSink(client, cfg.Storage.Postgres.Table)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		if err := sink.EnsureTable(ctx); err != nil {
			_ = client.Close()
			return nil, apperrors.NewStorageUnavailableError(config.BackendPostgres, err)
		}
		return sink, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
