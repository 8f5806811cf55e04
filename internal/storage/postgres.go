package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"starter/internal/common/config"
	"starter/internal/common/database"
	apperrors "starter/internal/common/errors"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresSink upserts each record into a (name, payload, created_at) table.
type PostgresSink struct {
	client *database.PostgresClient
	table  string
	now    func() time.Time
}

func NewPostgresSink(client *database.PostgresClient, table string) (*PostgresSink, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, apperrors.NewConfigInvalidError(fmt.Sprintf("storage.postgres.table %q is not a valid identifier", table))
	}
	return &PostgresSink{client: client, table: table, now: time.Now}, nil
}

// EnsureTable creates the output table when it does not exist yet.
func (s *PostgresSink) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, s.table)
	_, err := s.client.Exec(ctx, query)
	return err
}

func (s *PostgresSink) Save(ctx context.Context, name string, payload []byte) (string, error) {
	query := fmt.Sprintf(`INSERT INTO %s (name, payload, created_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`, s.table)
	if _, err := s.client.Exec(ctx, query, name, string(payload), s.now().UTC()); err != nil {
		return "", err
	}
	return s.table + "/" + name, nil
}

func (s *PostgresSink) Backend() string { return config.BackendPostgres }

func (s *PostgresSink) Close() error { return s.client.Close() }
