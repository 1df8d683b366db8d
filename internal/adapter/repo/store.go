// Package repo implements domain.Store on PostgreSQL through pgx.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/infra"
	"saun/internal/sqlinline"
)

// PGStore implements domain.Store using PostgreSQL. Every statement goes
// through infra.SQLRunner so it carries an audit marker.
type PGStore struct {
	pool   *pgxpool.Pool
	runner *infra.SQLRunner
	now    func() time.Time
}

// NewPGStore wraps an open pool. The store owns the pool and closes it.
func NewPGStore(pool *pgxpool.Pool, logger zerolog.Logger) *PGStore {
	return &PGStore{pool: pool, runner: infra.NewSQLRunner(pool, logger), now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates tables and indexes when missing.
func (s *PGStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqlinline.MigratePostgres {
		if _, err := s.runner.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func notFoundIfNoRows(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WrapError(domain.KindNotFound, err, "%s %s", what, id)
	}
	return err
}

func requireAffected(tag pgconn.CommandTag, what, id string) error {
	if tag.RowsAffected() == 0 {
		return domain.NewError(domain.KindNotFound, "%s %s", what, id)
	}
	return nil
}

// nullableJSON maps empty payloads to SQL NULL.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

var _ domain.Store = (*PGStore)(nil)
