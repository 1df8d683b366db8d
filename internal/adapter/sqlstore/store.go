// Package sqlstore implements domain.Store over database/sql for the SQLite
// and MySQL drivers. Timestamps are stored as unix nanoseconds.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"saun/internal/domain"
	"saun/internal/infra"
	"saun/internal/sqlinline"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the database/sql implementation of domain.Store.
type Store struct {
	db      *sql.DB
	dialect string
	logger  zerolog.Logger

	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// Open connects using infra.OpenSQL and wraps the handle.
func Open(ctx context.Context, driver, dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := infra.OpenSQL(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	return New(db, driver, logger), nil
}

// New wraps an already opened handle. dialect is infra.DBDriverSQLite or
// infra.DBDriverMySQL.
func New(db *sql.DB, dialect string, logger zerolog.Logger) *Store {
	return &Store{db: db, dialect: dialect, logger: logger, now: time.Now}
}

// Migrate creates the schema for the configured dialect.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqlinline.MigrateSQLite
	if s.dialect == infra.DBDriverMySQL {
		stmts = sqlinline.MigrateMySQL
	}
	for _, stmt := range stmts {
		if _, err := s.exec(ctx, s.db, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// tick returns a strictly increasing nanosecond timestamp so rows written in
// quick succession still order deterministically.
func (s *Store) tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return n
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) exec(ctx context.Context, db execer, query string, args ...any) (sql.Result, error) {
	marker, body, err := infra.ExtractMarker(query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Msgf("sql[%s] exec", marker)
	res, err := db.ExecContext(ctx, body, args...)
	if err != nil {
		s.logger.Error().Err(err).Msgf("sql[%s] error", marker)
	}
	return res, err
}

func (s *Store) queryRow(ctx context.Context, db execer, query string, args ...any) (*sql.Row, error) {
	marker, body, err := infra.ExtractMarker(query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Msgf("sql[%s] query_row", marker)
	return db.QueryRowContext(ctx, body, args...), nil
}

func (s *Store) query(ctx context.Context, db execer, query string, args ...any) (*sql.Rows, error) {
	marker, body, err := infra.ExtractMarker(query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Msgf("sql[%s] query", marker)
	rows, err := db.QueryContext(ctx, body, args...)
	if err != nil {
		s.logger.Error().Err(err).Msgf("sql[%s] error", marker)
	}
	return rows, err
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "%s %s", what, id)
	}
	return nil
}

func notFoundIfNoRows(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapError(domain.KindNotFound, err, "%s %s", what, id)
	}
	return err
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

var _ domain.Store = (*Store)(nil)
