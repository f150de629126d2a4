package kvstore

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single SQLite table. Every write is its own
// statement, so Flush is a no-op.
type SQLite struct {
	db  *sql.DB
	ctx context.Context
	cfg config
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens a Store in the SQLite database at dbPath.
// If dbPath is empty or ":memory:", an in-memory database is used.
func NewSQLite(ctx context.Context, dbPath string, opts ...Option) (*SQLite, error) {
	if dbPath == "" {
		dbPath = ":memory:"
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite")
	}
	// A single connection keeps ":memory:" databases shared between calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create kv table")
	}

	return &SQLite{
		db:  db,
		ctx: ctx,
		cfg: applyOptions(opts),
	}, nil
}

func (s *SQLite) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.cfg.queryTimeout)
}

func (s *SQLite) get(key string) (string, bool, error) {
	qctx, cancel := s.queryCtx()
	defer cancel()
	var value string
	err := s.db.QueryRowContext(qctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "sqlite get %s", key)
	}
	return value, true, nil
}

func (s *SQLite) set(key, value string) error {
	qctx, cancel := s.queryCtx()
	defer cancel()
	_, err := s.db.ExecContext(qctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return errors.Wrapf(err, "sqlite set %s", key)
	}
	return nil
}

func (s *SQLite) GetInt(key string) (int, bool, error) {
	raw, ok, err := s.get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, errors.Wrapf(ErrWrongType, "key %s is not an integer", key)
	}
	return v, true, nil
}

func (s *SQLite) SetInt(key string, value int) error {
	return s.set(key, strconv.Itoa(value))
}

func (s *SQLite) GetString(key string) (string, bool, error) {
	return s.get(key)
}

func (s *SQLite) SetString(key string, value string) error {
	return s.set(key, value)
}

func (s *SQLite) Delete(key string) error {
	qctx, cancel := s.queryCtx()
	defer cancel()
	if _, err := s.db.ExecContext(qctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "sqlite delete %s", key)
	}
	return nil
}

// Flush is a no-op; each write commits on its own.
func (s *SQLite) Flush() error {
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
