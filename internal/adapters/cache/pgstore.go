package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the subset of pgx shared by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS catalog_cache (
    source     TEXT PRIMARY KEY,
    fetched_at TIMESTAMPTZ NOT NULL,
    ttl_days   DOUBLE PRECISION NOT NULL,
    payload    JSONB NOT NULL
)`

const upsertSQL = `
INSERT INTO catalog_cache (source, fetched_at, ttl_days, payload)
VALUES ($1, $2, $3, $4::jsonb)
ON CONFLICT (source) DO UPDATE
SET fetched_at = EXCLUDED.fetched_at,
    ttl_days   = EXCLUDED.ttl_days,
    payload    = EXCLUDED.payload`

// Connect opens a pgx pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// PostgresStore keeps slots in the catalog_cache table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore wraps db. Call EnsureSchema once before use.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the catalog_cache table if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create catalog_cache: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, source string) (Entry, error) {
	e := Entry{Source: source}
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT fetched_at, ttl_days, payload FROM catalog_cache WHERE source = $1`, source,
	).Scan(&e.FetchedAt, &e.TTLDays, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, source)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("select slot %s: %w", source, err)
	}
	e.Payload = payload
	return e, nil
}

// Put replaces the slot in a single upsert statement.
func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	if err := validateSource(e.Source); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, upsertSQL, e.Source, e.FetchedAt, e.TTLDays, string(e.Payload)); err != nil {
		return fmt.Errorf("upsert slot %s: %w", e.Source, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT source, fetched_at, ttl_days, payload FROM catalog_cache ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			payload []byte
		)
		if err := rows.Scan(&e.Source, &e.FetchedAt, &e.TTLDays, &payload); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		e.Payload = payload
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return out, nil
}
