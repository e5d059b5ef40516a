package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// PostgresStore reads the configuracion table, caching each key in memory
// so hot keys (prompt templates, tool descriptions) do not hit the
// database on every conversational turn.
type PostgresStore struct {
	db  Querier
	mu  sync.Mutex
	mem map[string]cacheEntry
	now func() time.Time
}

// NewPostgresStore creates a store backed by the configuracion table.
func NewPostgresStore(db Querier) *PostgresStore {
	if db == nil {
		panic("settings: db required")
	}
	return &PostgresStore{db: db, mem: make(map[string]cacheEntry), now: time.Now}
}

// Get returns the value for key, serving from cache within DefaultTTL.
func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	return s.GetTTL(ctx, key, DefaultTTL)
}

// GetTTL is Get with a caller-chosen cache window. A TTL of zero bypasses
// the cache entirely.
func (s *PostgresStore) GetTTL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl > 0 {
		s.mu.Lock()
		entry, ok := s.mem[key]
		s.mu.Unlock()
		if ok && s.now().Before(entry.expiresAt) {
			return entry.value, nil
		}
	}

	var value string
	err := s.db.QueryRow(ctx, `SELECT valor FROM configuracion WHERE clave = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %q failed: %w", key, err)
	}

	if ttl > 0 {
		s.mu.Lock()
		s.mem[key] = cacheEntry{value: value, expiresAt: s.now().Add(ttl)}
		s.mu.Unlock()
	}
	return value, nil
}

// Set upserts a value and refreshes the cache entry.
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO configuracion (clave, valor, actualizado_en)
		VALUES ($1, $2, NOW())
		ON CONFLICT (clave) DO UPDATE SET valor = EXCLUDED.valor, actualizado_en = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("settings: set %q failed: %w", key, err)
	}
	s.mu.Lock()
	s.mem[key] = cacheEntry{value: value, expiresAt: s.now().Add(DefaultTTL)}
	s.mu.Unlock()
	return nil
}
