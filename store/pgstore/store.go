package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store bundles the account and refresh-token repositories over one
// database handle. It satisfies both idm.AccountStore and token.Store.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and returns a store over it.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an existing handle. The caller keeps ownership of db's
// lifecycle unless Close is used.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks and stats.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations applies the embedded schema migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations)

	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}
