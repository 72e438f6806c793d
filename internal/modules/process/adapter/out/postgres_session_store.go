package out

import (
	"context"
	"database/sql"
	"fmt"

	"retort/internal/platform/id"

	_ "github.com/lib/pq"
)

func NewPostgresSessionStore(ctx context.Context, dsn string, ids id.Generator) (*SQLSessionStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresSessionStoreFromDB(ctx, db, ids)
}

// NewPostgresSessionStoreFromDB wraps an open handle and ensures the schema exists.
func NewPostgresSessionStoreFromDB(ctx context.Context, db *sql.DB, ids id.Generator) (*SQLSessionStore, error) {
	store := newSQLSessionStore(db, postgresDialect, ids)
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
