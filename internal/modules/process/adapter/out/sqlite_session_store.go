package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"retort/internal/platform/id"

	_ "modernc.org/sqlite"
)

func NewSQLiteSessionStore(dbPath string, ids id.Generator) (*SQLSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; nested reads go through the carried transaction
	db.SetMaxOpenConns(1)
	store := newSQLSessionStore(db, sqliteDialect, ids)
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
