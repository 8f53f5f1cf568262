// Package db provides PostgreSQL access for requirements and generated apps.
//
// Expected schema:
//
//	CREATE TABLE requirements (
//	    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    user_id     UUID NOT NULL,
//	    title       TEXT NOT NULL,
//	    prompt      TEXT NOT NULL,
//	    color_code  TEXT NOT NULL DEFAULT '#1976d2',
//	    extraction  JSONB NOT NULL DEFAULT '{}',
//	    status      TEXT NOT NULL,
//	    metadata    JSONB NOT NULL DEFAULT '{}',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//
//	CREATE TABLE apps (
//	    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    user_id        UUID NOT NULL,
//	    requirement_id UUID NOT NULL REFERENCES requirements(id) ON DELETE CASCADE,
//	    name           TEXT NOT NULL,
//	    description    TEXT NOT NULL DEFAULT '',
//	    color_code     TEXT NOT NULL DEFAULT '#1976d2',
//	    code           TEXT NOT NULL DEFAULT '',
//	    status         TEXT NOT NULL,
//	    error_message  TEXT NOT NULL DEFAULT '',
//	    metadata       JSONB NOT NULL DEFAULT '{}',
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
