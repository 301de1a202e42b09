// Package postgres is the PostgreSQL implementation of store.Store, for
// deployments where several server processes share one workspace database.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is the PostgreSQL implementation of store.Store.
type Store struct {
	Pool *pgxpool.Pool
}

// Open opens a PostgreSQL connection pool and runs migrations. dsn may be
// empty to use the DATABASE_URL environment variable.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		return nil, errors.New("postgres DSN or DATABASE_URL required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 20
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	s := &Store{Pool: pool}
	if err := s.Migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	s.Pool.Close()
	return nil
}

// Load reads one workspace snapshot.
func (s *Store) Load(ctx context.Context, workspaceID string) (*graph.Snapshot, error) {
	var doc []byte
	err := s.Pool.QueryRow(ctx,
		`SELECT snapshot FROM workspaces WHERE workspace_id = $1`, workspaceID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workspace %s: %w", workspaceID, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", workspaceID, err)
	}
	return &snap, nil
}

// Save upserts one workspace snapshot and its listing columns.
func (s *Store) Save(ctx context.Context, snap *graph.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode workspace %s: %w", snap.WorkspaceID, err)
	}
	_, err = s.Pool.Exec(ctx, `
INSERT INTO workspaces (workspace_id, name, status, node_count, snapshot, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (workspace_id) DO UPDATE SET
  name = EXCLUDED.name,
  status = EXCLUDED.status,
  node_count = EXCLUDED.node_count,
  snapshot = EXCLUDED.snapshot,
  updated_at = EXCLUDED.updated_at`,
		snap.WorkspaceID, snap.Name, string(snap.Status), len(snap.Nodes),
		doc, snap.CreatedAt.UTC(), snap.UpdatedAt.UTC())
	return err
}

// List returns listing rows for all workspaces, most recently updated first.
func (s *Store) List(ctx context.Context) ([]store.WorkspaceInfo, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT workspace_id, name, status, node_count, updated_at
FROM workspaces ORDER BY updated_at DESC, workspace_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []store.WorkspaceInfo
	for rows.Next() {
		var w store.WorkspaceInfo
		var updated time.Time
		if err := rows.Scan(&w.WorkspaceID, &w.Name, &w.Status, &w.NodeCount, &updated); err != nil {
			return nil, err
		}
		w.UpdatedAt = updated.UTC()
		out = append(out, w)
	}
	return out, rows.Err()
}

// Delete removes one workspace row.
func (s *Store) Delete(ctx context.Context, workspaceID string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM workspaces WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workspace %s: %w", workspaceID, store.ErrNotFound)
	}
	return nil
}

// Migrate runs pending migrations (only those not already in schema_migrations).
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`); err != nil {
		return err
	}
	applied := make(map[int]bool)
	rows, err := s.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	files, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	type migration struct {
		version int
		name    string
		sql     string
	}
	var migs []migration
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		base := strings.TrimSuffix(name, ".sql")
		v, err := strconv.Atoi(strings.SplitN(base, "_", 2)[0])
		if err != nil {
			return fmt.Errorf("invalid migration version in %s", name)
		}
		body, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		migs = append(migs, migration{version: v, name: name, sql: string(body)})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].version < migs[j].version })
	for _, m := range migs {
		if applied[m.version] {
			continue
		}
		tx, err := s.Pool.Begin(ctx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, m.sql); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES($1)`, m.version); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
