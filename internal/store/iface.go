// Package store defines the persistence interface for workspace snapshots.
// Implementations: *sqlite.Store (SQLite, the default) and *postgres.Store
// (PostgreSQL).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

// ErrNotFound is returned when no workspace with the given id exists.
var ErrNotFound = errors.New("workspace not found")

// WorkspaceInfo is a listing row: enough to render a workspace index without
// loading full snapshots.
type WorkspaceInfo struct {
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	NodeCount   int       `json:"node_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store persists workspace snapshots. Load and Save are atomic at snapshot
// granularity: the engine loads a whole workspace, mutates it, and saves it
// back under its per-workspace lock.
type Store interface {
	Load(ctx context.Context, workspaceID string) (*graph.Snapshot, error)
	Save(ctx context.Context, s *graph.Snapshot) error
	List(ctx context.Context) ([]WorkspaceInfo, error)
	Delete(ctx context.Context, workspaceID string) error
	Close() error
}
