package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store"
)

func TestOpenClose(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	st, err := Open(home)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	home := filepath.Join(t.TempDir(), "home")
	st, err := Open(home)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Second Migrate is idempotent
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate again: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	snap := graph.NewSnapshot("payments", "ship the payments flow", []string{"tests must pass"}, now)
	snap.Root().AppendLog(now, graph.ActorSystem, "workspace created")
	if err := st.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := st.Load(ctx, snap.WorkspaceID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "payments" || got.RootID != snap.RootID {
		t.Fatalf("round trip mismatch: got %q root %s", got.Name, got.RootID)
	}
	if got.RulesFingerprint != snap.RulesFingerprint {
		t.Fatalf("fingerprint changed across round trip")
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("loaded snapshot invalid: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	if _, err := st.Load(context.Background(), "no-such-id"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	now := time.Now().UTC()
	a := graph.NewSnapshot("alpha", "", nil, now.Add(-time.Hour))
	b := graph.NewSnapshot("beta", "", nil, now)
	for _, s := range []*graph.Snapshot{a, b} {
		if err := st.Save(ctx, s); err != nil {
			t.Fatalf("Save %s: %v", s.Name, err)
		}
	}

	infos, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("want 2 workspaces, got %d", len(infos))
	}
	if infos[0].Name != "beta" {
		t.Fatalf("want most recently updated first, got %q", infos[0].Name)
	}
	if infos[0].NodeCount != 1 {
		t.Fatalf("want node count 1, got %d", infos[0].NodeCount)
	}

	if err := st.Delete(ctx, a.WorkspaceID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := st.Delete(ctx, a.WorkspaceID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second Delete: want ErrNotFound, got %v", err)
	}
	infos, err = st.List(ctx)
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	if len(infos) != 1 || infos[0].WorkspaceID != b.WorkspaceID {
		t.Fatalf("unexpected listing after delete: %+v", infos)
	}
}

func TestSaveOverwrites(t *testing.T) {
	st, err := Open(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	snap := graph.NewSnapshot("gamma", "", nil, time.Now().UTC())
	if err := st.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap.Status = graph.WorkspaceArchived
	if err := st.Save(ctx, snap); err != nil {
		t.Fatalf("Save again: %v", err)
	}
	got, err := st.Load(ctx, snap.WorkspaceID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Status != graph.WorkspaceArchived {
		t.Fatalf("want archived, got %s", got.Status)
	}
}
