package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

func TestOpen_skipIfNoDatabaseURL(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres test")
	}
	st, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	snap := graph.NewSnapshot("pg-roundtrip", "", nil, time.Now().UTC())
	if err := st.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	defer func() { _ = st.Delete(ctx, snap.WorkspaceID) }()

	got, err := st.Load(ctx, snap.WorkspaceID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.WorkspaceID != snap.WorkspaceID || got.RootID != snap.RootID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	infos, err := st.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) == 0 {
		t.Fatal("List returned no workspaces")
	}
}
