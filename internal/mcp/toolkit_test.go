package mcp

import (
	"context"
	"testing"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/session"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store/sqlite"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

func newToolkit(t *testing.T) (*Toolkit, *engine.Engine) {
	t.Helper()
	st, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	eng := engine.New(st)
	tk := &Toolkit{
		Engine:    eng,
		Sessions:  session.NewBinder(),
		SessionID: "sess-1",
		Actor:     graph.ActorAutomated,
	}
	return tk, eng
}

func mustWorkspace(t *testing.T, eng *engine.Engine) *models.Workspace {
	t.Helper()
	ws, err := eng.CreateWorkspace(context.Background(), "ws", "goal", []string{"r1"})
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}
	return ws
}

func TestBindWorkspace(t *testing.T) {
	tk, eng := newToolkit(t)
	ctx := context.Background()

	if _, err := tk.BindWorkspace(ctx, "missing"); engine.CodeOf(err) != engine.CodeNotFound {
		t.Fatalf("bind missing: %v", err)
	}

	ws := mustWorkspace(t, eng)
	bound, err := tk.BindWorkspace(ctx, ws.WorkspaceID)
	if err != nil {
		t.Fatalf("BindWorkspace: %v", err)
	}
	if bound.WorkspaceID != ws.WorkspaceID {
		t.Fatalf("bound: %+v", bound)
	}
}

func TestUnboundSessionRejected(t *testing.T) {
	tk, _ := newToolkit(t)
	_, err := tk.Context(context.Background(), "", engine.ContextOptions{})
	if engine.CodeOf(err) != engine.CodePreconditionFailed {
		t.Fatalf("unbound context: %v", err)
	}
	_, err = tk.AddNode(context.Background(), engine.AddNodeInput{Title: "x"})
	if engine.CodeOf(err) != engine.CodePreconditionFailed {
		t.Fatalf("unbound add: %v", err)
	}
}

func TestNodeFlowThroughToolkit(t *testing.T) {
	tk, eng := newToolkit(t)
	ctx := context.Background()
	ws := mustWorkspace(t, eng)
	if _, err := tk.BindWorkspace(ctx, ws.WorkspaceID); err != nil {
		t.Fatalf("BindWorkspace: %v", err)
	}

	n, err := tk.AddNode(ctx, engine.AddNodeInput{
		ParentID:         ws.RootID,
		Kind:             graph.KindExecution,
		Title:            "step",
		RulesFingerprint: ws.RulesDigest,
	})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	if _, err := tk.Transition(ctx, n.NodeID, engine.ActionStart, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	done, err := tk.Transition(ctx, n.NodeID, engine.ActionComplete, "works")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != string(graph.StatusCompleted) {
		t.Fatalf("status: %s", done.Status)
	}

	got, err := tk.GetNode(ctx, n.NodeID)
	if err != nil || got.Conclusion != "works" {
		t.Fatalf("GetNode: %v %+v", err, got)
	}
}

func TestFocusHintFeedsContext(t *testing.T) {
	tk, eng := newToolkit(t)
	ctx := context.Background()
	ws := mustWorkspace(t, eng)
	tk.BindWorkspace(ctx, ws.WorkspaceID)

	n, err := tk.AddNode(ctx, engine.AddNodeInput{
		ParentID:         ws.RootID,
		Kind:             graph.KindExecution,
		Title:            "focused step",
		RulesFingerprint: ws.RulesDigest,
	})
	if err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := tk.SetFocus(ctx, n.NodeID); err != nil {
		t.Fatalf("SetFocus: %v", err)
	}

	view, err := tk.Context(ctx, "", engine.ContextOptions{})
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	chain := view.AncestorChain
	if len(chain) == 0 || chain[len(chain)-1].Title != "focused step" {
		t.Fatalf("chain: %+v", chain)
	}
}

func TestReferencesThroughToolkit(t *testing.T) {
	tk, eng := newToolkit(t)
	ctx := context.Background()
	ws := mustWorkspace(t, eng)
	tk.BindWorkspace(ctx, ws.WorkspaceID)

	n, _ := tk.AddNode(ctx, engine.AddNodeInput{
		ParentID:         ws.RootID,
		Kind:             graph.KindExecution,
		Title:            "step",
		RulesFingerprint: ws.RulesDigest,
	})

	ref, err := tk.AddReference(ctx, engine.AddReferenceInput{
		NodeID:      n.NodeID,
		TargetPath:  "docs/design.md",
		Description: "design notes",
	})
	if err != nil || ref.Status != string(graph.RefActive) {
		t.Fatalf("AddReference: %v %+v", err, ref)
	}
	if err := tk.ExpireReference(ctx, n.NodeID, "docs/design.md"); err != nil {
		t.Fatalf("ExpireReference: %v", err)
	}
}

func TestCallForwardsWithBinding(t *testing.T) {
	tk, eng := newToolkit(t)
	ctx := context.Background()
	ws := mustWorkspace(t, eng)
	tk.BindWorkspace(ctx, ws.WorkspaceID)

	res, err := tk.Call(ctx, "workspace_get", "", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	got, ok := res.(*models.Workspace)
	if !ok || got.WorkspaceID != ws.WorkspaceID {
		t.Fatalf("result: %#v", res)
	}

	// Workspace management stays off the tool surface.
	if _, err := tk.Call(ctx, "workspace_delete", "", nil); engine.CodeOf(err) != engine.CodePreconditionFailed {
		t.Fatalf("workspace_delete: %v", err)
	}
}
