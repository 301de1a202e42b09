package engine

import (
	"testing"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func testSnapshot() *graph.Snapshot {
	return graph.NewSnapshot("ws", "ship the thing", []string{"tests must pass"}, t0)
}

func addChild(t *testing.T, s *graph.Snapshot, parentID string, kind graph.NodeKind, title string) *graph.Node {
	t.Helper()
	parent, ok := s.Node(parentID)
	if !ok {
		t.Fatalf("parent %s not in snapshot", parentID)
	}
	n := &graph.Node{
		ID:        graph.NewID(),
		Kind:      kind,
		Status:    graph.StatusPending,
		ParentID:  parentID,
		Title:     title,
		CreatedAt: t0,
		UpdatedAt: t0,
	}
	s.Nodes[n.ID] = n
	parent.Children = append(parent.Children, n.ID)
	return n
}

func mustTransition(t *testing.T, s *graph.Snapshot, nodeID string, action Action, conclusion string) *graph.Node {
	t.Helper()
	n, err := applyTransition(s, TransitionInput{NodeID: nodeID, Action: action, Conclusion: conclusion, Actor: graph.ActorHuman}, t0)
	if err != nil {
		t.Fatalf("%s on %s: %v", action, nodeID, err)
	}
	return n
}

func wantCode(t *testing.T, err error, code Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("want %s error, got nil", code)
	}
	if got := CodeOf(err); got != code {
		t.Fatalf("want code %s, got %s (%v)", code, got, err)
	}
}
