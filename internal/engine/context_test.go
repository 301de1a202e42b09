package engine

import (
	"testing"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

func TestContextAncestorChainOrder(t *testing.T) {
	s := testSnapshot()
	mid := addChild(t, s, s.RootID, graph.KindPlanning, "phase")
	leaf := addChild(t, s, mid.ID, graph.KindExecution, "step")

	view, err := assembleContext(s, leaf.ID, ContextOptions{})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	if len(view.AncestorChain) != 3 {
		t.Fatalf("chain length: %d", len(view.AncestorChain))
	}
	// Root first, focused node last.
	if view.AncestorChain[0].NodeID != s.RootID || view.AncestorChain[2].NodeID != leaf.ID {
		t.Fatalf("chain order: %s .. %s", view.AncestorChain[0].NodeID, view.AncestorChain[2].NodeID)
	}
}

func TestContextCarriesNotesByDefault(t *testing.T) {
	s := testSnapshot()
	mid := addChild(t, s, s.RootID, graph.KindPlanning, "phase")
	mid.Note = "schema decisions live in docs/schema.md"
	leaf := addChild(t, s, mid.ID, graph.KindExecution, "step")
	leaf.Note = "blocked on the migration"

	view, err := assembleContext(s, leaf.ID, ContextOptions{})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	// Notes are collected for every retained node without opting in.
	if view.AncestorChain[1].Note != mid.Note {
		t.Fatalf("ancestor note: %q", view.AncestorChain[1].Note)
	}
	if view.AncestorChain[2].Note != leaf.Note {
		t.Fatalf("focused note: %q", view.AncestorChain[2].Note)
	}
}

func TestContextIsolationCutoff(t *testing.T) {
	s := testSnapshot()
	mid := addChild(t, s, s.RootID, graph.KindPlanning, "isolated phase")
	mid.Isolated = true
	leaf := addChild(t, s, mid.ID, graph.KindExecution, "step")

	view, err := assembleContext(s, leaf.ID, ContextOptions{})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	// The isolated ancestor stays in; everything above it is cut.
	if len(view.AncestorChain) != 2 {
		t.Fatalf("chain length: %d", len(view.AncestorChain))
	}
	if view.AncestorChain[0].NodeID != mid.ID || view.AncestorChain[1].NodeID != leaf.ID {
		t.Fatalf("chain: %s, %s", view.AncestorChain[0].NodeID, view.AncestorChain[1].NodeID)
	}
}

func TestContextIsolatedFocusKeepsAncestors(t *testing.T) {
	s := testSnapshot()
	leaf := addChild(t, s, s.RootID, graph.KindExecution, "step")
	leaf.Isolated = true

	view, err := assembleContext(s, leaf.ID, ContextOptions{})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	// Isolation on the focused node itself does not sever its own chain.
	if len(view.AncestorChain) != 2 {
		t.Fatalf("chain length: %d", len(view.AncestorChain))
	}
}

func TestContextExpiredReferencesOmitted(t *testing.T) {
	s := testSnapshot()
	a := addChild(t, s, s.RootID, graph.KindExecution, "a")
	b := addChild(t, s, s.RootID, graph.KindExecution, "b")
	if _, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetNode: b.ID, Description: "schema"}, t0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetPath: "docs/x.md"}, t0); err != nil {
		t.Fatalf("add doc: %v", err)
	}
	if err := expireReference(s, a.ID, "docs/x.md", t0); err != nil {
		t.Fatalf("expire: %v", err)
	}

	view, err := assembleContext(s, a.ID, ContextOptions{})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	if len(view.CrossReferences) != 1 {
		t.Fatalf("want 1 cross reference, got %d", len(view.CrossReferences))
	}
	if view.CrossReferences[0].NodeID != b.ID || view.CrossReferences[0].Description != "schema" {
		t.Fatalf("unexpected cross reference: %+v", view.CrossReferences[0])
	}

	// Reactivation brings the document back into the view.
	if err := activateReference(s, a.ID, "docs/x.md", t0); err != nil {
		t.Fatalf("activate: %v", err)
	}
	view, err = assembleContext(s, a.ID, ContextOptions{})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	if len(view.CrossReferences) != 2 {
		t.Fatalf("want 2 cross references, got %d", len(view.CrossReferences))
	}
}

func TestContextChildOutcomes(t *testing.T) {
	s := testSnapshot()
	plan := addChild(t, s, s.RootID, graph.KindPlanning, "phase")
	c1 := addChild(t, s, plan.ID, graph.KindExecution, "first")
	c2 := addChild(t, s, plan.ID, graph.KindExecution, "second")
	c3 := addChild(t, s, plan.ID, graph.KindExecution, "third")

	mustTransition(t, s, c1.ID, ActionStart, "")
	mustTransition(t, s, c1.ID, ActionComplete, "first done")
	mustTransition(t, s, c2.ID, ActionStart, "")
	mustTransition(t, s, c2.ID, ActionFail, "second broke")
	// c3 stays pending: no outcome yet.
	_ = c3

	view, err := assembleContext(s, plan.ID, ContextOptions{})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	if len(view.ChildOutcomes) != 2 {
		t.Fatalf("want 2 outcomes, got %d", len(view.ChildOutcomes))
	}
	// Creation order, not completion order.
	if view.ChildOutcomes[0].NodeID != c1.ID || view.ChildOutcomes[1].NodeID != c2.ID {
		t.Fatalf("outcome order: %s, %s", view.ChildOutcomes[0].NodeID, view.ChildOutcomes[1].NodeID)
	}
	if view.ChildOutcomes[1].Conclusion != "second broke" {
		t.Fatalf("failure conclusion missing: %+v", view.ChildOutcomes[1])
	}
}

func TestContextLogTailTruncation(t *testing.T) {
	s := testSnapshot()
	n := addChild(t, s, s.RootID, graph.KindExecution, "busy")
	for i := 0; i < 5; i++ {
		n.AppendLog(t0, graph.ActorAutomated, string(rune('a'+i)))
	}

	view, err := assembleContext(s, n.ID, ContextOptions{IncludeLog: true, LogLimit: 2})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	focused := view.AncestorChain[len(view.AncestorChain)-1]
	if len(focused.Log) != 2 {
		t.Fatalf("want 2 log entries, got %d", len(focused.Log))
	}
	// The newest entries survive truncation, oldest-first by default.
	if focused.Log[0].Event != "d" || focused.Log[1].Event != "e" {
		t.Fatalf("kept entries: %q, %q", focused.Log[0].Event, focused.Log[1].Event)
	}

	view, err = assembleContext(s, n.ID, ContextOptions{IncludeLog: true, LogLimit: 2, LogNewestFirst: true})
	if err != nil {
		t.Fatalf("assembleContext: %v", err)
	}
	focused = view.AncestorChain[len(view.AncestorChain)-1]
	// Same entries either way; ordering is presentation only.
	if focused.Log[0].Event != "e" || focused.Log[1].Event != "d" {
		t.Fatalf("newest-first entries: %q, %q", focused.Log[0].Event, focused.Log[1].Event)
	}
}

func TestContextMissingNode(t *testing.T) {
	s := testSnapshot()
	_, err := assembleContext(s, "missing", ContextOptions{})
	wantCode(t, err, CodeNotFound)
}
