package engine

import (
	"testing"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

func TestSiblingExclusivity(t *testing.T) {
	s := testSnapshot()
	a := addChild(t, s, s.RootID, graph.KindExecution, "step a")
	b := addChild(t, s, s.RootID, graph.KindExecution, "step b")

	mustTransition(t, s, a.ID, ActionStart, "")

	_, err := applyTransition(s, TransitionInput{NodeID: b.ID, Action: ActionStart}, t0)
	wantCode(t, err, CodePreconditionFailed)
	if b.Status != graph.StatusPending {
		t.Fatalf("rejected start changed state: %s", b.Status)
	}

	// Validating siblings block too.
	mustTransition(t, s, a.ID, ActionVerify, "")
	_, err = applyTransition(s, TransitionInput{NodeID: b.ID, Action: ActionStart}, t0)
	wantCode(t, err, CodePreconditionFailed)

	// Once the sibling reaches a terminal state the start succeeds.
	mustTransition(t, s, a.ID, ActionComplete, "done")
	mustTransition(t, s, b.ID, ActionStart, "")
	if b.Status != graph.StatusImplementing {
		t.Fatalf("start after sibling completed: %s", b.Status)
	}
}

func TestSiblingExclusivityScopedToParent(t *testing.T) {
	s := testSnapshot()
	p1 := addChild(t, s, s.RootID, graph.KindPlanning, "phase one")
	p2 := addChild(t, s, s.RootID, graph.KindPlanning, "phase two")
	a := addChild(t, s, p1.ID, graph.KindExecution, "a")
	b := addChild(t, s, p2.ID, graph.KindExecution, "b")

	mustTransition(t, s, a.ID, ActionStart, "")
	// Different parents: both may be active at once.
	mustTransition(t, s, b.ID, ActionStart, "")
	if a.Status != graph.StatusImplementing || b.Status != graph.StatusImplementing {
		t.Fatalf("cousins should run concurrently: %s / %s", a.Status, b.Status)
	}
}

func TestSiblingExclusivityOnRetryAndReopen(t *testing.T) {
	s := testSnapshot()
	a := addChild(t, s, s.RootID, graph.KindExecution, "a")
	b := addChild(t, s, s.RootID, graph.KindExecution, "b")

	mustTransition(t, s, a.ID, ActionStart, "")
	mustTransition(t, s, a.ID, ActionFail, "broke")
	mustTransition(t, s, b.ID, ActionStart, "")

	// Retry would create a second active sibling.
	_, err := applyTransition(s, TransitionInput{NodeID: a.ID, Action: ActionRetry}, t0)
	wantCode(t, err, CodePreconditionFailed)

	mustTransition(t, s, b.ID, ActionComplete, "done")
	// Reopen is gated the same way; b is terminal now so it passes.
	mustTransition(t, s, a.ID, ActionRetry, "")
	_, err = applyTransition(s, TransitionInput{NodeID: b.ID, Action: ActionReopen}, t0)
	wantCode(t, err, CodePreconditionFailed)
}

func TestRulesFingerprintGate(t *testing.T) {
	s := testSnapshot()

	if err := checkRulesFingerprint(s, s.RulesFingerprint, graph.ActorHuman, false); err != nil {
		t.Fatalf("matching fingerprint rejected: %v", err)
	}
	if err := checkRulesFingerprint(s, "", graph.ActorHuman, false); err == nil {
		t.Fatal("empty fingerprint accepted")
	}
	if err := checkRulesFingerprint(s, "stale", graph.ActorHuman, false); err == nil {
		t.Fatal("stale fingerprint accepted")
	}

	// Changing the rules invalidates previously observed fingerprints.
	old := s.RulesFingerprint
	s.SetRules([]string{"tests must pass", "docs updated"})
	if err := checkRulesFingerprint(s, old, graph.ActorHuman, false); err == nil {
		t.Fatal("fingerprint from before a rule change accepted")
	}
}

func TestRulesFingerprintSystemBypass(t *testing.T) {
	s := testSnapshot()

	// The bypass needs both the system actor and the engine-level opt-in.
	if err := checkRulesFingerprint(s, "", graph.ActorSystem, false); err == nil {
		t.Fatal("system actor bypassed without the escape hatch")
	}
	if err := checkRulesFingerprint(s, "", graph.ActorHuman, true); err == nil {
		t.Fatal("non-system actor bypassed")
	}
	if err := checkRulesFingerprint(s, "", graph.ActorSystem, true); err != nil {
		t.Fatalf("system bypass rejected: %v", err)
	}
}
