package engine

import (
	"testing"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

func TestAddReference(t *testing.T) {
	s := testSnapshot()
	a := addChild(t, s, s.RootID, graph.KindExecution, "a")
	b := addChild(t, s, s.RootID, graph.KindExecution, "b")

	ref, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetNode: b.ID, Description: "shares the schema"}, t0)
	if err != nil {
		t.Fatalf("addReference: %v", err)
	}
	if ref.Kind != graph.RefNode || ref.Status != graph.RefActive {
		t.Fatalf("unexpected reference: %+v", ref)
	}

	doc, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetPath: "docs/schema.md"}, t0)
	if err != nil {
		t.Fatalf("add document reference: %v", err)
	}
	if doc.Kind != graph.RefDocument || doc.TargetPath != "docs/schema.md" {
		t.Fatalf("unexpected document reference: %+v", doc)
	}
}

func TestAddReferenceRejections(t *testing.T) {
	s := testSnapshot()
	a := addChild(t, s, s.RootID, graph.KindExecution, "a")
	b := addChild(t, s, s.RootID, graph.KindExecution, "b")

	_, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetNode: b.ID, TargetPath: "docs/x.md"}, t0)
	wantCode(t, err, CodePreconditionFailed)

	_, err = addReference(s, AddReferenceInput{NodeID: a.ID, TargetNode: "missing"}, t0)
	wantCode(t, err, CodeNotFound)

	_, err = addReference(s, AddReferenceInput{NodeID: a.ID}, t0)
	wantCode(t, err, CodePreconditionFailed)

	if _, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetNode: b.ID}, t0); err != nil {
		t.Fatalf("first add: %v", err)
	}
	// Duplicates are rejected regardless of status, even expired.
	_, err = addReference(s, AddReferenceInput{NodeID: a.ID, TargetNode: b.ID}, t0)
	wantCode(t, err, CodePreconditionFailed)
	if err := expireReference(s, a.ID, b.ID, t0); err != nil {
		t.Fatalf("expire: %v", err)
	}
	_, err = addReference(s, AddReferenceInput{NodeID: a.ID, TargetNode: b.ID}, t0)
	wantCode(t, err, CodePreconditionFailed)
}

func TestExpireActivateRoundTrip(t *testing.T) {
	s := testSnapshot()
	a := addChild(t, s, s.RootID, graph.KindExecution, "a")
	if _, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetPath: "docs/notes.md", Description: "design notes"}, t0); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Activating an already-active reference is a precondition failure.
	wantCode(t, activateReference(s, a.ID, "docs/notes.md", t0), CodePreconditionFailed)

	if err := expireReference(s, a.ID, "docs/notes.md", t0); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if a.References[0].Status != graph.RefExpired {
		t.Fatalf("status after expire: %s", a.References[0].Status)
	}
	if err := activateReference(s, a.ID, "docs/notes.md", t0); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if a.References[0].Status != graph.RefActive {
		t.Fatalf("status after activate: %s", a.References[0].Status)
	}
	// The expire/activate cycle must not lose the description.
	if a.References[0].Description != "design notes" {
		t.Fatalf("description lost: %q", a.References[0].Description)
	}
}

func TestRemoveIsPermanent(t *testing.T) {
	s := testSnapshot()
	a := addChild(t, s, s.RootID, graph.KindExecution, "a")
	if _, err := addReference(s, AddReferenceInput{NodeID: a.ID, TargetPath: "docs/x.md"}, t0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := removeReference(s, a.ID, "docs/x.md", t0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	wantCode(t, activateReference(s, a.ID, "docs/x.md", t0), CodeNotFound)
	wantCode(t, removeReference(s, a.ID, "docs/x.md", t0), CodeNotFound)
}
