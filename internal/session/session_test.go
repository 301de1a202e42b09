package session

import "testing"

func TestBindResolve(t *testing.T) {
	b := NewBinder()
	if _, ok := b.Resolve("s1"); ok {
		t.Fatal("unbound session resolved")
	}
	b.Bind("s1", "ws1")
	ws, ok := b.Resolve("s1")
	if !ok || ws != "ws1" {
		t.Fatalf("Resolve: %q %v", ws, ok)
	}

	// Rebinding replaces the previous workspace.
	b.Bind("s1", "ws2")
	ws, _ = b.Resolve("s1")
	if ws != "ws2" {
		t.Fatalf("after rebind: %q", ws)
	}
}

func TestFocusHint(t *testing.T) {
	b := NewBinder()
	b.Bind("s1", "ws1")
	if _, ok := b.FocusHint("s1"); ok {
		t.Fatal("fresh binding should have no focus hint")
	}
	b.SetFocusHint("s1", "n42")
	hint, ok := b.FocusHint("s1")
	if !ok || hint != "n42" {
		t.Fatalf("FocusHint: %q %v", hint, ok)
	}
	// Hints for unknown sessions are dropped silently.
	b.SetFocusHint("missing", "n1")
}

func TestUnbindAndDropWorkspace(t *testing.T) {
	b := NewBinder()
	b.Bind("s1", "ws1")
	b.Bind("s2", "ws1")
	b.Bind("s3", "ws2")

	b.Unbind("s1")
	if _, ok := b.Resolve("s1"); ok {
		t.Fatal("unbound session still resolves")
	}

	if n := b.DropWorkspace("ws1"); n != 1 {
		t.Fatalf("DropWorkspace: %d", n)
	}
	if _, ok := b.Resolve("s2"); ok {
		t.Fatal("binding to dropped workspace still resolves")
	}
	if _, ok := b.Resolve("s3"); !ok {
		t.Fatal("unrelated binding dropped")
	}
}
