// Package session binds tool sessions to workspaces. A binding caches the
// last focus seen by that session as a hint only; the focus pointer on the
// workspace remains the single source of truth and is re-read on every
// operation.
package session

import (
	"sync"
	"time"
)

// Binding associates one session with a workspace.
type Binding struct {
	SessionID   string
	WorkspaceID string
	// FocusHint is the focus the session last observed. Advisory only.
	FocusHint string
	BoundAt   time.Time
	LastSeen  time.Time
}

// Binder is an in-memory session-to-workspace map.
type Binder struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
}

func NewBinder() *Binder {
	return &Binder{bindings: make(map[string]*Binding)}
}

// Bind associates the session with a workspace, replacing any previous
// binding for the same session.
func (b *Binder) Bind(sessionID, workspaceID string) *Binding {
	now := time.Now().UTC()
	bd := &Binding{SessionID: sessionID, WorkspaceID: workspaceID, BoundAt: now, LastSeen: now}
	b.mu.Lock()
	b.bindings[sessionID] = bd
	b.mu.Unlock()
	return bd
}

// Resolve returns the workspace bound to the session.
func (b *Binder) Resolve(sessionID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bd, ok := b.bindings[sessionID]
	if !ok {
		return "", false
	}
	bd.LastSeen = time.Now().UTC()
	return bd.WorkspaceID, true
}

// SetFocusHint records the focus the session last observed.
func (b *Binder) SetFocusHint(sessionID, nodeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if bd, ok := b.bindings[sessionID]; ok {
		bd.FocusHint = nodeID
	}
}

// FocusHint returns the session's cached focus, if any.
func (b *Binder) FocusHint(sessionID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	bd, ok := b.bindings[sessionID]
	if !ok || bd.FocusHint == "" {
		return "", false
	}
	return bd.FocusHint, true
}

// Unbind removes the session's binding.
func (b *Binder) Unbind(sessionID string) {
	b.mu.Lock()
	delete(b.bindings, sessionID)
	b.mu.Unlock()
}

// DropWorkspace removes every binding pointing at the workspace, e.g. after
// the workspace is deleted.
func (b *Binder) DropWorkspace(workspaceID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for id, bd := range b.bindings {
		if bd.WorkspaceID == workspaceID {
			delete(b.bindings, id)
			n++
		}
	}
	return n
}
