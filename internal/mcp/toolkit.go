// Package mcp exposes a session-scoped tool surface over the engine. Each
// tool-calling session binds to exactly one workspace; the binding is baked
// into every call so a session cannot reach into workspaces it never bound.
package mcp

import (
	"context"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/session"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

// Backend is the minimal engine surface required by Toolkit. *engine.Engine
// implements it.
type Backend interface {
	GetWorkspace(ctx context.Context, workspaceID string) (*models.Workspace, error)
	AddNode(ctx context.Context, workspaceID string, in engine.AddNodeInput) (*models.Node, error)
	GetNode(ctx context.Context, workspaceID, nodeID string) (*models.Node, error)
	Transition(ctx context.Context, workspaceID string, in engine.TransitionInput) (*models.Node, error)
	Context(ctx context.Context, workspaceID, nodeID string, opts engine.ContextOptions) (*models.ContextView, error)
	AddReference(ctx context.Context, workspaceID string, in engine.AddReferenceInput) (*models.Reference, error)
	ExpireReference(ctx context.Context, workspaceID, nodeID, target string) error
	SetFocus(ctx context.Context, workspaceID, nodeID string) error
	Invoke(ctx context.Context, req engine.Request) (any, error)
}

// Toolkit exposes validated tool methods for one tool-calling session. The
// session identity is fixed at construction; workspace scope comes from the
// session binding and never from call arguments.
type Toolkit struct {
	Engine    Backend
	Sessions  *session.Binder
	SessionID string
	Actor     graph.Actor
}

func (t *Toolkit) actor() graph.Actor {
	if t.Actor == "" {
		return graph.ActorAutomated
	}
	return t.Actor
}

// BindWorkspace attaches this session to a workspace after verifying it
// exists. Rebinding replaces the previous binding.
func (t *Toolkit) BindWorkspace(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	ws, err := t.Engine.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	t.Sessions.Bind(t.SessionID, workspaceID)
	return ws, nil
}

// Unbind detaches this session from its workspace.
func (t *Toolkit) Unbind() {
	t.Sessions.Unbind(t.SessionID)
}

func (t *Toolkit) workspace() (string, error) {
	wsID, ok := t.Sessions.Resolve(t.SessionID)
	if !ok {
		return "", engine.PreconditionFailed("session %s is not bound to a workspace", t.SessionID)
	}
	return wsID, nil
}

// Context assembles the working context for a node. An empty nodeID falls
// back to the session's focus hint, then to the workspace focus.
func (t *Toolkit) Context(ctx context.Context, nodeID string, opts engine.ContextOptions) (*models.ContextView, error) {
	wsID, err := t.workspace()
	if err != nil {
		return nil, err
	}
	if nodeID == "" {
		if hint, ok := t.Sessions.FocusHint(t.SessionID); ok {
			nodeID = hint
		}
	}
	return t.Engine.Context(ctx, wsID, nodeID, opts)
}

// AddNode creates a child node in the bound workspace.
func (t *Toolkit) AddNode(ctx context.Context, in engine.AddNodeInput) (*models.Node, error) {
	wsID, err := t.workspace()
	if err != nil {
		return nil, err
	}
	in.Actor = t.actor()
	return t.Engine.AddNode(ctx, wsID, in)
}

// GetNode returns one node from the bound workspace.
func (t *Toolkit) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	wsID, err := t.workspace()
	if err != nil {
		return nil, err
	}
	return t.Engine.GetNode(ctx, wsID, nodeID)
}

// Transition applies a state-machine action to a node.
func (t *Toolkit) Transition(ctx context.Context, nodeID string, action engine.Action, conclusion string) (*models.Node, error) {
	wsID, err := t.workspace()
	if err != nil {
		return nil, err
	}
	return t.Engine.Transition(ctx, wsID, engine.TransitionInput{
		NodeID:     nodeID,
		Action:     action,
		Conclusion: conclusion,
		Actor:      t.actor(),
	})
}

// AddReference records a reference on a node.
func (t *Toolkit) AddReference(ctx context.Context, in engine.AddReferenceInput) (*models.Reference, error) {
	wsID, err := t.workspace()
	if err != nil {
		return nil, err
	}
	return t.Engine.AddReference(ctx, wsID, in)
}

// ExpireReference marks a reference expired without deleting it.
func (t *Toolkit) ExpireReference(ctx context.Context, nodeID, target string) error {
	wsID, err := t.workspace()
	if err != nil {
		return err
	}
	return t.Engine.ExpireReference(ctx, wsID, nodeID, target)
}

// SetFocus moves the workspace focus and mirrors it into the session's focus
// hint.
func (t *Toolkit) SetFocus(ctx context.Context, nodeID string) error {
	wsID, err := t.workspace()
	if err != nil {
		return err
	}
	if err := t.Engine.SetFocus(ctx, wsID, nodeID); err != nil {
		return err
	}
	t.Sessions.SetFocusHint(t.SessionID, nodeID)
	return nil
}

// Call forwards an arbitrary operation to the engine with the session's
// workspace binding applied. Workspace-management operations that create or
// list workspaces are rejected; this surface works within one workspace.
func (t *Toolkit) Call(ctx context.Context, op, nodeID string, args map[string]any) (any, error) {
	switch op {
	case "workspace_create", "workspace_list", "workspace_delete":
		return nil, engine.PreconditionFailed("operation %q is not available on the tool surface", op)
	}
	wsID, err := t.workspace()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	if _, ok := args["actor"]; !ok {
		args["actor"] = string(t.actor())
	}
	return t.Engine.Invoke(ctx, engine.Request{
		WorkspaceID: wsID,
		NodeID:      nodeID,
		Op:          op,
		Args:        args,
	})
}
