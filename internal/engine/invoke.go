package engine

import (
	"context"
	"fmt"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/otel"
)

// Request is one engine operation in transport-neutral form. The HTTP API,
// the tool surface, and the CLI all reduce to Invoke calls, so semantics and
// error codes stay identical across surfaces.
type Request struct {
	WorkspaceID string         `json:"workspace_id,omitempty"`
	NodeID      string         `json:"node_id,omitempty"`
	Op          string         `json:"op"`
	Args        map[string]any `json:"args,omitempty"`
}

// Invoke dispatches one request to the matching engine operation and counts
// the outcome per operation and workspace.
func (e *Engine) Invoke(ctx context.Context, req Request) (any, error) {
	res, err := e.invoke(ctx, req)
	if err != nil {
		otel.RecordNodeOp(ctx, req.Op, req.WorkspaceID, "error")
		otel.RecordEngineError(ctx, req.Op, string(CodeOf(err)))
		return nil, err
	}
	otel.RecordNodeOp(ctx, req.Op, req.WorkspaceID, "ok")
	return res, nil
}

func (e *Engine) invoke(ctx context.Context, req Request) (any, error) {
	a := args(req.Args)
	switch req.Op {
	case "workspace_create":
		return e.CreateWorkspace(ctx, a.str("name"), a.str("goal"), a.strs("rules"))
	case "workspace_get":
		return e.GetWorkspace(ctx, req.WorkspaceID)
	case "workspace_list":
		return e.ListWorkspaces(ctx)
	case "workspace_archive":
		return nil, e.ArchiveWorkspace(ctx, req.WorkspaceID)
	case "workspace_restore":
		return nil, e.RestoreWorkspace(ctx, req.WorkspaceID)
	case "workspace_delete":
		return nil, e.DeleteWorkspace(ctx, req.WorkspaceID, a.boolean("force"))
	case "rules_set":
		fp, err := e.SetRules(ctx, req.WorkspaceID, a.strs("rules"))
		if err != nil {
			return nil, err
		}
		return map[string]string{"rules_digest": fp}, nil
	case "focus_set":
		return nil, e.SetFocus(ctx, req.WorkspaceID, req.NodeID)

	case "node_add":
		return e.AddNode(ctx, req.WorkspaceID, AddNodeInput{
			ParentID:         a.str("parent_id"),
			Kind:             graph.NodeKind(a.str("kind")),
			Title:            a.str("title"),
			Requirement:      a.str("requirement"),
			Role:             graph.Role(a.str("role")),
			Isolated:         a.boolean("isolated"),
			RulesFingerprint: a.str("rules_digest"),
			Actor:            actorArg(a),
		})
	case "node_get":
		return e.GetNode(ctx, req.WorkspaceID, req.NodeID)
	case "node_history":
		return e.NodeHistory(ctx, req.WorkspaceID, req.NodeID)
	case "node_update":
		return e.UpdateNode(ctx, req.WorkspaceID, UpdateNodeInput{
			NodeID:      req.NodeID,
			Title:       a.optStr("title"),
			Requirement: a.optStr("requirement"),
			Note:        a.optStr("note"),
			Isolated:    a.optBool("isolated"),
			Actor:       actorArg(a),
		})
	case "node_move":
		return nil, e.MoveNode(ctx, req.WorkspaceID, req.NodeID, a.str("parent_id"), a.str("rules_digest"), actorArg(a))
	case "node_remove":
		return nil, e.RemoveNode(ctx, req.WorkspaceID, req.NodeID, a.str("rules_digest"), actorArg(a))
	case "node_transition":
		return e.Transition(ctx, req.WorkspaceID, TransitionInput{
			NodeID:     req.NodeID,
			Action:     Action(a.str("action")),
			Conclusion: a.str("conclusion"),
			Actor:      actorArg(a),
		})

	case "context_get":
		return e.Context(ctx, req.WorkspaceID, req.NodeID, ContextOptions{
			IncludeLog:     a.boolean("include_log"),
			LogLimit:       a.integer("log_limit"),
			LogNewestFirst: a.boolean("log_newest_first"),
		})

	case "ref_add":
		return e.AddReference(ctx, req.WorkspaceID, AddReferenceInput{
			NodeID:      req.NodeID,
			TargetNode:  a.str("target_node"),
			TargetPath:  a.str("target_path"),
			Description: a.str("description"),
		})
	case "ref_remove":
		return nil, e.RemoveReference(ctx, req.WorkspaceID, req.NodeID, a.str("target"))
	case "ref_expire":
		return nil, e.ExpireReference(ctx, req.WorkspaceID, req.NodeID, a.str("target"))
	case "ref_activate":
		return nil, e.ActivateReference(ctx, req.WorkspaceID, req.NodeID, a.str("target"))

	case "dispatch_enable":
		return nil, e.DispatchEnable(ctx, req.WorkspaceID, graph.DispatchMode(a.str("mode")), a.str("repo_dir"))
	case "dispatch_disable":
		return e.DispatchDisable(ctx, req.WorkspaceID, a.str("strategy"))
	case "node_dispatch":
		return e.DispatchNode(ctx, req.WorkspaceID, req.NodeID, actorArg(a))
	case "node_dispatch_complete":
		return e.DispatchComplete(ctx, req.WorkspaceID, req.NodeID, a.boolean("success"), a.str("conclusion"), actorArg(a))
	}
	return nil, PreconditionFailed("unknown operation %q", req.Op)
}

type args map[string]any

func (a args) str(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

func (a args) optStr(key string) *string {
	if v, ok := a[key].(string); ok {
		return &v
	}
	return nil
}

func (a args) boolean(key string) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return false
}

func (a args) optBool(key string) *bool {
	if v, ok := a[key].(bool); ok {
		return &v
	}
	return nil
}

// integer accepts both float64 (JSON decoding) and int (direct callers).
func (a args) integer(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func (a args) strs(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

func actorArg(a args) graph.Actor {
	if v := a.str("actor"); v != "" {
		return graph.Actor(v)
	}
	return graph.ActorAutomated
}
