// Package engine implements the node-graph engine: workspace and node
// lifecycle, state transitions, context assembly, reference lifecycle, the
// concurrency guard, and dispatch coordination. All transports (HTTP, tool
// invocation, CLI) funnel through this package so state stays consistent.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/otel"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/store"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

// Notifier receives structured change events after successful mutations.
// Delivery and rendering are entirely the collaborator's responsibility.
type Notifier interface {
	Changed(ev models.ChangeEvent)
}

// Engine is the single authority over a store of workspaces. Calls for the
// same workspace are serialized by a per-workspace mutex; every operation is
// one full read-modify-write cycle against the store.
type Engine struct {
	Store    store.Store
	VCS      VersionControl
	Notifier Notifier

	// AllowSystemRuleBypass lets system-actor calls skip the rule-fingerprint
	// gate. Off by default; enable only for reviewed system-initiated flows.
	AllowSystemRuleBypass bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine over the given store.
func New(st store.Store) *Engine {
	return &Engine{Store: st, locks: make(map[string]*sync.Mutex)}
}

func (e *Engine) lockFor(workspaceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locks == nil {
		e.locks = make(map[string]*sync.Mutex)
	}
	l, ok := e.locks[workspaceID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[workspaceID] = l
	}
	return l
}

func (e *Engine) emit(workspaceID, nodeID, change string) {
	if e.Notifier == nil {
		return
	}
	e.Notifier.Changed(models.ChangeEvent{
		Type:        "change",
		WorkspaceID: workspaceID,
		NodeID:      nodeID,
		Change:      change,
	})
}

// withWorkspace runs fn under the workspace lock as one read-modify-write
// cycle. A snapshot that fails structural validation is marked with the error
// status and refused: corruption is surfaced, never auto-repaired.
func (e *Engine) withWorkspace(ctx context.Context, workspaceID string, mutate bool, fn func(s *graph.Snapshot) error) error {
	l := e.lockFor(workspaceID)
	l.Lock()
	defer l.Unlock()

	s, err := e.Store.Load(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("workspace not found: %s", workspaceID)
		}
		return err
	}
	if err := s.Validate(); err != nil {
		if s.Status != graph.WorkspaceError {
			s.Status = graph.WorkspaceError
			if saveErr := e.Store.Save(ctx, s); saveErr != nil {
				slog.Error("could not flag corrupt workspace", "workspace", workspaceID, "err", saveErr)
			}
		}
		return Corruption("workspace %s failed validation: %v", workspaceID, err)
	}
	if err := fn(s); err != nil {
		return err
	}
	if mutate {
		s.UpdatedAt = time.Now().UTC()
		if err := e.Store.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func requireActive(s *graph.Snapshot) error {
	if s.Status != graph.WorkspaceActive {
		return PreconditionFailed("workspace %s is %s; restore it before mutating", s.WorkspaceID, s.Status)
	}
	return nil
}

// --- Workspace lifecycle ---

// CreateWorkspace initializes a workspace with a root planning node and
// derives the rule fingerprint from the initial rules.
func (e *Engine) CreateWorkspace(ctx context.Context, name, goal string, rules []string) (*models.Workspace, error) {
	if strings.TrimSpace(name) == "" {
		return nil, PreconditionFailed("workspace name required")
	}
	s := graph.NewSnapshot(name, goal, rules, time.Now().UTC())
	s.AppendLog(s.CreatedAt, graph.ActorSystem, "workspace created")
	if err := e.Store.Save(ctx, s); err != nil {
		return nil, err
	}
	e.emit(s.WorkspaceID, s.RootID, "workspace_created")
	w := workspaceSummary(s)
	return &w, nil
}

// GetWorkspace returns the workspace summary.
func (e *Engine) GetWorkspace(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	var w models.Workspace
	err := e.withWorkspace(ctx, workspaceID, false, func(s *graph.Snapshot) error {
		w = workspaceSummary(s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkspaces lists known workspaces without loading full snapshots.
func (e *Engine) ListWorkspaces(ctx context.Context) ([]store.WorkspaceInfo, error) {
	return e.Store.List(ctx)
}

// ArchiveWorkspace puts an active workspace into the archived status without
// destroying data.
func (e *Engine) ArchiveWorkspace(ctx context.Context, workspaceID string) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if s.Status != graph.WorkspaceActive {
			return PreconditionFailed("workspace %s is %s, not active", workspaceID, s.Status)
		}
		s.Status = graph.WorkspaceArchived
		s.AppendLog(time.Now().UTC(), graph.ActorSystem, "workspace archived")
		return nil
	})
	if err == nil {
		e.emit(workspaceID, "", "workspace_archived")
	}
	return err
}

// RestoreWorkspace returns an archived workspace to active.
func (e *Engine) RestoreWorkspace(ctx context.Context, workspaceID string) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if s.Status != graph.WorkspaceArchived {
			return PreconditionFailed("workspace %s is %s, not archived", workspaceID, s.Status)
		}
		s.Status = graph.WorkspaceActive
		s.AppendLog(time.Now().UTC(), graph.ActorSystem, "workspace restored")
		return nil
	})
	if err == nil {
		e.emit(workspaceID, "", "workspace_restored")
	}
	return err
}

// DeleteWorkspace removes a workspace permanently. Active workspaces are only
// deleted when forced.
func (e *Engine) DeleteWorkspace(ctx context.Context, workspaceID string, force bool) error {
	l := e.lockFor(workspaceID)
	l.Lock()
	defer l.Unlock()

	s, err := e.Store.Load(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFound("workspace not found: %s", workspaceID)
		}
		return err
	}
	if s.Status == graph.WorkspaceActive && !force {
		return PreconditionFailed("workspace %s is active; archive it first or force deletion", workspaceID)
	}
	if err := e.Store.Delete(ctx, workspaceID); err != nil {
		return err
	}
	e.emit(workspaceID, "", "workspace_deleted")
	return nil
}

// SetRules replaces the workspace rule list, recomputing the fingerprint
// atomically with the change.
func (e *Engine) SetRules(ctx context.Context, workspaceID string, rules []string) (string, error) {
	var fp string
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		s.SetRules(rules)
		s.AppendLog(time.Now().UTC(), graph.ActorSystem, "workspace rules updated")
		fp = s.RulesFingerprint
		return nil
	})
	if err != nil {
		return "", err
	}
	e.emit(workspaceID, "", "rules_updated")
	return fp, nil
}

// SetFocus moves the workspace focus pointer. The focus pointer on the
// workspace is the single source of truth; session bindings only cache it.
func (e *Engine) SetFocus(ctx context.Context, workspaceID, nodeID string) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		if _, ok := s.Node(nodeID); !ok {
			return NotFound("node not found: %s", nodeID)
		}
		s.CurrentFocus = nodeID
		return nil
	})
	if err == nil {
		e.emit(workspaceID, nodeID, "focus_changed")
	}
	return err
}

// --- Node structure ---

// AddNodeInput describes one new node. RulesFingerprint is the caller's
// last-observed fingerprint: node creation is a structural mutation and goes
// through the rule-fingerprint gate.
type AddNodeInput struct {
	ParentID         string
	Kind             graph.NodeKind
	Title            string
	Requirement      string
	Role             graph.Role
	Isolated         bool
	RulesFingerprint string
	Actor            graph.Actor
}

// AddNode creates a node under a planning parent.
func (e *Engine) AddNode(ctx context.Context, workspaceID string, in AddNodeInput) (*models.Node, error) {
	var out models.Node
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		if err := checkRulesFingerprint(s, in.RulesFingerprint, in.Actor, e.AllowSystemRuleBypass); err != nil {
			return err
		}
		parent, ok := s.Node(in.ParentID)
		if !ok {
			return NotFound("parent node not found: %s", in.ParentID)
		}
		if parent.Kind != graph.KindPlanning {
			return PreconditionFailed("execution node %s cannot gain children", parent.ID)
		}
		if in.Kind != graph.KindPlanning && in.Kind != graph.KindExecution {
			return PreconditionFailed("node kind must be planning or execution")
		}
		if strings.TrimSpace(in.Title) == "" {
			return PreconditionFailed("node title required")
		}
		now := time.Now().UTC()
		n := &graph.Node{
			ID:          graph.NewID(),
			Kind:        in.Kind,
			Status:      graph.StatusPending,
			Role:        in.Role,
			ParentID:    parent.ID,
			Isolated:    in.Isolated,
			Title:       in.Title,
			Requirement: in.Requirement,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.Nodes[n.ID] = n
		parent.Children = append(parent.Children, n.ID)
		advanceParentOnChildCreated(s, parent, now)
		actor := in.Actor
		if actor == "" {
			actor = graph.ActorAutomated
		}
		n.AppendLog(now, actor, "node created")
		if s.RootAdjacent(n.ID) {
			s.AppendLog(now, actor, fmt.Sprintf("node %s created under %s", n.ID, parent.ID))
		}
		out = nodeModel(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(workspaceID, out.NodeID, "node_created")
	return &out, nil
}

// MoveNode reparents a node. The rule-fingerprint gate applies, and a node
// can never become its own ancestor.
func (e *Engine) MoveNode(ctx context.Context, workspaceID, nodeID, newParentID, fingerprint string, actor graph.Actor) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		if err := checkRulesFingerprint(s, fingerprint, actor, e.AllowSystemRuleBypass); err != nil {
			return err
		}
		n, ok := s.Node(nodeID)
		if !ok {
			return NotFound("node not found: %s", nodeID)
		}
		if n.ID == s.RootID {
			return PreconditionFailed("the root node cannot be moved")
		}
		parent, ok := s.Node(newParentID)
		if !ok {
			return NotFound("parent node not found: %s", newParentID)
		}
		if parent.Kind != graph.KindPlanning {
			return PreconditionFailed("execution node %s cannot gain children", parent.ID)
		}
		if newParentID == nodeID || s.IsAncestor(nodeID, newParentID) {
			return PreconditionFailed("moving %s under %s would make it its own ancestor", nodeID, newParentID)
		}
		old, ok := s.Node(n.ParentID)
		if ok {
			old.Children = removeID(old.Children, nodeID)
		}
		n.ParentID = newParentID
		parent.Children = append(parent.Children, nodeID)
		now := time.Now().UTC()
		advanceParentOnChildCreated(s, parent, now)
		n.AppendLog(now, actor, fmt.Sprintf("moved under %s", newParentID))
		return nil
	})
	if err == nil {
		e.emit(workspaceID, nodeID, "node_moved")
	}
	return err
}

// RemoveNode deletes a node and its subtree. The root cannot be removed.
func (e *Engine) RemoveNode(ctx context.Context, workspaceID, nodeID, fingerprint string, actor graph.Actor) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		if err := checkRulesFingerprint(s, fingerprint, actor, e.AllowSystemRuleBypass); err != nil {
			return err
		}
		n, ok := s.Node(nodeID)
		if !ok {
			return NotFound("node not found: %s", nodeID)
		}
		if n.ID == s.RootID {
			return PreconditionFailed("the root node cannot be removed")
		}
		if parent, ok := s.Node(n.ParentID); ok {
			parent.Children = removeID(parent.Children, nodeID)
		}
		removed := deleteSubtree(s, nodeID)
		if s.CurrentFocus != "" {
			if _, ok := s.Node(s.CurrentFocus); !ok {
				s.CurrentFocus = n.ParentID
			}
		}
		s.AppendLog(time.Now().UTC(), actor, fmt.Sprintf("removed node %s (%d nodes)", nodeID, removed))
		return nil
	})
	if err == nil {
		e.emit(workspaceID, nodeID, "node_removed")
	}
	return err
}

func deleteSubtree(s *graph.Snapshot, id string) int {
	n, ok := s.Node(id)
	if !ok {
		return 0
	}
	count := 1
	for _, c := range n.Children {
		count += deleteSubtree(s, c)
	}
	delete(s.Nodes, id)
	return count
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// UpdateNodeInput carries optional field updates; nil leaves a field alone.
// These are non-structural edits and skip the fingerprint gate.
type UpdateNodeInput struct {
	NodeID      string
	Title       *string
	Requirement *string
	Note        *string
	Isolated    *bool
	Actor       graph.Actor
}

// UpdateNode edits a node's text fields and isolation flag.
func (e *Engine) UpdateNode(ctx context.Context, workspaceID string, in UpdateNodeInput) (*models.Node, error) {
	var out models.Node
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		n, ok := s.Node(in.NodeID)
		if !ok {
			return NotFound("node not found: %s", in.NodeID)
		}
		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return PreconditionFailed("node title cannot be empty")
			}
			n.Title = *in.Title
		}
		if in.Requirement != nil {
			n.Requirement = *in.Requirement
		}
		if in.Note != nil {
			n.Note = *in.Note
		}
		if in.Isolated != nil {
			n.Isolated = *in.Isolated
		}
		n.UpdatedAt = time.Now().UTC()
		out = nodeModel(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(workspaceID, in.NodeID, "node_updated")
	return &out, nil
}

// GetNode returns one node.
func (e *Engine) GetNode(ctx context.Context, workspaceID, nodeID string) (*models.Node, error) {
	var out models.Node
	err := e.withWorkspace(ctx, workspaceID, false, func(s *graph.Snapshot) error {
		n, ok := s.Node(nodeID)
		if !ok {
			return NotFound("node not found: %s", nodeID)
		}
		out = nodeModel(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// NodeHistory returns the node's archived prior conclusions, oldest first.
func (e *Engine) NodeHistory(ctx context.Context, workspaceID, nodeID string) ([]graph.ConclusionRecord, error) {
	var out []graph.ConclusionRecord
	err := e.withWorkspace(ctx, workspaceID, false, func(s *graph.Snapshot) error {
		n, ok := s.Node(nodeID)
		if !ok {
			return NotFound("node not found: %s", nodeID)
		}
		out = append(out, n.PriorConclusions...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// --- Transitions ---

// Transition runs one node state transition.
func (e *Engine) Transition(ctx context.Context, workspaceID string, in TransitionInput) (*models.Node, error) {
	var out models.Node
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		n, err := applyTransition(s, in, time.Now().UTC())
		if err != nil {
			return err
		}
		out = nodeModel(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(workspaceID, in.NodeID, "node_"+string(in.Action))
	return &out, nil
}

// --- Context ---

// Context assembles the focused view for a node; an empty nodeID means the
// workspace's current focus.
func (e *Engine) Context(ctx context.Context, workspaceID, nodeID string, opts ContextOptions) (*models.ContextView, error) {
	start := time.Now()
	var out *models.ContextView
	err := e.withWorkspace(ctx, workspaceID, false, func(s *graph.Snapshot) error {
		id := nodeID
		if id == "" {
			id = s.CurrentFocus
		}
		if id == "" {
			id = s.RootID
		}
		view, err := assembleContext(s, id, opts)
		if err != nil {
			return err
		}
		out = view
		return nil
	})
	if err != nil {
		return nil, err
	}
	otel.RecordContextAssembly(ctx, workspaceID, time.Since(start))
	return out, nil
}

// --- References ---

// AddReference creates an active reference from a node.
func (e *Engine) AddReference(ctx context.Context, workspaceID string, in AddReferenceInput) (*models.Reference, error) {
	var out models.Reference
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		ref, err := addReference(s, in, time.Now().UTC())
		if err != nil {
			return err
		}
		out = refModel(ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emit(workspaceID, in.NodeID, "reference_added")
	return &out, nil
}

// RemoveReference hard-deletes a reference.
func (e *Engine) RemoveReference(ctx context.Context, workspaceID, nodeID, target string) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		return removeReference(s, nodeID, target, time.Now().UTC())
	})
	if err == nil {
		e.emit(workspaceID, nodeID, "reference_removed")
	}
	return err
}

// ExpireReference marks a reference expired (reversible).
func (e *Engine) ExpireReference(ctx context.Context, workspaceID, nodeID, target string) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		return expireReference(s, nodeID, target, time.Now().UTC())
	})
	if err == nil {
		e.emit(workspaceID, nodeID, "reference_expired")
	}
	return err
}

// ActivateReference reactivates an expired reference.
func (e *Engine) ActivateReference(ctx context.Context, workspaceID, nodeID, target string) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		return activateReference(s, nodeID, target, time.Now().UTC())
	})
	if err == nil {
		e.emit(workspaceID, nodeID, "reference_activated")
	}
	return err
}

// --- Dispatch ---

// DispatchEnable turns dispatch mode on for the workspace.
func (e *Engine) DispatchEnable(ctx context.Context, workspaceID string, mode graph.DispatchMode, repoDir string) error {
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		return dispatchEnable(ctx, e.VCS, s, mode, repoDir, time.Now().UTC())
	})
	if err == nil {
		otel.RecordDispatchOp(ctx, "enable", workspaceID)
		e.emit(workspaceID, "", "dispatch_enabled")
	}
	return err
}

// DispatchDisable turns dispatch mode off; in git mode the caller must pick a
// merge strategy, otherwise the available options are returned unchanged.
func (e *Engine) DispatchDisable(ctx context.Context, workspaceID, strategy string) (*models.DispatchDisable, error) {
	var out *models.DispatchDisable
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		res, err := dispatchDisable(ctx, e.VCS, s, strategy, time.Now().UTC())
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Merged || out.Strategy != "" {
		otel.RecordDispatchOp(ctx, "disable", workspaceID)
		e.emit(workspaceID, "", "dispatch_disabled")
	}
	return out, nil
}

// DispatchNode hands an execution node to an external worker.
func (e *Engine) DispatchNode(ctx context.Context, workspaceID, nodeID string, actor graph.Actor) (*models.Node, error) {
	var out models.Node
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		n, err := dispatchNode(ctx, e.VCS, s, nodeID, actor, time.Now().UTC())
		if err != nil {
			return err
		}
		out = nodeModel(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	otel.RecordDispatchOp(ctx, "node", workspaceID)
	e.emit(workspaceID, nodeID, "node_dispatched")
	return &out, nil
}

// DispatchComplete finishes a dispatch cycle, rolling back in git mode when
// the worker failed.
func (e *Engine) DispatchComplete(ctx context.Context, workspaceID, nodeID string, success bool, conclusion string, actor graph.Actor) (*models.DispatchOutcome, error) {
	var out *models.DispatchOutcome
	err := e.withWorkspace(ctx, workspaceID, true, func(s *graph.Snapshot) error {
		if err := requireActive(s); err != nil {
			return err
		}
		res, err := dispatchComplete(ctx, e.VCS, s, nodeID, success, conclusion, actor, time.Now().UTC())
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	otel.RecordDispatchOp(ctx, "complete", workspaceID)
	e.emit(workspaceID, nodeID, "node_dispatch_complete")
	return out, nil
}

// --- Conversions ---

func nodeModel(n *graph.Node) models.Node {
	out := models.Node{
		NodeID:      n.ID,
		Kind:        string(n.Kind),
		Status:      string(n.Status),
		Role:        string(n.Role),
		ParentID:    n.ParentID,
		Children:    append([]string(nil), n.Children...),
		Isolated:    n.Isolated,
		Title:       n.Title,
		Requirement: n.Requirement,
		Note:        n.Note,
		Conclusion:  n.Conclusion,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
	for i := range n.References {
		out.References = append(out.References, refModel(&n.References[i]))
	}
	if n.Dispatch != nil {
		out.Dispatch = &models.Dispatch{
			StartMarker: n.Dispatch.StartMarker,
			EndMarker:   n.Dispatch.EndMarker,
			Status:      string(n.Dispatch.Status),
		}
	}
	return out
}

func refModel(r *graph.Reference) models.Reference {
	return models.Reference{
		RefID:       r.RefID,
		Kind:        string(r.Kind),
		TargetNode:  r.TargetNode,
		TargetPath:  r.TargetPath,
		Description: r.Description,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
	}
}
