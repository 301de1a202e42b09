// Package graph defines the persisted node-graph data model: workspaces, task
// nodes, references, and log entries, plus structural validation and the rule
// fingerprint. One Snapshot is the unit of persistence per workspace and the
// only shape that must round-trip exactly (see internal/store).
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkspaceStatus is the workspace lifecycle status.
type WorkspaceStatus string

const (
	WorkspaceActive   WorkspaceStatus = "active"
	WorkspaceArchived WorkspaceStatus = "archived"
	WorkspaceError    WorkspaceStatus = "error"
)

// NodeKind selects the node's state set. Immutable after creation.
type NodeKind string

const (
	KindPlanning  NodeKind = "planning"
	KindExecution NodeKind = "execution"
)

// NodeStatus is a node's current state, drawn from the kind-specific state set.
type NodeStatus string

const (
	StatusPending      NodeStatus = "pending"
	StatusPlanning     NodeStatus = "planning"
	StatusMonitoring   NodeStatus = "monitoring"
	StatusImplementing NodeStatus = "implementing"
	StatusValidating   NodeStatus = "validating"
	StatusCompleted    NodeStatus = "completed"
	StatusFailed       NodeStatus = "failed"
	StatusCancelled    NodeStatus = "cancelled"
)

// Role is an optional tag describing what a node is for.
type Role string

const (
	RoleInfoCollection Role = "info_collection"
	RoleValidation     Role = "validation"
	RoleSummary        Role = "summary"
)

// Actor identifies who caused a logged event.
type Actor string

const (
	ActorHuman     Actor = "human"
	ActorAutomated Actor = "automated"
	ActorSystem    Actor = "system"
)

// RefStatus is a reference's lifecycle status.
type RefStatus string

const (
	RefActive  RefStatus = "active"
	RefExpired RefStatus = "expired"
)

// RefKind is the target type of a reference.
type RefKind string

const (
	RefNode     RefKind = "node"
	RefDocument RefKind = "document"
)

// DispatchStatus tracks a dispatched node through the external worker cycle.
type DispatchStatus string

const (
	DispatchExecuting DispatchStatus = "executing"
	DispatchPassed    DispatchStatus = "passed"
	DispatchFailed    DispatchStatus = "failed"
)

// DispatchMode is the workspace dispatch configuration mode.
type DispatchMode string

const (
	DispatchGit  DispatchMode = "git"
	DispatchNone DispatchMode = "none"
)

// LogEntry is one append-only event on a node or workspace log.
type LogEntry struct {
	At    time.Time `json:"at"`
	Actor Actor     `json:"actor"`
	Event string    `json:"event"`
}

// Reference is a directed, typed edge from a node to another node or an
// external document path. References live on the source node as a flat edge
// list; they never imply ownership, so node-to-node cycles are permitted.
type Reference struct {
	RefID       string    `json:"ref_id"`
	Kind        RefKind   `json:"kind"`
	TargetNode  string    `json:"target_node,omitempty"`
	TargetPath  string    `json:"target_path,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      RefStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Target returns the reference target as a single comparable string.
func (r *Reference) Target() string {
	if r.Kind == RefNode {
		return r.TargetNode
	}
	return r.TargetPath
}

// ConclusionRecord is a prior conclusion archived by reopen, kept structured
// so history stays queryable instead of being concatenated away.
type ConclusionRecord struct {
	Text       string    `json:"text"`
	ArchivedAt time.Time `json:"archived_at"`
}

// DispatchRecord is the per-node dispatch state. Markers are git revision ids
// in git mode or RFC3339 timestamps otherwise.
type DispatchRecord struct {
	StartMarker string         `json:"start_marker,omitempty"`
	EndMarker   string         `json:"end_marker,omitempty"`
	Status      DispatchStatus `json:"status"`
}

// DispatchConfig is the workspace-level dispatch configuration. Nil means
// dispatch mode is disabled.
type DispatchConfig struct {
	Mode         DispatchMode `json:"mode"`
	RepoDir      string       `json:"repo_dir,omitempty"`
	Branch       string       `json:"branch,omitempty"`
	BackupBranch string       `json:"backup_branch,omitempty"`
	BaseRevision string       `json:"base_revision,omitempty"`
	EnabledAt    time.Time    `json:"enabled_at"`
}

// Node is a task unit inside exactly one workspace.
type Node struct {
	ID               string             `json:"id"`
	Kind             NodeKind           `json:"kind"`
	Status           NodeStatus         `json:"status"`
	Role             Role               `json:"role,omitempty"`
	ParentID         string             `json:"parent_id,omitempty"` // empty only for the root
	Children         []string           `json:"children,omitempty"`  // creation order; planning nodes only
	Isolated         bool               `json:"isolated,omitempty"`
	Title            string             `json:"title"`
	Requirement      string             `json:"requirement,omitempty"`
	Note             string             `json:"note,omitempty"`
	Conclusion       string             `json:"conclusion,omitempty"`
	PriorConclusions []ConclusionRecord `json:"prior_conclusions,omitempty"`
	References       []Reference        `json:"references,omitempty"`
	Dispatch         *DispatchRecord    `json:"dispatch,omitempty"`
	Log              []LogEntry         `json:"log,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Snapshot is the persisted record for one workspace: workspace attributes
// plus the full node map. Load/save is atomic at this granularity.
type Snapshot struct {
	WorkspaceID      string          `json:"workspace_id"`
	Name             string          `json:"name"`
	Goal             string          `json:"goal,omitempty"`
	Status           WorkspaceStatus `json:"status"`
	Rules            []string        `json:"rules,omitempty"`
	RulesFingerprint string          `json:"rules_fingerprint"`
	Documents        []string        `json:"documents,omitempty"`
	CurrentFocus     string          `json:"current_focus,omitempty"`
	Dispatch         *DispatchConfig `json:"dispatch,omitempty"`
	RootID           string          `json:"root_id"`
	Nodes            map[string]*Node `json:"nodes"`
	Log              []LogEntry      `json:"log,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewID returns a fresh identifier for workspaces, nodes, and references.
func NewID() string {
	return uuid.NewString()
}

// Fingerprint derives the rule fingerprint from an ordered rule list.
// It must be recomputed atomically with every rule change.
func Fingerprint(rules []string) string {
	h := sha256.New()
	for _, r := range rules {
		h.Write([]byte(r))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewSnapshot creates a workspace with a single root planning node.
func NewSnapshot(name, goal string, rules []string, now time.Time) *Snapshot {
	wsID := NewID()
	root := &Node{
		ID:          NewID(),
		Kind:        KindPlanning,
		Status:      StatusPending,
		Title:       name,
		Requirement: goal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return &Snapshot{
		WorkspaceID:      wsID,
		Name:             name,
		Goal:             goal,
		Status:           WorkspaceActive,
		Rules:            append([]string(nil), rules...),
		RulesFingerprint: Fingerprint(rules),
		RootID:           root.ID,
		CurrentFocus:     root.ID,
		Nodes:            map[string]*Node{root.ID: root},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// SetRules replaces the rule list and recomputes the fingerprint in one step.
func (s *Snapshot) SetRules(rules []string) {
	s.Rules = append([]string(nil), rules...)
	s.RulesFingerprint = Fingerprint(s.Rules)
}

// Node returns the node with the given id, if present.
func (s *Snapshot) Node(id string) (*Node, bool) {
	n, ok := s.Nodes[id]
	return n, ok
}

// Root returns the root node.
func (s *Snapshot) Root() *Node {
	return s.Nodes[s.RootID]
}

// PathToRoot returns the chain from the given node up to the root, focused
// node first. Returns an error on a broken parent link or a parent cycle.
func (s *Snapshot) PathToRoot(id string) ([]*Node, error) {
	var chain []*Node
	seen := make(map[string]bool)
	cur, ok := s.Nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not in workspace: %s", id)
	}
	for cur != nil {
		if seen[cur.ID] {
			return nil, fmt.Errorf("parent cycle at node %s", cur.ID)
		}
		seen[cur.ID] = true
		chain = append(chain, cur)
		if cur.ParentID == "" {
			break
		}
		next, ok := s.Nodes[cur.ParentID]
		if !ok {
			return nil, fmt.Errorf("node %s has missing parent %s", cur.ID, cur.ParentID)
		}
		cur = next
	}
	return chain, nil
}

// IsAncestor reports whether anc is a (transitive) ancestor of id.
func (s *Snapshot) IsAncestor(anc, id string) bool {
	cur, ok := s.Nodes[id]
	if !ok {
		return false
	}
	for cur.ParentID != "" {
		if cur.ParentID == anc {
			return true
		}
		next, ok := s.Nodes[cur.ParentID]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// Siblings returns the ids of the node's siblings (same parent, excluding the
// node itself), in creation order.
func (s *Snapshot) Siblings(id string) []string {
	n, ok := s.Nodes[id]
	if !ok || n.ParentID == "" {
		return nil
	}
	parent, ok := s.Nodes[n.ParentID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(parent.Children))
	for _, c := range parent.Children {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// IsTerminal reports whether the status is terminal for the kind: a state the
// node cannot leave without an explicit reopen or retry.
func IsTerminal(kind NodeKind, st NodeStatus) bool {
	switch st {
	case StatusCompleted, StatusCancelled:
		return true
	case StatusFailed:
		return kind == KindExecution
	}
	return false
}

// IsTerminalSuccess reports whether the status is the terminal-success state.
func IsTerminalSuccess(st NodeStatus) bool {
	return st == StatusCompleted
}

// Settled reports whether a child counts as settled for planning completion:
// completed or cancelled. Failed execution children are outstanding until
// retried or cancelled.
func Settled(st NodeStatus) bool {
	return st == StatusCompleted || st == StatusCancelled
}

// AppendLog appends an event to the node's log and stamps UpdatedAt.
func (n *Node) AppendLog(at time.Time, actor Actor, event string) {
	n.Log = append(n.Log, LogEntry{At: at, Actor: actor, Event: event})
	n.UpdatedAt = at
}

// AppendLog appends an event to the workspace-level log.
func (s *Snapshot) AppendLog(at time.Time, actor Actor, event string) {
	s.Log = append(s.Log, LogEntry{At: at, Actor: actor, Event: event})
	s.UpdatedAt = at
}

// RootAdjacent reports whether the node's events should be mirrored into the
// workspace log: the root itself or a direct child of the root.
func (s *Snapshot) RootAdjacent(id string) bool {
	n, ok := s.Nodes[id]
	if !ok {
		return false
	}
	return n.ID == s.RootID || n.ParentID == s.RootID
}

// ValidStatus reports whether st belongs to the kind's state set.
func ValidStatus(kind NodeKind, st NodeStatus) bool {
	switch kind {
	case KindPlanning:
		switch st {
		case StatusPending, StatusPlanning, StatusMonitoring, StatusCompleted, StatusCancelled:
			return true
		}
	case KindExecution:
		switch st {
		case StatusPending, StatusImplementing, StatusValidating, StatusCompleted, StatusFailed, StatusCancelled:
			return true
		}
	}
	return false
}

// Validate performs structural validation of the persisted record. A snapshot
// that fails validation is corrupt: the engine refuses to operate on it.
func (s *Snapshot) Validate() error {
	if s.WorkspaceID == "" {
		return fmt.Errorf("workspace id missing")
	}
	if s.RulesFingerprint != Fingerprint(s.Rules) {
		return fmt.Errorf("rules fingerprint does not match rule list")
	}
	root, ok := s.Nodes[s.RootID]
	if !ok {
		return fmt.Errorf("root node %s missing", s.RootID)
	}
	if root.ParentID != "" {
		return fmt.Errorf("root node %s has a parent", root.ID)
	}
	if s.CurrentFocus != "" {
		if _, ok := s.Nodes[s.CurrentFocus]; !ok {
			return fmt.Errorf("focus points at missing node %s", s.CurrentFocus)
		}
	}
	for id, n := range s.Nodes {
		if id != n.ID {
			return fmt.Errorf("node key %s does not match id %s", id, n.ID)
		}
		if n.ID != s.RootID && n.ParentID == "" {
			return fmt.Errorf("second root: node %s has no parent", n.ID)
		}
		if n.Kind != KindPlanning && n.Kind != KindExecution {
			return fmt.Errorf("node %s has unknown kind %q", n.ID, n.Kind)
		}
		if !ValidStatus(n.Kind, n.Status) {
			return fmt.Errorf("node %s (%s) has illegal status %q", n.ID, n.Kind, n.Status)
		}
		if len(n.Children) > 0 && n.Kind != KindPlanning {
			return fmt.Errorf("execution node %s has children", n.ID)
		}
		if n.ParentID != "" {
			parent, ok := s.Nodes[n.ParentID]
			if !ok {
				return fmt.Errorf("node %s has missing parent %s", n.ID, n.ParentID)
			}
			if !containsID(parent.Children, n.ID) {
				return fmt.Errorf("node %s missing from parent %s child list", n.ID, n.ParentID)
			}
		}
		for _, c := range n.Children {
			child, ok := s.Nodes[c]
			if !ok {
				return fmt.Errorf("node %s lists missing child %s", n.ID, c)
			}
			if child.ParentID != n.ID {
				return fmt.Errorf("child %s of %s claims parent %s", c, n.ID, child.ParentID)
			}
		}
		if strings.TrimSpace(n.Conclusion) != "" && !IsTerminal(n.Kind, n.Status) {
			return fmt.Errorf("node %s has a conclusion in non-terminal state %s", n.ID, n.Status)
		}
	}
	// Parent links must form a tree rooted at RootID.
	for id := range s.Nodes {
		if _, err := s.PathToRoot(id); err != nil {
			return err
		}
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
