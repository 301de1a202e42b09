// Package models provides shared types for the Tanmi Workspace HTTP API and external tools.
// These types mirror the API JSON and are stable for use by tool integrations and other consumers.
package models

import "time"

// Workspace is a top-level task container (rules, documents, and the node tree).
type Workspace struct {
	WorkspaceID  string    `json:"workspace_id"`
	Name         string    `json:"name"`
	Goal         string    `json:"goal,omitempty"`
	Status       string    `json:"status"`
	Rules        []string  `json:"rules,omitempty"`
	RulesDigest  string    `json:"rules_digest,omitempty"`
	Documents    []string  `json:"documents,omitempty"`
	CurrentFocus string    `json:"current_focus,omitempty"`
	RootID       string    `json:"root_id,omitempty"`
	NodeCount    int       `json:"node_count,omitempty"`
	DispatchMode string    `json:"dispatch_mode,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Node is a task unit: a planning node (decomposes work) or an execution node (leaf).
type Node struct {
	NodeID      string      `json:"node_id"`
	Kind        string      `json:"kind"`
	Status      string      `json:"status"`
	Role        string      `json:"role,omitempty"`
	ParentID    string      `json:"parent_id,omitempty"`
	Children    []string    `json:"children,omitempty"`
	Isolated    bool        `json:"isolated,omitempty"`
	Title       string      `json:"title"`
	Requirement string      `json:"requirement,omitempty"`
	Note        string      `json:"note,omitempty"`
	Conclusion  string      `json:"conclusion,omitempty"`
	References  []Reference `json:"references,omitempty"`
	Dispatch    *Dispatch   `json:"dispatch,omitempty"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at,omitempty"`
}

// Reference is a typed, lifecycle-managed edge from a node to another node or an external document.
type Reference struct {
	RefID       string    `json:"ref_id"`
	Kind        string    `json:"kind"`
	TargetNode  string    `json:"target_node,omitempty"`
	TargetPath  string    `json:"target_path,omitempty"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Dispatch is the per-node dispatch record (markers and worker status).
type Dispatch struct {
	StartMarker string `json:"start_marker,omitempty"`
	EndMarker   string `json:"end_marker,omitempty"`
	Status      string `json:"status"`
}

// LogEntry is one append-only log event on a node or workspace.
type LogEntry struct {
	At    time.Time `json:"at"`
	Actor string    `json:"actor"`
	Event string    `json:"event"`
}

// ContextEntry is one summarized node inside an assembled context
// (an ancestor-chain entry or an expanded cross-reference).
type ContextEntry struct {
	NodeID      string     `json:"node_id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Requirement string     `json:"requirement,omitempty"`
	Note        string     `json:"note,omitempty"`
	Documents   []string   `json:"documents,omitempty"`
	Description string     `json:"description,omitempty"`
	Log         []LogEntry `json:"log,omitempty"`
}

// ChildOutcome is a terminal child's conclusion surfaced flatly into its parent's context.
type ChildOutcome struct {
	NodeID     string `json:"node_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion,omitempty"`
}

// ContextView is the filtered view a worker receives when focused on a node.
type ContextView struct {
	WorkspaceSummary Workspace      `json:"workspace_summary"`
	AncestorChain    []ContextEntry `json:"ancestor_chain"`
	CrossReferences  []ContextEntry `json:"cross_references"`
	ChildOutcomes    []ChildOutcome `json:"child_outcomes"`
}

// Failure is the typed error payload returned by the API and tool surface.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DispatchDisable is the response to turning dispatch mode off. When the caller
// has not chosen a merge strategy yet, Strategies lists the available choices
// and nothing has been merged.
type DispatchDisable struct {
	Merged     bool     `json:"merged"`
	Strategy   string   `json:"strategy,omitempty"`
	Strategies []string `json:"strategies,omitempty"`
}

// DispatchOutcome is the response to completing a dispatched node.
type DispatchOutcome struct {
	NodeID         string `json:"node_id"`
	Status         string `json:"status"`
	EndMarker      string `json:"end_marker,omitempty"`
	NextAction     string `json:"next_action,omitempty"`
	NextNodeID     string `json:"next_node_id,omitempty"`
	ManualRecovery bool   `json:"manual_recovery,omitempty"`
}

// ChangeEvent is published on the SSE stream after every successful mutation.
type ChangeEvent struct {
	Type        string `json:"type"`
	WorkspaceID string `json:"workspace_id"`
	NodeID      string `json:"node_id,omitempty"`
	Change      string `json:"change"`
}
