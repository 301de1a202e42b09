package engine

import (
	"strings"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

// The reference ledger manages the lifecycle of named links from a node to
// other nodes or external documents. Expire/activate keep context inclusion
// reversible and auditable; remove is permanent cleanup.

// AddReferenceInput describes one new reference. Exactly one of TargetNode or
// TargetPath must be set.
type AddReferenceInput struct {
	NodeID      string
	TargetNode  string
	TargetPath  string
	Description string
}

// addReference creates a reference with status active. Duplicates of the same
// (source, target) pair are rejected regardless of status. Node targets must
// exist; document paths are not verified against the filesystem.
func addReference(s *graph.Snapshot, in AddReferenceInput, now time.Time) (*graph.Reference, error) {
	n, ok := s.Node(in.NodeID)
	if !ok {
		return nil, NotFound("node not found: %s", in.NodeID)
	}
	kind := graph.RefDocument
	target := strings.TrimSpace(in.TargetPath)
	if in.TargetNode != "" {
		if in.TargetPath != "" {
			return nil, PreconditionFailed("reference target must be a node or a document path, not both")
		}
		if _, ok := s.Node(in.TargetNode); !ok {
			return nil, NotFound("reference target node not found: %s", in.TargetNode)
		}
		kind = graph.RefNode
		target = in.TargetNode
	}
	if target == "" {
		return nil, PreconditionFailed("reference target required")
	}
	for i := range n.References {
		if n.References[i].Target() == target {
			return nil, PreconditionFailed("node %s already references %s", n.ID, target)
		}
	}
	ref := graph.Reference{
		RefID:       graph.NewID(),
		Kind:        kind,
		Description: in.Description,
		Status:      graph.RefActive,
		CreatedAt:   now,
	}
	if kind == graph.RefNode {
		ref.TargetNode = target
	} else {
		ref.TargetPath = target
	}
	n.References = append(n.References, ref)
	n.UpdatedAt = now
	return &n.References[len(n.References)-1], nil
}

// findReference locates a reference on the node by target string.
func findReference(n *graph.Node, target string) int {
	for i := range n.References {
		if n.References[i].Target() == target {
			return i
		}
	}
	return -1
}

// removeReference hard-deletes a reference. A later activate on the same pair
// fails with not-found.
func removeReference(s *graph.Snapshot, nodeID, target string, now time.Time) error {
	n, ok := s.Node(nodeID)
	if !ok {
		return NotFound("node not found: %s", nodeID)
	}
	i := findReference(n, target)
	if i < 0 {
		return NotFound("node %s has no reference to %s", nodeID, target)
	}
	n.References = append(n.References[:i], n.References[i+1:]...)
	n.UpdatedAt = now
	return nil
}

// expireReference marks a reference expired without deleting it; expired
// references drop out of assembled context but stay in storage for audit.
func expireReference(s *graph.Snapshot, nodeID, target string, now time.Time) error {
	n, ok := s.Node(nodeID)
	if !ok {
		return NotFound("node not found: %s", nodeID)
	}
	i := findReference(n, target)
	if i < 0 {
		return NotFound("node %s has no reference to %s", nodeID, target)
	}
	n.References[i].Status = graph.RefExpired
	n.UpdatedAt = now
	return nil
}

// activateReference reactivates an expired reference; it fails when no
// matching expired reference exists.
func activateReference(s *graph.Snapshot, nodeID, target string, now time.Time) error {
	n, ok := s.Node(nodeID)
	if !ok {
		return NotFound("node not found: %s", nodeID)
	}
	i := findReference(n, target)
	if i < 0 {
		return NotFound("node %s has no reference to %s", nodeID, target)
	}
	if n.References[i].Status != graph.RefExpired {
		return PreconditionFailed("reference to %s is not expired", target)
	}
	n.References[i].Status = graph.RefActive
	n.UpdatedAt = now
	return nil
}
