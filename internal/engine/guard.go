package engine

import (
	"strings"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

// The concurrency guard is advisory validation at the start of an operation,
// not a lock: the engine serializes writers per workspace (see
// Engine.withWorkspace), so the guard only needs to check-then-act.

// checkSiblingExclusivity rejects starting an execution node while any sibling
// execution node is already active. Concurrency across different parents is
// deliberately allowed.
func checkSiblingExclusivity(s *graph.Snapshot, n *graph.Node) *Error {
	for _, sid := range s.Siblings(n.ID) {
		sib, ok := s.Node(sid)
		if !ok || sib.Kind != graph.KindExecution {
			continue
		}
		if sib.Status == graph.StatusImplementing || sib.Status == graph.StatusValidating {
			return PreconditionFailed("sibling %s is %s; finish it before starting %s", sib.ID, sib.Status, n.ID)
		}
	}
	return nil
}

// checkRulesFingerprint rejects structural mutations made against stale rules.
// The caller supplies its last-observed fingerprint; a mismatch forces a
// re-fetch instead of silently applying stale assumptions. A system actor may
// bypass only when the engine was built with the explicit escape hatch.
func checkRulesFingerprint(s *graph.Snapshot, supplied string, actor graph.Actor, allowSystemBypass bool) *Error {
	if actor == graph.ActorSystem && allowSystemBypass {
		return nil
	}
	if strings.TrimSpace(supplied) == "" {
		return PreconditionFailed("rules fingerprint required for structural changes; fetch workspace rules first")
	}
	if supplied != s.RulesFingerprint {
		return PreconditionFailed("rules fingerprint is stale; re-fetch workspace rules before mutating structure")
	}
	return nil
}
