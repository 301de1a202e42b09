package engine

import (
	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

// ContextOptions control whether node logs are included and how they are
// paginated and ordered. Titles, requirements, notes, and documents are always
// collected for every retained node.
type ContextOptions struct {
	IncludeLog     bool
	LogLimit       int  // keep the newest N entries per node; <= 0 keeps all
	LogNewestFirst bool // default order is newest-last
}

// assembleContext builds the filtered view a worker receives when focused on a
// node: the ancestor chain (root-to-focused, truncated at an isolated
// ancestor), the focused node's active cross-references expanded into the same
// shape, and terminal direct-child outcomes in creation order.
func assembleContext(s *graph.Snapshot, focusID string, opts ContextOptions) (*models.ContextView, error) {
	focus, ok := s.Node(focusID)
	if !ok {
		return nil, NotFound("node not found: %s", focusID)
	}

	chain, err := s.PathToRoot(focusID)
	if err != nil {
		return nil, Corruption("broken ancestor chain for %s: %v", focusID, err)
	}

	// Isolation cutoff: an isolated node on the path (other than the focused
	// node itself) severs everything above it. The isolated node stays in.
	cut := len(chain)
	for i := 1; i < len(chain); i++ {
		if chain[i].Isolated {
			cut = i + 1
			break
		}
	}
	chain = chain[:cut]

	// chain is focused-first; the view is always root-to-focused.
	view := &models.ContextView{
		WorkspaceSummary: workspaceSummary(s),
		AncestorChain:    make([]models.ContextEntry, 0, len(chain)),
		CrossReferences:  []models.ContextEntry{},
		ChildOutcomes:    []models.ChildOutcome{},
	}
	for i := len(chain) - 1; i >= 0; i-- {
		view.AncestorChain = append(view.AncestorChain, contextEntry(chain[i], opts))
	}

	for i := range focus.References {
		ref := &focus.References[i]
		if ref.Status != graph.RefActive {
			continue // expired references are omitted but retained for audit
		}
		switch ref.Kind {
		case graph.RefNode:
			target, ok := s.Node(ref.TargetNode)
			if !ok {
				continue
			}
			entry := contextEntry(target, opts)
			entry.Description = ref.Description
			view.CrossReferences = append(view.CrossReferences, entry)
		case graph.RefDocument:
			view.CrossReferences = append(view.CrossReferences, models.ContextEntry{
				Documents:   []string{ref.TargetPath},
				Description: ref.Description,
			})
		}
	}

	// Child outcomes ("bubbling"): a planning node sees what each terminal
	// child produced without walking the whole subtree.
	for _, cid := range focus.Children {
		child, ok := s.Node(cid)
		if !ok {
			continue
		}
		if !graph.IsTerminal(child.Kind, child.Status) {
			continue
		}
		view.ChildOutcomes = append(view.ChildOutcomes, models.ChildOutcome{
			NodeID:     child.ID,
			Title:      child.Title,
			Status:     string(child.Status),
			Conclusion: child.Conclusion,
		})
	}

	return view, nil
}

func contextEntry(n *graph.Node, opts ContextOptions) models.ContextEntry {
	e := models.ContextEntry{
		NodeID:      n.ID,
		Title:       n.Title,
		Status:      string(n.Status),
		Requirement: n.Requirement,
		Note:        n.Note,
	}
	for i := range n.References {
		ref := &n.References[i]
		if ref.Status == graph.RefActive && ref.Kind == graph.RefDocument {
			e.Documents = append(e.Documents, ref.TargetPath)
		}
	}
	if opts.IncludeLog {
		e.Log = tailLog(n.Log, opts.LogLimit, opts.LogNewestFirst)
	}
	return e
}

// tailLog applies tail-first truncation: when a limit is set the newest N
// entries are kept, preserving recency over completeness. The requested
// presentation order is applied afterwards, independent of truncation.
func tailLog(log []graph.LogEntry, limit int, newestFirst bool) []models.LogEntry {
	if len(log) == 0 {
		return nil
	}
	start := 0
	if limit > 0 && len(log) > limit {
		start = len(log) - limit
	}
	kept := log[start:]
	out := make([]models.LogEntry, 0, len(kept))
	if newestFirst {
		for i := len(kept) - 1; i >= 0; i-- {
			out = append(out, logEntry(kept[i]))
		}
	} else {
		for _, le := range kept {
			out = append(out, logEntry(le))
		}
	}
	return out
}

func logEntry(le graph.LogEntry) models.LogEntry {
	return models.LogEntry{At: le.At, Actor: string(le.Actor), Event: le.Event}
}

func workspaceSummary(s *graph.Snapshot) models.Workspace {
	w := models.Workspace{
		WorkspaceID:  s.WorkspaceID,
		Name:         s.Name,
		Goal:         s.Goal,
		Status:       string(s.Status),
		Rules:        append([]string(nil), s.Rules...),
		RulesDigest:  s.RulesFingerprint,
		Documents:    append([]string(nil), s.Documents...),
		CurrentFocus: s.CurrentFocus,
		RootID:       s.RootID,
		NodeCount:    len(s.Nodes),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Dispatch != nil {
		w.DispatchMode = string(s.Dispatch.Mode)
	}
	return w
}
