package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

// Action is a requested node state transition.
type Action string

const (
	ActionStart    Action = "start"
	ActionVerify   Action = "verify"
	ActionComplete Action = "complete"
	ActionFail     Action = "fail"
	ActionCancel   Action = "cancel"
	ActionRetry    Action = "retry"
	ActionReopen   Action = "reopen"
)

// TransitionInput carries one transition request. Conclusion doubles as the
// failure/cancellation reason; complete, fail, and cancel reject an empty one.
type TransitionInput struct {
	NodeID     string
	Action     Action
	Conclusion string
	Actor      graph.Actor
}

// applyTransition runs one state transition on the snapshot, including guard
// checks for transitions that activate an execution node, the parent cascade,
// and log appends. Callers hold the workspace lock.
func applyTransition(s *graph.Snapshot, in TransitionInput, now time.Time) (*graph.Node, error) {
	n, ok := s.Node(in.NodeID)
	if !ok {
		return nil, NotFound("node not found: %s", in.NodeID)
	}
	actor := in.Actor
	if actor == "" {
		actor = graph.ActorAutomated
	}

	var err error
	switch n.Kind {
	case graph.KindExecution:
		err = applyExecution(s, n, in, now)
	case graph.KindPlanning:
		err = applyPlanning(s, n, in, now)
	default:
		err = Corruption("node %s has unknown kind %q", n.ID, n.Kind)
	}
	if err != nil {
		return nil, err
	}

	logTransition(s, n, in, actor, now)
	return n, nil
}

func applyExecution(s *graph.Snapshot, n *graph.Node, in TransitionInput, now time.Time) error {
	switch in.Action {
	case ActionStart:
		if n.Status != graph.StatusPending {
			return InvalidTransition("cannot start execution node %s from %s", n.ID, n.Status)
		}
		if err := checkSiblingExclusivity(s, n); err != nil {
			return err
		}
		n.Status = graph.StatusImplementing
		cascadeActiveChild(s, n, now)

	case ActionVerify:
		if n.Status != graph.StatusImplementing {
			return InvalidTransition("cannot verify execution node %s from %s", n.ID, n.Status)
		}
		n.Status = graph.StatusValidating

	case ActionComplete:
		if n.Status != graph.StatusImplementing && n.Status != graph.StatusValidating {
			return InvalidTransition("cannot complete execution node %s from %s", n.ID, n.Status)
		}
		if err := requireConclusion(in, "complete"); err != nil {
			return err
		}
		n.Status = graph.StatusCompleted
		n.Conclusion = in.Conclusion

	case ActionFail:
		if n.Status != graph.StatusImplementing && n.Status != graph.StatusValidating {
			return InvalidTransition("cannot fail execution node %s from %s", n.ID, n.Status)
		}
		if err := requireConclusion(in, "fail"); err != nil {
			return err
		}
		n.Status = graph.StatusFailed
		n.Conclusion = in.Conclusion

	case ActionCancel:
		switch n.Status {
		case graph.StatusPending, graph.StatusImplementing, graph.StatusValidating, graph.StatusFailed:
		default:
			return InvalidTransition("cannot cancel execution node %s from %s", n.ID, n.Status)
		}
		if err := requireConclusion(in, "cancel"); err != nil {
			return err
		}
		n.Status = graph.StatusCancelled
		n.Conclusion = in.Conclusion

	case ActionRetry:
		if n.Status != graph.StatusFailed {
			return InvalidTransition("cannot retry execution node %s from %s", n.ID, n.Status)
		}
		if err := checkSiblingExclusivity(s, n); err != nil {
			return err
		}
		archiveConclusion(n, now)
		n.Status = graph.StatusImplementing
		cascadeActiveChild(s, n, now)

	case ActionReopen:
		if n.Status != graph.StatusCompleted && n.Status != graph.StatusCancelled {
			return InvalidTransition("cannot reopen execution node %s from %s", n.ID, n.Status)
		}
		if err := checkSiblingExclusivity(s, n); err != nil {
			return err
		}
		archiveConclusion(n, now)
		n.Status = graph.StatusImplementing
		cascadeActiveChild(s, n, now)

	default:
		return InvalidTransition("unknown action %q", in.Action)
	}
	n.UpdatedAt = now
	return nil
}

func applyPlanning(s *graph.Snapshot, n *graph.Node, in TransitionInput, now time.Time) error {
	switch in.Action {
	case ActionStart:
		if n.Status != graph.StatusPending {
			return InvalidTransition("cannot start planning node %s from %s", n.ID, n.Status)
		}
		n.Status = graph.StatusPlanning
		// Monitoring fires the instant the first child exists.
		if len(n.Children) > 0 {
			n.Status = graph.StatusMonitoring
		}

	case ActionComplete:
		if n.Status != graph.StatusMonitoring {
			return InvalidTransition("cannot complete planning node %s from %s", n.ID, n.Status)
		}
		if err := requireConclusion(in, "complete"); err != nil {
			return err
		}
		if outstanding := outstandingChildren(s, n); len(outstanding) > 0 {
			return PreconditionFailed("planning node %s has outstanding children: %s", n.ID, strings.Join(outstanding, ", "))
		}
		n.Status = graph.StatusCompleted
		n.Conclusion = in.Conclusion

	case ActionCancel:
		switch n.Status {
		case graph.StatusPending, graph.StatusPlanning, graph.StatusMonitoring:
		default:
			return InvalidTransition("cannot cancel planning node %s from %s", n.ID, n.Status)
		}
		if err := requireConclusion(in, "cancel"); err != nil {
			return err
		}
		n.Status = graph.StatusCancelled
		n.Conclusion = in.Conclusion

	case ActionReopen:
		// Cancellation is recoverable for planning nodes.
		if n.Status != graph.StatusCompleted && n.Status != graph.StatusCancelled {
			return InvalidTransition("cannot reopen planning node %s from %s", n.ID, n.Status)
		}
		archiveConclusion(n, now)
		n.Status = graph.StatusPlanning
		if len(n.Children) > 0 {
			n.Status = graph.StatusMonitoring
		}

	case ActionVerify, ActionFail, ActionRetry:
		return InvalidTransition("action %q does not apply to planning nodes", in.Action)

	default:
		return InvalidTransition("unknown action %q", in.Action)
	}
	n.UpdatedAt = now
	return nil
}

// requireConclusion rejects empty or whitespace-only conclusions. Absence is a
// validation failure, never a silent no-op.
func requireConclusion(in TransitionInput, action string) error {
	if strings.TrimSpace(in.Conclusion) == "" {
		return PreconditionFailed("%s requires a non-empty conclusion", action)
	}
	return nil
}

// outstandingChildren returns the ids of children that block planning
// completion: anything not completed or cancelled, including failed ones.
func outstandingChildren(s *graph.Snapshot, n *graph.Node) []string {
	var out []string
	for _, c := range n.Children {
		child, ok := s.Node(c)
		if !ok {
			continue
		}
		if !graph.Settled(child.Status) {
			out = append(out, child.ID)
		}
	}
	return out
}

// archiveConclusion moves the active conclusion into the structured history
// list before a reopen/retry clears it. Nothing is ever discarded.
func archiveConclusion(n *graph.Node, now time.Time) {
	if strings.TrimSpace(n.Conclusion) == "" {
		return
	}
	n.PriorConclusions = append(n.PriorConclusions, graph.ConclusionRecord{
		Text:       n.Conclusion,
		ArchivedAt: now,
	})
	n.Conclusion = ""
}

// cascadeActiveChild is the post-transition hook that keeps the ancestor chain
// coherent: when an execution node becomes active, every pending ancestor
// planning node is advanced to monitoring so no active child sits under a
// dormant parent.
func cascadeActiveChild(s *graph.Snapshot, n *graph.Node, now time.Time) {
	cur := n
	for cur.ParentID != "" {
		parent, ok := s.Node(cur.ParentID)
		if !ok {
			return
		}
		if parent.Kind == graph.KindPlanning && parent.Status == graph.StatusPending {
			parent.Status = graph.StatusMonitoring
			parent.AppendLog(now, graph.ActorSystem, fmt.Sprintf("advanced to monitoring: child %s became active", n.ID))
		}
		cur = parent
	}
}

// advanceParentOnChildCreated is the hook run after node creation: the first
// child moves a planning parent from planning to monitoring automatically.
func advanceParentOnChildCreated(s *graph.Snapshot, parent *graph.Node, now time.Time) {
	if parent.Kind == graph.KindPlanning && parent.Status == graph.StatusPlanning {
		parent.Status = graph.StatusMonitoring
		parent.AppendLog(now, graph.ActorSystem, "advanced to monitoring: first child created")
	}
}

func logTransition(s *graph.Snapshot, n *graph.Node, in TransitionInput, actor graph.Actor, now time.Time) {
	event := fmt.Sprintf("%s -> %s", in.Action, n.Status)
	if strings.TrimSpace(in.Conclusion) != "" {
		event += ": " + in.Conclusion
	}
	n.AppendLog(now, actor, event)
	if s.RootAdjacent(n.ID) {
		s.AppendLog(now, actor, fmt.Sprintf("node %s %s", n.ID, event))
	}
}
