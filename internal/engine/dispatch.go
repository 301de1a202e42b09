package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

// VersionControl is the engine's boundary to the external version-control
// process. Calls are synchronous and fallible; any error is surfaced as a
// dispatch failure, never swallowed. internal/git implements this with the
// git binary.
type VersionControl interface {
	CurrentRevision(ctx context.Context, dir string) (string, error)
	IsDirty(ctx context.Context, dir string) (bool, error)
	CreateBranch(ctx context.Context, dir, name string) error
	Commit(ctx context.Context, dir, message string) error
	ResetHard(ctx context.Context, dir, revision string) error
	Merge(ctx context.Context, dir, strategy, branch, base string) error
	DeleteBranch(ctx context.Context, dir, name string) error
}

// MergeStrategies are the choices offered when git-mode dispatch is turned
// off. The coordinator never picks one automatically: the resulting history
// is irreversible, so the caller must choose.
var MergeStrategies = []string{
	models.MergeSequential,
	models.MergeSquash,
	models.MergeCherryPick,
	models.MergeSkip,
}

func validMergeStrategy(s string) bool {
	for _, m := range MergeStrategies {
		if s == m {
			return true
		}
	}
	return false
}

const branchTimeFormat = "20060102-150405"

// dispatchEnable turns dispatch mode on for the workspace. In git mode it
// creates an isolated branch, first parking dirty work on a timestamped
// backup branch.
func dispatchEnable(ctx context.Context, vcs VersionControl, s *graph.Snapshot, mode graph.DispatchMode, repoDir string, now time.Time) error {
	if s.Dispatch != nil {
		return PreconditionFailed("dispatch mode already enabled (%s)", s.Dispatch.Mode)
	}
	switch mode {
	case graph.DispatchNone:
		s.Dispatch = &graph.DispatchConfig{Mode: graph.DispatchNone, EnabledAt: now}
	case graph.DispatchGit:
		if repoDir == "" {
			return PreconditionFailed("git dispatch mode requires a repository directory")
		}
		if vcs == nil {
			return PreconditionFailed("engine has no version-control backend")
		}
		rev, err := vcs.CurrentRevision(ctx, repoDir)
		if err != nil {
			return ExternalFailure("read current revision: %v", err)
		}
		cfg := &graph.DispatchConfig{
			Mode:         graph.DispatchGit,
			RepoDir:      repoDir,
			Branch:       fmt.Sprintf("tanmiws/dispatch/%s", now.UTC().Format(branchTimeFormat)),
			BaseRevision: rev,
			EnabledAt:    now,
		}
		dirty, err := vcs.IsDirty(ctx, repoDir)
		if err != nil {
			return ExternalFailure("check working tree: %v", err)
		}
		if dirty {
			cfg.BackupBranch = fmt.Sprintf("tanmiws/backup/%s", now.UTC().Format(branchTimeFormat))
			if err := vcs.CreateBranch(ctx, repoDir, cfg.BackupBranch); err != nil {
				return ExternalFailure("create backup branch: %v", err)
			}
			if err := vcs.Commit(ctx, repoDir, "tanmiws: park dirty tree before dispatch"); err != nil {
				return ExternalFailure("commit backup: %v", err)
			}
		}
		if err := vcs.CreateBranch(ctx, repoDir, cfg.Branch); err != nil {
			return ExternalFailure("create dispatch branch: %v", err)
		}
		s.Dispatch = cfg
	default:
		return PreconditionFailed("unknown dispatch mode %q", mode)
	}
	s.AppendLog(now, graph.ActorSystem, fmt.Sprintf("dispatch enabled (%s)", mode))
	s.UpdatedAt = now
	return nil
}

// dispatchDisable turns dispatch mode off. In git mode the caller must choose
// a merge strategy; with none supplied the available options are returned and
// nothing changes. Node dispatch records are cleared once disable succeeds.
func dispatchDisable(ctx context.Context, vcs VersionControl, s *graph.Snapshot, strategy string, now time.Time) (*models.DispatchDisable, error) {
	cfg := s.Dispatch
	if cfg == nil {
		return nil, PreconditionFailed("dispatch mode is not enabled")
	}
	if cfg.Mode == graph.DispatchNone {
		clearDispatch(s, now)
		return &models.DispatchDisable{Merged: false}, nil
	}

	if strategy == "" {
		return &models.DispatchDisable{Strategies: append([]string(nil), MergeStrategies...)}, nil
	}
	if !validMergeStrategy(strategy) {
		return nil, PreconditionFailed("unknown merge strategy %q; choose one of %s", strategy, strings.Join(MergeStrategies, ", "))
	}
	merged := false
	if strategy != models.MergeSkip {
		if vcs == nil {
			return nil, PreconditionFailed("engine has no version-control backend")
		}
		if err := vcs.Merge(ctx, cfg.RepoDir, strategy, cfg.Branch, cfg.BaseRevision); err != nil {
			return nil, ExternalFailure("merge dispatch branch (%s): %v", strategy, err)
		}
		merged = true
	}
	dispatchCleanup(ctx, vcs, cfg)
	clearDispatch(s, now)
	return &models.DispatchDisable{Merged: merged, Strategy: strategy}, nil
}

// dispatchCleanup removes dispatch branches. It is a no-op without a git
// config and safe to call unconditionally; branch deletion failures are not
// fatal once the merge decision has been applied.
func dispatchCleanup(ctx context.Context, vcs VersionControl, cfg *graph.DispatchConfig) {
	if cfg == nil || cfg.Mode != graph.DispatchGit || vcs == nil {
		return
	}
	if cfg.Branch != "" {
		_ = vcs.DeleteBranch(ctx, cfg.RepoDir, cfg.Branch)
	}
}

func clearDispatch(s *graph.Snapshot, now time.Time) {
	for _, n := range s.Nodes {
		n.Dispatch = nil
	}
	s.Dispatch = nil
	s.AppendLog(now, graph.ActorSystem, "dispatch disabled")
	s.UpdatedAt = now
}

// dispatchNode hands an execution node to an external worker: captures the
// start marker (revision id in git mode, timestamp otherwise) and starts the
// node if it was pending.
func dispatchNode(ctx context.Context, vcs VersionControl, s *graph.Snapshot, nodeID string, actor graph.Actor, now time.Time) (*graph.Node, error) {
	cfg := s.Dispatch
	if cfg == nil {
		return nil, PreconditionFailed("dispatch mode is not enabled")
	}
	n, ok := s.Node(nodeID)
	if !ok {
		return nil, NotFound("node not found: %s", nodeID)
	}
	if n.Kind != graph.KindExecution {
		return nil, PreconditionFailed("only execution nodes can be dispatched")
	}

	marker := now.UTC().Format(time.RFC3339)
	if cfg.Mode == graph.DispatchGit {
		if vcs == nil {
			return nil, PreconditionFailed("engine has no version-control backend")
		}
		rev, err := vcs.CurrentRevision(ctx, cfg.RepoDir)
		if err != nil {
			return nil, ExternalFailure("read current revision: %v", err)
		}
		marker = rev
	}

	if n.Status == graph.StatusPending {
		if _, err := applyTransition(s, TransitionInput{NodeID: nodeID, Action: ActionStart, Actor: actor}, now); err != nil {
			return nil, err
		}
	} else if n.Status != graph.StatusImplementing {
		return nil, InvalidTransition("cannot dispatch node %s from %s", n.ID, n.Status)
	}

	n.Dispatch = &graph.DispatchRecord{StartMarker: marker, Status: graph.DispatchExecuting}
	n.AppendLog(now, actor, fmt.Sprintf("dispatched to worker (start marker %s)", marker))
	return n, nil
}

// dispatchComplete finishes a dispatch cycle. On success the end marker is
// recorded and the next action proposed: hand off to a paired verification
// sibling when one exists, otherwise return to the parent. On failure, git
// mode rolls the repository back to the start marker; without git no rollback
// is possible and the caller is told manual recovery is required.
func dispatchComplete(ctx context.Context, vcs VersionControl, s *graph.Snapshot, nodeID string, success bool, conclusion string, actor graph.Actor, now time.Time) (*models.DispatchOutcome, error) {
	cfg := s.Dispatch
	if cfg == nil {
		return nil, PreconditionFailed("dispatch mode is not enabled")
	}
	n, ok := s.Node(nodeID)
	if !ok {
		return nil, NotFound("node not found: %s", nodeID)
	}
	rec := n.Dispatch
	if rec == nil {
		return nil, PreconditionFailed("node %s has not been dispatched", nodeID)
	}

	if success {
		marker := now.UTC().Format(time.RFC3339)
		if cfg.Mode == graph.DispatchGit {
			if vcs == nil {
				return nil, PreconditionFailed("engine has no version-control backend")
			}
			rev, err := vcs.CurrentRevision(ctx, cfg.RepoDir)
			if err != nil {
				return nil, ExternalFailure("read current revision: %v", err)
			}
			marker = rev
		}
		if strings.TrimSpace(conclusion) != "" {
			if _, err := applyTransition(s, TransitionInput{NodeID: nodeID, Action: ActionComplete, Conclusion: conclusion, Actor: actor}, now); err != nil {
				return nil, err
			}
		}
		rec.EndMarker = marker
		rec.Status = graph.DispatchPassed
		n.AppendLog(now, actor, fmt.Sprintf("dispatch succeeded (end marker %s)", marker))

		out := &models.DispatchOutcome{NodeID: n.ID, Status: string(n.Status), EndMarker: marker}
		if v := pairedVerificationNode(s, n); v != nil {
			out.NextAction = "handoff_validation"
			out.NextNodeID = v.ID
		} else {
			out.NextAction = "return_to_parent"
			out.NextNodeID = n.ParentID
		}
		return out, nil
	}

	reason := strings.TrimSpace(conclusion)
	if reason == "" {
		reason = "dispatched work reported failure"
	}
	out := &models.DispatchOutcome{NodeID: n.ID}
	if cfg.Mode == graph.DispatchGit {
		if vcs == nil {
			return nil, PreconditionFailed("engine has no version-control backend")
		}
		// Discard the failed attempt before marking the node failed. A failed
		// reset is surfaced as-is: the node state must not claim a rollback
		// that did not happen.
		if err := vcs.ResetHard(ctx, cfg.RepoDir, rec.StartMarker); err != nil {
			return nil, ExternalFailure("reset to start marker %s: %v", rec.StartMarker, err)
		}
	} else {
		out.ManualRecovery = true
	}
	if _, err := applyTransition(s, TransitionInput{NodeID: nodeID, Action: ActionFail, Conclusion: reason, Actor: actor}, now); err != nil {
		return nil, err
	}
	rec.Status = graph.DispatchFailed
	n.AppendLog(now, actor, "dispatch failed: "+reason)
	out.Status = string(n.Status)
	return out, nil
}

// pairedVerificationNode finds a non-terminal sibling tagged as validation,
// in creation order.
func pairedVerificationNode(s *graph.Snapshot, n *graph.Node) *graph.Node {
	for _, sid := range s.Siblings(n.ID) {
		sib, ok := s.Node(sid)
		if !ok {
			continue
		}
		if sib.Role == graph.RoleValidation && !graph.IsTerminal(sib.Kind, sib.Status) {
			return sib
		}
	}
	return nil
}
