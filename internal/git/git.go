// Package git shells out to the git binary to implement the engine's
// version-control boundary. Every command surfaces combined output on
// failure; nothing is retried here.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Client implements engine.VersionControl with the git binary.
type Client struct{}

// New returns a git client.
func New() *Client {
	return &Client{}
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("repository directory required")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentRevision returns the revision id of HEAD.
func (c *Client) CurrentRevision(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "rev-parse", "HEAD")
}

// IsDirty reports whether the working tree has uncommitted changes,
// including untracked files.
func (c *Client) IsDirty(ctx context.Context, dir string) (bool, error) {
	out, err := run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// CreateBranch creates name at HEAD and checks it out.
func (c *Client) CreateBranch(ctx context.Context, dir, name string) error {
	_, err := run(ctx, dir, "checkout", "-b", name)
	return err
}

// Commit stages everything and commits. A tree with nothing to commit is not
// an error.
func (c *Client) Commit(ctx context.Context, dir, message string) error {
	if _, err := run(ctx, dir, "add", "-A"); err != nil {
		return err
	}
	if _, err := run(ctx, dir, "commit", "-m", message); err != nil {
		if strings.Contains(err.Error(), "nothing to commit") {
			return nil
		}
		return err
	}
	return nil
}

// ResetHard discards the working tree and index back to revision.
func (c *Client) ResetHard(ctx context.Context, dir, revision string) error {
	if revision == "" {
		return fmt.Errorf("reset revision required")
	}
	_, err := run(ctx, dir, "reset", "--hard", revision)
	return err
}

// Merge leaves the dispatch branch and applies it with the chosen strategy.
// The caller picks the strategy; this function never chooses one.
func (c *Client) Merge(ctx context.Context, dir, strategy, branch, base string) error {
	cmds, err := mergeCommands(strategy, branch, base)
	if err != nil {
		return err
	}
	for _, argv := range cmds {
		if _, err := run(ctx, dir, argv...); err != nil {
			return err
		}
	}
	return nil
}

// DeleteBranch force-deletes a local branch.
func (c *Client) DeleteBranch(ctx context.Context, dir, name string) error {
	if name == "" {
		return nil
	}
	_, err := run(ctx, dir, "branch", "-D", name)
	return err
}

// mergeCommands maps a merge strategy to the git command sequence that
// applies branch onto the pre-dispatch line of history. "checkout -" returns
// to the branch that was current when the dispatch branch was created.
func mergeCommands(strategy, branch, base string) ([][]string, error) {
	if branch == "" {
		return nil, fmt.Errorf("dispatch branch name required")
	}
	switch strategy {
	case "sequential":
		return [][]string{
			{"checkout", "-"},
			{"merge", "--no-ff", "-m", "merge dispatch branch " + branch, branch},
		}, nil
	case "squash":
		return [][]string{
			{"checkout", "-"},
			{"merge", "--squash", branch},
			{"commit", "-m", "squash dispatch branch " + branch},
		}, nil
	case "cherry-pick":
		if base == "" {
			return nil, fmt.Errorf("cherry-pick needs the base revision")
		}
		return [][]string{
			{"checkout", "-"},
			{"cherry-pick", base + ".." + branch},
		}, nil
	}
	return nil, fmt.Errorf("unknown merge strategy %q", strategy)
}
