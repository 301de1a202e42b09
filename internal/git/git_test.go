package git

import (
	"context"
	"strings"
	"testing"
)

func TestMergeCommands(t *testing.T) {
	cmds, err := mergeCommands("sequential", "tanmiws/dispatch/x", "abc123")
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	if len(cmds) != 2 || cmds[1][0] != "merge" {
		t.Fatalf("sequential commands: %v", cmds)
	}

	cmds, err = mergeCommands("squash", "b", "")
	if err != nil {
		t.Fatalf("squash: %v", err)
	}
	if len(cmds) != 3 || cmds[2][0] != "commit" {
		t.Fatalf("squash commands: %v", cmds)
	}

	cmds, err = mergeCommands("cherry-pick", "b", "abc123")
	if err != nil {
		t.Fatalf("cherry-pick: %v", err)
	}
	if got := cmds[1][1]; got != "abc123..b" {
		t.Fatalf("cherry-pick range: %q", got)
	}
}

func TestMergeCommandsRejections(t *testing.T) {
	if _, err := mergeCommands("rebase", "b", ""); err == nil {
		t.Fatal("unknown strategy accepted")
	}
	if _, err := mergeCommands("sequential", "", ""); err == nil {
		t.Fatal("empty branch accepted")
	}
	if _, err := mergeCommands("cherry-pick", "b", ""); err == nil {
		t.Fatal("cherry-pick without base accepted")
	}
}

func TestRunRequiresDir(t *testing.T) {
	ctx := context.Background()
	if _, err := run(ctx, "", "status"); err == nil {
		t.Fatal("empty dir accepted")
	}
	c := New()
	if _, err := c.CurrentRevision(ctx, ""); err == nil {
		t.Fatal("CurrentRevision with empty dir accepted")
	}
	if err := c.ResetHard(ctx, "/tmp", ""); err == nil || !strings.Contains(err.Error(), "revision") {
		t.Fatalf("ResetHard without revision: %v", err)
	}
}

func TestDeleteBranchEmptyName(t *testing.T) {
	if err := New().DeleteBranch(context.Background(), "/tmp", ""); err != nil {
		t.Fatalf("DeleteBranch empty name: %v", err)
	}
}
