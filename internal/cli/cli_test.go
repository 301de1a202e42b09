package cli

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/tanmika/TanmiWorkspace-sub001/pkg/models"
)

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "doctor", "apikey", "operator", "workspace", "node", "ref", "context", "dispatch"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
}

func TestNewRootCmd_hasHomeFlag(t *testing.T) {
	root := NewRootCmd("")
	if root.PersistentFlags().Lookup("home") == nil {
		t.Fatal("expected --home persistent flag")
	}
}

func runCLI(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--home", home}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestWorkspaceLifecycleViaCLI(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "workspace", "create", "--name", "demo", "--goal", "ship it", "--rule", "tests pass")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	var ws models.Workspace
	if err := json.Unmarshal([]byte(out), &ws); err != nil {
		t.Fatalf("parse create output: %v\n%s", err, out)
	}
	if ws.WorkspaceID == "" || ws.RootID == "" {
		t.Fatalf("workspace: %+v", ws)
	}

	out, err = runCLI(t, home, "workspace", "list")
	if err != nil || !regexp.MustCompile(`demo`).MatchString(out) {
		t.Fatalf("list: %v\n%s", err, out)
	}

	out, err = runCLI(t, home, "node", "add",
		"--workspace", ws.WorkspaceID, "--parent", ws.RootID,
		"--title", "first step", "--rules-digest", ws.RulesDigest)
	if err != nil {
		t.Fatalf("node add: %v\n%s", err, out)
	}
	var n models.Node
	if err := json.Unmarshal([]byte(out), &n); err != nil {
		t.Fatalf("parse node output: %v\n%s", err, out)
	}

	out, err = runCLI(t, home, "node", "transition",
		"--workspace", ws.WorkspaceID, "--node", n.NodeID, "--action", "start")
	if err != nil || !regexp.MustCompile(`implementing`).MatchString(out) {
		t.Fatalf("transition: %v\n%s", err, out)
	}

	out, err = runCLI(t, home, "context", "--workspace", ws.WorkspaceID, "--node", n.NodeID)
	if err != nil {
		t.Fatalf("context: %v\n%s", err, out)
	}
	var view models.ContextView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("parse context output: %v\n%s", err, out)
	}
	if len(view.AncestorChain) != 2 {
		t.Fatalf("ancestor chain: %+v", view.AncestorChain)
	}
}

func TestNodeAddRequiresFreshDigest(t *testing.T) {
	home := t.TempDir()

	out, err := runCLI(t, home, "workspace", "create", "--name", "demo")
	if err != nil {
		t.Fatalf("create: %v\n%s", err, out)
	}
	var ws models.Workspace
	if err := json.Unmarshal([]byte(out), &ws); err != nil {
		t.Fatalf("parse: %v", err)
	}

	_, err = runCLI(t, home, "node", "add",
		"--workspace", ws.WorkspaceID, "--parent", ws.RootID,
		"--title", "step", "--rules-digest", "stale")
	if err == nil {
		t.Fatal("stale digest accepted")
	}
}

func TestApikeyGenerate(t *testing.T) {
	root := NewRootCmd("")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"apikey", "generate"})
	if err := root.Execute(); err != nil {
		t.Fatalf("apikey generate: %v", err)
	}
	out := buf.String()
	hexKey := regexp.MustCompile(`(?m)^  ([a-f0-9]{64})$`)
	if !hexKey.MatchString(out) {
		t.Errorf("output should contain a 64-char hex key on its own line; got:\n%s", out)
	}
	if !regexp.MustCompile(`TANMIWS_API_KEY`).MatchString(out) {
		t.Errorf("output should mention TANMIWS_API_KEY")
	}
}
