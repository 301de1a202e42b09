// Package identity resolves who is driving the engine: a human operator
// detected from git config, saved under <home>/operators/. The actor recorded
// on log entries comes from here when the CLI runs interactively.
package identity

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operator holds a human identity (name, email) for log attribution.
type Operator struct {
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Source string `yaml:"source,omitempty"` // e.g. "git"
}

// DetectFromGit runs `git config user.name` and `git config user.email` (in
// repoDir, or global if repoDir is empty). A failed lookup leaves that field
// empty.
func DetectFromGit(repoDir string) (Operator, error) {
	var op Operator
	op.Source = "git"
	if name, err := gitConfig(repoDir, "user.name"); err == nil {
		op.Name = strings.TrimSpace(name)
	}
	if email, err := gitConfig(repoDir, "user.email"); err == nil {
		op.Email = strings.TrimSpace(email)
	}
	return op, nil
}

func gitConfig(repoDir, key string) (string, error) {
	cmd := exec.Command("git", "config", "--get", key)
	if repoDir != "" {
		cmd.Dir = repoDir
	}
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// OperatorsDir returns <home>/operators/.
func OperatorsDir(home string) string {
	return filepath.Join(home, "operators")
}

// OperatorPath returns <home>/operators/<username>.yaml. Username is
// sanitized for the filesystem (spaces to underscores, lowercased).
func OperatorPath(home, username string) string {
	safe := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(username), " ", "_"))
	if safe == "" {
		safe = "default"
	}
	return filepath.Join(OperatorsDir(home), safe+".yaml")
}

// LoadOperator loads an operator from <home>/operators/<username>.yaml.
// A missing file yields (nil, nil).
func LoadOperator(home, username string) (*Operator, error) {
	data, err := os.ReadFile(OperatorPath(home, username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var op Operator
	if err := yaml.Unmarshal(data, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// SaveOperator writes the operator to <home>/operators/<username>.yaml.
func SaveOperator(home, username string, op *Operator) error {
	if err := os.MkdirAll(OperatorsDir(home), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(op)
	if err != nil {
		return err
	}
	return os.WriteFile(OperatorPath(home, username), data, 0o644)
}

// DetectAndSave runs DetectFromGit and saves the result. Username is derived
// from the name, or the email local part, falling back to "default".
func DetectAndSave(home, repoDir string) (*Operator, error) {
	op, err := DetectFromGit(repoDir)
	if err != nil {
		return nil, err
	}
	username := op.Name
	if username == "" {
		if idx := strings.Index(op.Email, "@"); idx > 0 {
			username = op.Email[:idx]
		}
	}
	if username == "" {
		username = "default"
	}
	if err := SaveOperator(home, username, &op); err != nil {
		return nil, err
	}
	return &op, nil
}
