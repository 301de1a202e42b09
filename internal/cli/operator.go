package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/config"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/identity"
)

func newOperatorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage the human operator identity (attached to human log entries)",
	}
	cmd.AddCommand(newOperatorDetectCmd())
	return cmd
}

func newOperatorDetectCmd() *cobra.Command {
	var repoDir string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect identity from git config and save it under operators/",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			op, err := identity.DetectAndSave(home, repoDir)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Detected: %s <%s>\n", op.Name, op.Email)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", identity.OperatorPath(home, op.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&repoDir, "repo", "", "Git repo path (default: global git config)")
	return cmd
}
