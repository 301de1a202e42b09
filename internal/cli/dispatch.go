package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

func newDispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Coordinate external workers over git branches",
	}
	cmd.AddCommand(newDispatchEnableCmd())
	cmd.AddCommand(newDispatchDisableCmd())
	cmd.AddCommand(newDispatchNodeCmd())
	cmd.AddCommand(newDispatchCompleteCmd())
	return cmd
}

func newDispatchEnableCmd() *cobra.Command {
	var wsID, mode, repoDir string
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Enable dispatch mode (git mode isolates work on a branch)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.DispatchEnable(cmd.Context(), wsID, graph.DispatchMode(mode), repoDir); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dispatch enabled (%s)\n", mode)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&mode, "mode", "git", "Dispatch mode: git or none")
	cmd.Flags().StringVar(&repoDir, "repo", "", "Git repository path (required for git mode)")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newDispatchDisableCmd() *cobra.Command {
	var wsID, strategy string
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Disable dispatch mode; in git mode a merge strategy must be chosen",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			res, err := eng.DispatchDisable(cmd.Context(), wsID, strategy)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(res.Strategies) > 0 {
				_, _ = fmt.Fprintln(out, "Choose a merge strategy with --strategy:")
				_, _ = fmt.Fprintln(out, "  "+strings.Join(res.Strategies, ", "))
				return nil
			}
			if res.Merged {
				_, _ = fmt.Fprintf(out, "Dispatch disabled; branch merged (%s)\n", res.Strategy)
			} else {
				_, _ = fmt.Fprintln(out, "Dispatch disabled")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Merge strategy: sequential, squash, cherry-pick, or skip")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newDispatchNodeCmd() *cobra.Command {
	var wsID, nodeID string
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Hand an execution node to an external worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			n, err := eng.DispatchNode(cmd.Context(), wsID, nodeID, graph.ActorHuman)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dispatched node %s (start marker %s)\n", n.NodeID, n.Dispatch.StartMarker)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Execution node ID")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func newDispatchCompleteCmd() *cobra.Command {
	var wsID, nodeID, conclusion string
	var failed bool
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Report the result of a dispatched node",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			out, err := eng.DispatchComplete(cmd.Context(), wsID, nodeID, !failed, conclusion, graph.ActorHuman)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Node %s is now %s\n", out.NodeID, out.Status)
			if out.NextAction != "" {
				_, _ = fmt.Fprintf(w, "Next: %s (%s)\n", out.NextAction, out.NextNodeID)
			}
			if out.ManualRecovery {
				_, _ = fmt.Fprintln(w, "No version control backing; the working tree was NOT rolled back. Recover manually.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Execution node ID")
	cmd.Flags().StringVar(&conclusion, "conclusion", "", "Result summary")
	cmd.Flags().BoolVar(&failed, "failed", false, "Report failure instead of success")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}
