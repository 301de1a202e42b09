package cli

import (
	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
)

func newContextCmd() *cobra.Command {
	var wsID, nodeID string
	var includeLog, newestFirst bool
	var logLimit int

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble the working context for a node (default: current focus)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			view, err := eng.Context(cmd.Context(), wsID, nodeID, engine.ContextOptions{
				IncludeLog:     includeLog,
				LogLimit:       logLimit,
				LogNewestFirst: newestFirst,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID (default: workspace focus)")
	cmd.Flags().BoolVar(&includeLog, "log", false, "Include node logs in the ancestor chain")
	cmd.Flags().IntVar(&logLimit, "log-limit", 0, "Keep only the newest N log entries per node (0 = all)")
	cmd.Flags().BoolVar(&newestFirst, "newest-first", false, "Order log entries newest first")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}
