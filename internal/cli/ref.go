package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
)

func newRefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ref",
		Short: "Manage node references (cross-node links and document links)",
	}
	cmd.AddCommand(newRefAddCmd())
	cmd.AddCommand(newRefRemoveCmd())
	cmd.AddCommand(newRefExpireCmd())
	cmd.AddCommand(newRefActivateCmd())
	return cmd
}

func newRefAddCmd() *cobra.Command {
	var wsID, nodeID, targetNode, targetPath, description string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a reference from a node to another node or a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			ref, err := eng.AddReference(cmd.Context(), wsID, engine.AddReferenceInput{
				NodeID:      nodeID,
				TargetNode:  targetNode,
				TargetPath:  targetPath,
				Description: description,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, ref)
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Owning node ID")
	cmd.Flags().StringVar(&targetNode, "target-node", "", "Target node ID (node reference)")
	cmd.Flags().StringVar(&targetPath, "target-path", "", "Target document path (document reference)")
	cmd.Flags().StringVar(&description, "description", "", "Why this reference matters")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func refLifecycleCmd(use, short, verb string, apply func(*cobra.Command, string, string, string) error) *cobra.Command {
	var wsID, nodeID, target string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apply(cmd, wsID, nodeID, target); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Reference %s %s\n", target, verb)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Owning node ID")
	cmd.Flags().StringVar(&target, "target", "", "Target node ID or document path")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newRefRemoveCmd() *cobra.Command {
	return refLifecycleCmd("remove", "Remove a reference permanently", "removed",
		func(cmd *cobra.Command, wsID, nodeID, target string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()
			return eng.RemoveReference(cmd.Context(), wsID, nodeID, target)
		})
}

func newRefExpireCmd() *cobra.Command {
	return refLifecycleCmd("expire", "Mark a reference expired (kept, excluded from context)", "expired",
		func(cmd *cobra.Command, wsID, nodeID, target string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()
			return eng.ExpireReference(cmd.Context(), wsID, nodeID, target)
		})
}

func newRefActivateCmd() *cobra.Command {
	return refLifecycleCmd("activate", "Reactivate an expired reference", "activated",
		func(cmd *cobra.Command, wsID, nodeID, target string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()
			return eng.ActivateReference(cmd.Context(), wsID, nodeID, target)
		})
}
