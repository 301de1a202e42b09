package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}
	cmd.AddCommand(newWorkspaceCreateCmd())
	cmd.AddCommand(newWorkspaceListCmd())
	cmd.AddCommand(newWorkspaceGetCmd())
	cmd.AddCommand(newWorkspaceArchiveCmd())
	cmd.AddCommand(newWorkspaceRestoreCmd())
	cmd.AddCommand(newWorkspaceDeleteCmd())
	cmd.AddCommand(newWorkspaceRulesCmd())
	cmd.AddCommand(newWorkspaceFocusCmd())
	return cmd
}

func newWorkspaceCreateCmd() *cobra.Command {
	var name, goal string
	var rules []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace with a root planning node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			ws, err := eng.CreateWorkspace(cmd.Context(), name, goal, rules)
			if err != nil {
				return err
			}
			return printJSON(cmd, ws)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Workspace name")
	cmd.Flags().StringVar(&goal, "goal", "", "Top-level goal (becomes the root node requirement)")
	cmd.Flags().StringSliceVar(&rules, "rule", nil, "Workspace rule (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newWorkspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			infos, err := eng.ListWorkspaces(cmd.Context())
			if err != nil {
				return err
			}
			for _, info := range infos {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d nodes\n",
					info.WorkspaceID, info.Name, info.Status, info.NodeCount)
			}
			return nil
		},
	}
}

func newWorkspaceGetCmd() *cobra.Command {
	var wsID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			ws, err := eng.GetWorkspace(cmd.Context(), wsID)
			if err != nil {
				return err
			}
			return printJSON(cmd, ws)
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newWorkspaceArchiveCmd() *cobra.Command {
	var wsID string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Archive a workspace (read-only until restored)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.ArchiveWorkspace(cmd.Context(), wsID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Archived workspace %s\n", wsID)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newWorkspaceRestoreCmd() *cobra.Command {
	var wsID string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore an archived workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.RestoreWorkspace(cmd.Context(), wsID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Restored workspace %s\n", wsID)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newWorkspaceDeleteCmd() *cobra.Command {
	var wsID string
	var force bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a workspace (archived, or --force for active)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.DeleteWorkspace(cmd.Context(), wsID, force); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted workspace %s\n", wsID)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().BoolVar(&force, "force", false, "Delete even if the workspace is active")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newWorkspaceRulesCmd() *cobra.Command {
	var wsID string
	var rules []string
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Replace the workspace rules (invalidates the previous rules digest)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			fp, err := eng.SetRules(cmd.Context(), wsID, rules)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rules updated; new digest: %s\n", fp)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringSliceVar(&rules, "rule", nil, "Workspace rule (repeatable)")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newWorkspaceFocusCmd() *cobra.Command {
	var wsID, nodeID string
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Set the workspace focus node",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.SetFocus(cmd.Context(), wsID, nodeID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Focus set to %s\n", nodeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}
