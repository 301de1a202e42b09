package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/engine"
	"github.com/tanmika/TanmiWorkspace-sub001/internal/graph"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage nodes in a workspace",
	}
	cmd.AddCommand(newNodeAddCmd())
	cmd.AddCommand(newNodeGetCmd())
	cmd.AddCommand(newNodeUpdateCmd())
	cmd.AddCommand(newNodeMoveCmd())
	cmd.AddCommand(newNodeRemoveCmd())
	cmd.AddCommand(newNodeTransitionCmd())
	cmd.AddCommand(newNodeHistoryCmd())
	return cmd
}

func newNodeAddCmd() *cobra.Command {
	var wsID, parentID, kind, title, requirement, role, digest string
	var isolated bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a child node under a planning node",
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				return fmt.Errorf("--title is required")
			}
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			n, err := eng.AddNode(cmd.Context(), wsID, engine.AddNodeInput{
				ParentID:         parentID,
				Kind:             graph.NodeKind(kind),
				Title:            title,
				Requirement:      requirement,
				Role:             graph.Role(role),
				Isolated:         isolated,
				RulesFingerprint: digest,
				Actor:            graph.ActorHuman,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, n)
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&parentID, "parent", "", "Parent node ID")
	cmd.Flags().StringVar(&kind, "kind", "execution", "Node kind: planning or execution")
	cmd.Flags().StringVar(&title, "title", "", "Node title")
	cmd.Flags().StringVar(&requirement, "requirement", "", "What this node must accomplish")
	cmd.Flags().StringVar(&role, "role", "", "Optional role tag (e.g. validation)")
	cmd.Flags().BoolVar(&isolated, "isolated", false, "Cut ancestor context above this node")
	cmd.Flags().StringVar(&digest, "rules-digest", "", "Current workspace rules digest (structural change gate)")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("parent")
	return cmd
}

func newNodeGetCmd() *cobra.Command {
	var wsID, nodeID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one node",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			n, err := eng.GetNode(cmd.Context(), wsID, nodeID)
			if err != nil {
				return err
			}
			return printJSON(cmd, n)
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func newNodeUpdateCmd() *cobra.Command {
	var wsID, nodeID, title, requirement, note string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update node content (title, requirement, note)",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			in := engine.UpdateNodeInput{NodeID: nodeID, Actor: graph.ActorHuman}
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			if cmd.Flags().Changed("requirement") {
				in.Requirement = &requirement
			}
			if cmd.Flags().Changed("note") {
				in.Note = &note
			}
			n, err := eng.UpdateNode(cmd.Context(), wsID, in)
			if err != nil {
				return err
			}
			return printJSON(cmd, n)
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&requirement, "requirement", "", "New requirement")
	cmd.Flags().StringVar(&note, "note", "", "New note")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func newNodeMoveCmd() *cobra.Command {
	var wsID, nodeID, parentID, digest string
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a node under a new planning parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.MoveNode(cmd.Context(), wsID, nodeID, parentID, digest, graph.ActorHuman); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved node %s under %s\n", nodeID, parentID)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID")
	cmd.Flags().StringVar(&parentID, "parent", "", "New parent node ID")
	cmd.Flags().StringVar(&digest, "rules-digest", "", "Current workspace rules digest")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("parent")
	return cmd
}

func newNodeRemoveCmd() *cobra.Command {
	var wsID, nodeID, digest string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a node and its whole subtree",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			if err := eng.RemoveNode(cmd.Context(), wsID, nodeID, digest, graph.ActorHuman); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed node %s\n", nodeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID")
	cmd.Flags().StringVar(&digest, "rules-digest", "", "Current workspace rules digest")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func newNodeTransitionCmd() *cobra.Command {
	var wsID, nodeID, action, conclusion string
	cmd := &cobra.Command{
		Use:   "transition",
		Short: "Apply a lifecycle action (start, verify, complete, fail, cancel, retry, reopen)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if action == "" {
				return fmt.Errorf("--action is required")
			}
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			n, err := eng.Transition(cmd.Context(), wsID, engine.TransitionInput{
				NodeID:     nodeID,
				Action:     engine.Action(action),
				Conclusion: conclusion,
				Actor:      graph.ActorHuman,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Node %s is now %s\n", n.NodeID, n.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID")
	cmd.Flags().StringVar(&action, "action", "", "Lifecycle action")
	cmd.Flags().StringVar(&conclusion, "conclusion", "", "Conclusion text (required for complete, fail, cancel)")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func newNodeHistoryCmd() *cobra.Command {
	var wsID, nodeID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show a node's archived conclusions from prior attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, closer, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer closer()

			hist, err := eng.NodeHistory(cmd.Context(), wsID, nodeID)
			if err != nil {
				return err
			}
			return printJSON(cmd, hist)
		},
	}
	cmd.Flags().StringVar(&wsID, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&nodeID, "node", "", "Node ID")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}
