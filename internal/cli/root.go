package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tanmika/TanmiWorkspace-sub001/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	var homeOverride string

	cmd := &cobra.Command{
		Use:          "tanmiws",
		Short:        "Tanmi Workspace: hierarchical task graphs for humans and automated workers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithHome(cmd.Context(), home))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override Tanmi Workspace home directory (default: ~/.tanmiws, env: TANMIWS_HOME)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newApikeyCmd())
	cmd.AddCommand(newOperatorCmd())

	cmd.AddCommand(newWorkspaceCmd())
	cmd.AddCommand(newNodeCmd())
	cmd.AddCommand(newRefCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newDispatchCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
