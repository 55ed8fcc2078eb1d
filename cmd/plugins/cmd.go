package plugins

import (
	"github.com/spf13/cobra"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins/add"
	"github.com/encapsia/encapsia-cli/cmd/plugins/build"
	"github.com/encapsia/encapsia-cli/cmd/plugins/freeze"
	"github.com/encapsia/encapsia-cli/cmd/plugins/install"
	"github.com/encapsia/encapsia-cli/cmd/plugins/status"
	"github.com/encapsia/encapsia-cli/cmd/plugins/uninstall"
	"github.com/encapsia/encapsia-cli/cmd/plugins/upgrade"
)

// New builds the `plugins` command group.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "plugins",
		Aliases: []string{"plugin"},
		Short:   "Manage plugins on an Encapsia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
	}

	cmd.PersistentFlags().String(encapsiacmd.PluginsDirFlag, "",
		"directory of the local plugin artifact store (default ~/.encapsia/plugins-cache)")

	cmd.AddCommand(status.New())
	cmd.AddCommand(install.New())
	cmd.AddCommand(upgrade.New())
	cmd.AddCommand(uninstall.New())
	cmd.AddCommand(freeze.New())
	cmd.AddCommand(add.New())
	cmd.AddCommand(build.New())
	return cmd
}
