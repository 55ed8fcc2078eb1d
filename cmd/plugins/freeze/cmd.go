package freeze

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/encapsia/encapsia-cli/cmd/plugins/shared"
	"github.com/encapsia/encapsia-cli/internal/plugininfo"
	"github.com/encapsia/encapsia-cli/internal/store"
)

const OutFlag = "out"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freeze",
		Short: "Export the installed plugins as a TOML version file.",
		Long: `Export the currently installed plugins as a TOML version file suitable
for feeding back into "plugins install --versions", pinning every plugin
to its exact installed version.`,
		Example: `  encapsia plugins freeze > versions.toml`,
		Args:              cobra.NoArgs,
		RunE:              run,
		DisableAutoGenTag: true,
	}
	cmd.Flags().String(OutFlag, "", "write the version file here instead of stdout")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	client, err := shared.Client(cmd)
	if err != nil {
		return err
	}
	installed, err := shared.Installed(cmd.Context(), client)
	if err != nil {
		return fmt.Errorf("fetching installed plugins failed: %w", err)
	}

	specs := plugininfo.SpecsFromInfos(plugininfo.NewInfos(installed.Sorted()...))

	out, err := cmd.Flags().GetString(OutFlag)
	if err != nil {
		return fmt.Errorf("getting out flag failed: %w", err)
	}
	if out != "" {
		return store.WriteVersionFileTo(out, specs)
	}
	return store.WriteVersionFile(cmd.OutOrStdout(), specs)
}
