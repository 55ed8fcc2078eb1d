package build

import (
	"fmt"

	"github.com/spf13/cobra"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins/shared"
	"github.com/encapsia/encapsia-cli/internal/store"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <source-dir>...",
		Short: "Package plugin source directories into artifacts.",
		Long: `Package plugin source directories into tar.gz artifacts in the local store.

Each directory must contain a plugin.toml manifest naming the plugin and
its version. A source tree whose artifact is already cached is skipped
unless --force is given.`,
		Example: `  # Build one plugin from source
  encapsia plugins build ./launch

  # Rebuild even when the artifact is already cached
  encapsia plugins build ./launch --force`,
		Args:              cobra.MinimumNArgs(1),
		RunE:              run,
		DisableAutoGenTag: true,
	}
	cmd.Flags().Bool(encapsiacmd.ForceFlag, false, "rebuild even when the artifact is already in the store")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	st, err := shared.Store(cmd)
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool(encapsiacmd.ForceFlag)
	if err != nil {
		return fmt.Errorf("getting force flag failed: %w", err)
	}

	for _, srcDir := range args {
		manifest, err := store.ReadManifestFromDir(srcDir)
		if err != nil {
			return err
		}
		if st.Has(manifest.Info()) && !force {
			fmt.Fprintf(cmd.OutOrStdout(), "Found: %s (skipping)\n", manifest.Info().Filename())
			continue
		}
		info, err := st.BuildFromSource(srcDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", info.Filename())
	}
	return nil
}
