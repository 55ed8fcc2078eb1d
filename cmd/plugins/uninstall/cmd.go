package uninstall

import (
	"fmt"

	"github.com/spf13/cobra"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins/shared"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "uninstall <name>...",
		Short:             "Uninstall named plugins from the server.",
		Example:           `  encapsia plugins uninstall launch`,
		Args:              cobra.MinimumNArgs(1),
		RunE:              run,
		DisableAutoGenTag: true,
	}
	cmd.Flags().Bool(encapsiacmd.YesFlag, false, "uninstall without asking for confirmation")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := shared.Client(cmd)
	if err != nil {
		return err
	}

	ok, err := shared.Confirm(cmd, fmt.Sprintf("Uninstall %d plugin(s)?", len(args)))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}

	for _, name := range args {
		if _, err := client.RunTask(ctx, "pluginsmanager", "uninstall_plugin", map[string]string{"namespace": name}); err != nil {
			return fmt.Errorf("uninstalling %s failed: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: uninstalled\n", name)
	}
	return nil
}
