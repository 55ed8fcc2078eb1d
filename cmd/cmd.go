package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins"
	"github.com/encapsia/encapsia-cli/cmd/version"
	"github.com/encapsia/encapsia-cli/internal/flags/log"
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main() and only needs to happen
// once.
func Execute() {
	if err := New().Execute(); err != nil {
		os.Exit(1)
	}
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encapsia [sub-command]",
		Short: "Command line client for an Encapsia server",
		Long: `The Encapsia command line client manages plugins on an Encapsia server:
  inspecting what is installed, planning and applying installations from a
  local artifact store or S3, and exporting the installed state.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: setupLogging,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().String(encapsiacmd.HostFlag, "",
		`Encapsia host: a label from ~/.encapsia/credentials.toml, or a URL used
together with the ENCAPSIA_TOKEN environment variable. Defaults to ENCAPSIA_HOST.`)
	log.RegisterLoggingFlags(cmd.PersistentFlags())

	cmd.AddCommand(plugins.New())
	cmd.AddCommand(version.New())
	return cmd
}

// setupLogging installs the flag-configured logger as the process default
// so every package logs through the same handler.
func setupLogging(cmd *cobra.Command, _ []string) error {
	logger, err := log.GetBaseLogger(cmd)
	if err != nil {
		return fmt.Errorf("could not retrieve logger: %w", err)
	}
	slog.SetDefault(logger)

	// inherit IO from parent if exists
	if parent := cmd.Parent(); parent != nil {
		cmd.SetOut(parent.OutOrStdout())
		cmd.SetErr(parent.ErrOrStderr())
	}
	return nil
}
