package version

import (
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/encapsia/encapsia-cli/internal/flags/enum"
)

const (
	FlagFormat          = "format"
	FlagFormatShortHand = "f"
	FormatText          = "text"
	FormatJSON          = "json"
)

// BuildVersion can be set at build time to override the version reported
// by the go module build info:
//
//	-ldflags "-X github.com/encapsia/encapsia-cli/cmd/version.BuildVersion=1.2.3"
var BuildVersion = "n/a"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "version",
		Short:   "Retrieve the build version of the Encapsia CLI",
		Example: fmt.Sprintf(`encapsia version --%s %s`, FlagFormat, FormatJSON),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := enum.Get(cmd.Flags(), FlagFormat)
			if err != nil {
				return err
			}
			info, ok := debug.ReadBuildInfo()
			if !ok {
				return fmt.Errorf("no build info available")
			}
			ver := info.Main.Version
			if BuildVersion != "n/a" {
				ver = BuildVersion
			}
			switch format {
			case FormatJSON:
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"version": ver,
					"go":      info.GoVersion,
				})
			default:
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "encapsia %s (%s)\n", ver, info.GoVersion)
				return err
			}
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	enum.VarP(cmd.Flags(), FlagFormat, FlagFormatShortHand, []string{FormatText, FormatJSON}, "output format of the version information")
	return cmd
}
