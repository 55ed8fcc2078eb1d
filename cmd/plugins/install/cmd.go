package install

import (
	"fmt"

	"github.com/spf13/cobra"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins/shared"
	"github.com/encapsia/encapsia-cli/internal/flags/file"
	"github.com/encapsia/encapsia-cli/internal/plan"
	"github.com/encapsia/encapsia-cli/internal/plugininfo"
	"github.com/encapsia/encapsia-cli/internal/store"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [spec|path]...",
		Short: "Plan and apply plugin installations.",
		Long: `Install plugins of particular versions.

Each argument is either a plugin spec string (for example "launch",
"launch-1.5", "launch-variant-demo-1.5" or "launch-ANY") or the path to a
plugin artifact file, which is copied into the local store first. A TOML
version file given with --versions contributes further specs.

Every spec must resolve to an artifact in the local store or, when
--s3-bucket is given, in S3. The resulting plan is shown for confirmation
before anything touches the server.`,
		Example: `  # Install the latest cached 1.x of launch
  encapsia plugins install launch-1

  # Install exactly what a version file describes, fetching from S3 as needed
  encapsia plugins install --versions versions.toml --s3-bucket ice-plugins --yes`,
		RunE:              run,
		DisableAutoGenTag: true,
	}

	file.Var(cmd.Flags(), encapsiacmd.VersionsFlag, "", "TOML version file naming desired plugins and versions")
	cmd.Flags().StringSlice(encapsiacmd.S3BucketFlag, nil, "S3 bucket (or bucket/prefix) of plugin artifacts; repeatable")
	cmd.Flags().Bool(encapsiacmd.AllowDowngradeFlag, false, "downgrade plugins when the candidate is older than the installed version")
	cmd.Flags().Bool(encapsiacmd.ReinstallFlag, false, "reinstall plugins already at the candidate version")
	cmd.Flags().Bool(encapsiacmd.IncludePrereleasesFlag, false, "let pre-release versions win candidate resolution")
	cmd.Flags().Bool(encapsiacmd.YesFlag, false, "apply the plan without asking for confirmation")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := shared.Store(cmd)
	if err != nil {
		return err
	}
	specs, err := gatherSpecs(cmd, st, args)
	if err != nil {
		return err
	}
	if specs.Len() == 0 {
		return fmt.Errorf("nothing to install: give plugin specs, artifact paths or --%s", encapsiacmd.VersionsFlag)
	}

	client, err := shared.Client(cmd)
	if err != nil {
		return err
	}
	installed, err := shared.Installed(ctx, client)
	if err != nil {
		return fmt.Errorf("fetching installed plugins failed: %w", err)
	}

	buckets, err := cmd.Flags().GetStringSlice(encapsiacmd.S3BucketFlag)
	if err != nil {
		return fmt.Errorf("getting s3-bucket flag failed: %w", err)
	}
	available, s3, err := shared.AvailableFromS3(ctx, buckets)
	if err != nil {
		return err
	}

	opts, err := planOptions(cmd)
	if err != nil {
		return err
	}
	p, err := plan.Build(specs, installed, st.Scan(), available, opts)
	if err != nil {
		return err
	}

	if err := p.Render(cmd.OutOrStdout()); err != nil {
		return err
	}
	if len(p.Pending()) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do.")
		return nil
	}
	ok, err := shared.Confirm(cmd, "Apply this plan?")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
		return nil
	}
	return shared.ExecutePlan(ctx, cmd, client, st, s3, p)
}

// gatherSpecs merges the argument specs (spec strings or artifact paths)
// with the optional version file.
func gatherSpecs(cmd *cobra.Command, st *store.Store, args []string) (plugininfo.Specs, error) {
	var specs []plugininfo.Spec
	for _, arg := range args {
		if plugininfo.LooksLikePluginFile(arg) {
			info, err := st.Add(arg)
			if err != nil {
				return plugininfo.Specs{}, err
			}
			specs = append(specs, plugininfo.NewSpecFromInfo(info))
			continue
		}
		spec, err := plugininfo.ParseSpec(arg)
		if err != nil {
			return plugininfo.Specs{}, err
		}
		specs = append(specs, spec)
	}

	versions, err := file.Get(cmd.Flags(), encapsiacmd.VersionsFlag)
	if err != nil {
		return plugininfo.Specs{}, err
	}
	if versions.String() != "" {
		if !versions.Exists() {
			return plugininfo.Specs{}, fmt.Errorf("version file %q does not exist", versions.String())
		}
		fromFile, err := store.ReadVersionFile(versions.String())
		if err != nil {
			return plugininfo.Specs{}, err
		}
		specs = append(specs, fromFile.All()...)
	}
	return plugininfo.NewSpecs(specs...), nil
}

func planOptions(cmd *cobra.Command) (plan.Options, error) {
	var opts plan.Options
	var err error
	if opts.AllowDowngrade, err = cmd.Flags().GetBool(encapsiacmd.AllowDowngradeFlag); err != nil {
		return opts, fmt.Errorf("getting allow-downgrade flag failed: %w", err)
	}
	if opts.AllowReinstall, err = cmd.Flags().GetBool(encapsiacmd.ReinstallFlag); err != nil {
		return opts, fmt.Errorf("getting reinstall flag failed: %w", err)
	}
	if opts.IncludePrereleases, err = cmd.Flags().GetBool(encapsiacmd.IncludePrereleasesFlag); err != nil {
		return opts, fmt.Errorf("getting include-prereleases flag failed: %w", err)
	}
	return opts, nil
}
