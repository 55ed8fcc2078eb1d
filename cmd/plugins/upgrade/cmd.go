package upgrade

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins/shared"
	"github.com/encapsia/encapsia-cli/internal/plan"
	"github.com/encapsia/encapsia-cli/internal/plugininfo"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Upgrade installed plugins to the latest available versions.",
		Long: `Upgrade every installed plugin to the latest version found in the local
store or, when --s3-bucket is given, in S3. Plugins with no newer version
are skipped. The plan is shown for confirmation first.`,
		Example: `  encapsia plugins upgrade --s3-bucket ice-plugins`,
		Args:              cobra.NoArgs,
		RunE:              run,
		DisableAutoGenTag: true,
	}

	cmd.Flags().StringSlice(encapsiacmd.S3BucketFlag, nil, "S3 bucket (or bucket/prefix) of plugin artifacts; repeatable")
	cmd.Flags().Bool(encapsiacmd.IncludePrereleasesFlag, false, "let pre-release versions win candidate resolution")
	cmd.Flags().Bool(encapsiacmd.YesFlag, false, "apply the plan without asking for confirmation")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	client, err := shared.Client(cmd)
	if err != nil {
		return err
	}
	installed, err := shared.Installed(ctx, client)
	if err != nil {
		return fmt.Errorf("fetching installed plugins failed: %w", err)
	}
	if installed.Len() == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plugins installed.")
		return nil
	}

	st, err := shared.Store(cmd)
	if err != nil {
		return err
	}
	buckets, err := cmd.Flags().GetStringSlice(encapsiacmd.S3BucketFlag)
	if err != nil {
		return fmt.Errorf("getting s3-bucket flag failed: %w", err)
	}
	available, s3, err := shared.AvailableFromS3(ctx, buckets)
	if err != nil {
		return err
	}
	includePrereleases, err := cmd.Flags().GetBool(encapsiacmd.IncludePrereleasesFlag)
	if err != nil {
		return fmt.Errorf("getting include-prereleases flag failed: %w", err)
	}

	// One open-ended spec per installed (name, variant): the planner then
	// resolves whatever the newest candidate is. Installed plugins with no
	// candidate anywhere are left alone rather than failing the plan. The
	// pre-check must see the same candidate sets the planner resolves
	// against, so it applies the same prerelease filter.
	local := st.Scan()
	candidateLocal, candidateAvailable := local, available
	if !includePrereleases {
		candidateLocal = candidateLocal.FilterOutPrereleases()
		candidateAvailable = candidateAvailable.FilterOutPrereleases()
	}
	var specs []plugininfo.Spec
	for _, info := range installed.FilterToLatest().Sorted() {
		spec := plugininfo.Spec{
			Name:    info.Name(),
			Variant: plugininfo.NamedVariant(info.Variant()),
		}
		if candidateLocal.LatestMatching(spec) == nil && candidateAvailable.LatestMatching(spec) == nil {
			slog.Debug("no candidate anywhere, leaving plugin alone",
				slog.String("plugin", info.NameAndVariant()))
			continue
		}
		specs = append(specs, spec)
	}

	p, err := plan.Build(plugininfo.NewSpecs(specs...), installed, local, available, plan.Options{
		IncludePrereleases: includePrereleases,
	})
	if err != nil {
		return err
	}

	if err := p.Render(cmd.OutOrStdout()); err != nil {
		return err
	}
	if len(p.Pending()) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "All plugins are up to date.")
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
