package add

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/spf13/cobra"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/cmd/plugins/shared"
	"github.com/encapsia/encapsia-cli/internal/plugininfo"
	"github.com/encapsia/encapsia-cli/internal/s3store"
	"github.com/encapsia/encapsia-cli/internal/store"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <path|url|spec>...",
		Short: "Fetch plugin artifacts into the local store.",
		Long: `Fetch plugin artifacts into the local store without installing them.

Each argument is a local artifact path, an http(s) URL ending in an
artifact filename, or a plugin spec resolved against the buckets given
with --s3-bucket (downloading the latest match).`,
		Example: `  # Cache a locally built artifact
  encapsia plugins add ./plugin-launch-1.5.0.tar.gz

  # Cache the newest 1.x launch from S3
  encapsia plugins add launch-1 --s3-bucket ice-plugins`,
		Args:              cobra.MinimumNArgs(1),
		RunE:              run,
		DisableAutoGenTag: true,
	}
	cmd.Flags().StringSlice(encapsiacmd.S3BucketFlag, nil, "S3 bucket (or bucket/prefix) of plugin artifacts; repeatable")
	cmd.Flags().Bool(encapsiacmd.ForceFlag, false, "fetch even when the artifact is already in the store")
	return cmd
}

// s3Catalog lazily lists the configured buckets, at most once per run.
type s3Catalog struct {
	buckets   []string
	listed    bool
	available plugininfo.Infos
	client    *s3store.Client
}

func (c *s3Catalog) get(ctx context.Context) (plugininfo.Infos, *s3store.Client, error) {
	if c.listed {
		return c.available, c.client, nil
	}
	if len(c.buckets) == 0 {
		return plugininfo.Infos{}, nil, fmt.Errorf("spec arguments need at least one --%s", encapsiacmd.S3BucketFlag)
	}
	available, client, err := shared.AvailableFromS3(ctx, c.buckets)
	if err != nil {
		return plugininfo.Infos{}, nil, err
	}
	c.available, c.client, c.listed = available, client, true
	return c.available, c.client, nil
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
	buckets, err := cmd.Flags().GetStringSlice(encapsiacmd.S3BucketFlag)
	if err != nil {
		return fmt.Errorf("getting s3-bucket flag failed: %w", err)
	}
	catalog := &s3Catalog{buckets: buckets}

	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://"):
			err = addFromURL(cmd, st, arg, force)
		case plugininfo.LooksLikePluginFile(arg):
			err = addFromFile(cmd, st, arg)
		default:
			err = addFromS3(cmd, st, catalog, arg, force)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func addFromFile(cmd *cobra.Command, st *store.Store, src string) error {
	info, err := st.Add(src)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", info.Filename())
	return nil
}

func addFromURL(cmd *cobra.Command, st *store.Store, rawURL string, force bool) error {
	info, err := plugininfo.NewFromFilename(path.Base(rawURL))
	if err != nil {
		return fmt.Errorf("URL %q does not end in a plugin artifact filename: %w", rawURL, err)
	}
	if st.Has(info) && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "Found: %s (skipping)\n", info.Filename())
		return nil
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("fetching %s failed: %w", rawURL, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s failed: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s failed with status %d", rawURL, resp.StatusCode)
	}

	if err := st.WriteTo(info, resp.Body); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", info.Filename())
	return nil
}

func addFromS3(cmd *cobra.Command, st *store.Store, catalog *s3Catalog, specString string, force bool) error {
	spec, err := plugininfo.ParseSpec(specString)
	if err != nil {
		return err
	}
	available, client, err := catalog.get(cmd.Context())
	if err != nil {
		return err
	}
	candidate := available.LatestMatching(spec)
	if candidate == nil {
		return fmt.Errorf("no plugin matching %s found in S3", spec)
	}
	if st.Has(candidate) && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "Found: %s (skipping)\n", candidate.Filename())
		return nil
	}
	if err := client.Download(cmd.Context(), candidate.S3Bucket(), candidate.S3Name(), st.Path(candidate)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", candidate.Filename())
	return nil
}
