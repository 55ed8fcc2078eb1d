// Package shared holds the plumbing common to the plugin subcommands:
// resolving the remote client and local store from flags, collecting the
// available S3 artifacts, confirmation prompts and plan execution.
package shared

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	encapsiacmd "github.com/encapsia/encapsia-cli/cmd/internal/cmd"
	"github.com/encapsia/encapsia-cli/internal/credentials"
	"github.com/encapsia/encapsia-cli/internal/encapsia"
	"github.com/encapsia/encapsia-cli/internal/plan"
	"github.com/encapsia/encapsia-cli/internal/plugininfo"
	"github.com/encapsia/encapsia-cli/internal/s3store"
	"github.com/encapsia/encapsia-cli/internal/store"
)

// Client resolves credentials from the --host flag (or environment) and
// returns a connected API client.
func Client(cmd *cobra.Command) (*encapsia.Client, error) {
	host, err := cmd.Flags().GetString(encapsiacmd.HostFlag)
	if err != nil {
		return nil, fmt.Errorf("getting host flag failed: %w", err)
	}
	creds, err := credentials.Discover(host)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved credentials", slog.String("url", creds.URL), slog.String("label", creds.Label))
	return encapsia.New(creds.URL, creds.Token), nil
}

// Store opens the local artifact store named by the --plugins-dir flag.
func Store(cmd *cobra.Command) (*store.Store, error) {
	dir, err := cmd.Flags().GetString(encapsiacmd.PluginsDirFlag)
	if err != nil {
		return nil, fmt.Errorf("getting plugins-dir flag failed: %w", err)
	}
	return store.Open(dir)
}

// Installed fetches and validates the installed-plugin catalog. Bad
// catalog entries are reported but do not fail the call.
func Installed(ctx context.Context, client *encapsia.Client) (plugininfo.Infos, error) {
	entries, err := client.InstalledPlugins(ctx)
	if err != nil {
		return plugininfo.Infos{}, err
	}
	var bad plugininfo.BadPluginBin
	installed := plugininfo.NewFromCatalog(entries, &bad)
	if !bad.Empty() {
		slog.Warn("server reported plugins with bad catalog entries",
			slog.String("plugins", strings.Join(bad.Names(), ", ")))
	}
	return installed, nil
}

// AvailableFromS3 lists the plugin artifacts available in the given
// buckets. With no buckets it returns an empty set and no client.
func AvailableFromS3(ctx context.Context, buckets []string) (plugininfo.Infos, *s3store.Client, error) {
	if len(buckets) == 0 {
		return plugininfo.Infos{}, nil, nil
	}
	client, err := s3store.New()
	if err != nil {
		return plugininfo.Infos{}, nil, err
	}
	available, err := plugininfo.NewFromS3Buckets(ctx, client, buckets)
	if err != nil {
		return plugininfo.Infos{}, nil, err
	}
	return available, client, nil
}

// Confirm shows a yes/no prompt on the command's output. The --yes flag
// answers it unattended; without a terminal on stdin the caller must pass
// --yes explicitly.
func Confirm(cmd *cobra.Command, prompt string) (bool, error) {
	yes, err := cmd.Flags().GetBool(encapsiacmd.YesFlag)
	if err != nil {
		return false, fmt.Errorf("getting yes flag failed: %w", err)
	}
	if yes {
		return true, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, fmt.Errorf("stdin is not a terminal, pass --%s to proceed without confirmation", encapsiacmd.YesFlag)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading confirmation failed: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

// ExecutePlan applies all non-skip entries: S3-sourced candidates are
// downloaded into the store first, then each artifact is uploaded as a
// blob and installed via the plugins manager. One plugin's failure is
// reported and does not stop the rest; the combined error is returned at
// the end.
func ExecutePlan(ctx context.Context, cmd *cobra.Command, client *encapsia.Client, st *store.Store, s3 *s3store.Client, p *plan.Plan) error {
	var errs []error
	for _, entry := range p.Pending() {
		if err := applyEntry(ctx, client, st, s3, entry); err != nil {
			slog.Error("plugin installation failed",
				slog.String("plugin", entry.Candidate.NameAndVariant()),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", entry.Candidate.NameAndVariant(), err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s\n",
			entry.Candidate.NameAndVariant(), entry.Action, entry.Candidate.FormattedVersion())
	}
	return errors.Join(errs...)
}

func applyEntry(ctx context.Context, client *encapsia.Client, st *store.Store, s3 *s3store.Client, entry *plan.Entry) error {
	candidate := entry.Candidate
	if entry.FromS3 && !st.Has(candidate) {
		if s3 == nil {
			return fmt.Errorf("candidate %s requires an S3 download but no buckets are configured", candidate)
		}
		slog.Info("downloading plugin from s3",
			slog.String("bucket", candidate.S3Bucket()),
			slog.String("key", candidate.S3Name()))
		if err := s3.Download(ctx, candidate.S3Bucket(), candidate.S3Name(), st.Path(candidate)); err != nil {
			return err
		}
	}

	f, err := os.Open(st.Path(candidate))
	if err != nil {
		return fmt.Errorf("opening artifact failed: %w", err)
	}
	defer f.Close()

	blobID, err := client.UploadBlob(ctx, f)
	if err != nil {
		return err
	}
	slog.Debug("uploaded plugin blob", slog.String("plugin", candidate.NameAndVariant()), slog.String("blob", blobID))

	_, err = client.RunTask(ctx, "pluginsmanager", "install_plugin", map[string]string{"blob_id": blobID})
	return err
}
