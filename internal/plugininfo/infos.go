package plugininfo

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Infos is an unordered collection of plugin artifacts. Entries are never
// mutated once added; every filter returns a new collection.
type Infos struct {
	items []*Info
}

// NewInfos builds a collection from the given artifacts.
func NewInfos(items ...*Info) Infos {
	return Infos{items: append([]*Info(nil), items...)}
}

// All returns the entries in collection order.
func (in Infos) All() []*Info { return in.items }

// Len returns the number of entries.
func (in Infos) Len() int { return len(in.items) }

// NewFromLocalStore scans a local store directory for plugin artifacts.
// Entries that fail to parse are logged and skipped: the cache is allowed
// to contain garbage without blocking every other operation.
func NewFromLocalStore(dir string) Infos {
	matches, err := filepath.Glob(filepath.Join(dir, "plugin-*-*.tar.gz"))
	if err != nil {
		slog.Error("unable to scan local plugin store", slog.String("dir", dir), slog.String("error", err.Error()))
		return Infos{}
	}
	var items []*Info
	for _, match := range matches {
		info, err := NewFromFilename(match)
		if err != nil {
			slog.Error("skipping unparseable entry in local plugin store", slog.String("error", err.Error()))
			continue
		}
		items = append(items, info)
	}
	return NewInfos(items...)
}

// BucketLister lists the object keys in a bucket below an optional prefix.
// It is implemented by the S3 collaborator.
type BucketLister interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// NewFromS3Buckets lists every ".tar.gz" object in the given buckets
// (each spec is "bucket" or "bucket/prefix") and parses each key. Unlike
// the local store scan, any listing or parse failure aborts the whole call:
// the result is used for authoritative availability decisions, and a
// partial listing is worse than none.
func NewFromS3Buckets(ctx context.Context, lister BucketLister, bucketSpecs []string) (Infos, error) {
	perBucket := make([][]*Info, len(bucketSpecs))
	var mu sync.Mutex

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i, bucketSpec := range bucketSpecs {
		eg.Go(func() error {
			bucket, prefix, _ := strings.Cut(bucketSpec, "/")
			keys, err := lister.List(ctx, bucket, prefix)
			if err != nil {
				return fmt.Errorf("listing bucket %q failed: %w", bucketSpec, err)
			}
			var items []*Info
			for _, key := range keys {
				if !strings.HasSuffix(key, ".tar.gz") {
					continue
				}
				info, err := NewFromS3(bucket, key)
				if err != nil {
					return err
				}
				items = append(items, info)
			}
			mu.Lock()
			defer mu.Unlock()
			perBucket[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Infos{}, err
	}

	return NewInfos(slices.Concat(perBucket...)...), nil
}

// CatalogEntry is one record of the installed-plugin catalog as reported by
// the Encapsia server.
type CatalogEntry struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	Manifest    *Manifest `json:"manifest,omitempty"`
	When        string    `json:"when,omitempty"`
}

// Manifest is the subset of the server side plugin manifest the client
// cares about.
type Manifest struct {
	Tags []string `json:"tags,omitempty"`
}

// BadPluginBin collects the names of catalog entries that failed
// validation, so callers can report them separately. A nil bin discards.
type BadPluginBin struct {
	names map[string]struct{}
}

// Add records a bad plugin name.
func (b *BadPluginBin) Add(name string) {
	if b == nil {
		return
	}
	if b.names == nil {
		b.names = make(map[string]struct{})
	}
	b.names[name] = struct{}{}
}

// Names returns the recorded names, sorted.
func (b *BadPluginBin) Names() []string {
	if b == nil {
		return nil
	}
	names := make([]string, 0, len(b.names))
	for name := range b.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether nothing was recorded.
func (b *BadPluginBin) Empty() bool { return b == nil || len(b.names) == 0 }

// variantFromTags extracts the variant from a manifest tag list. Exactly
// one "variant=<value>" tag names the variant; none means "no variant";
// more than one is an error.
func variantFromTags(tags []string) (string, error) {
	var variants []string
	for _, tag := range tags {
		if value, ok := strings.CutPrefix(tag, "variant="); ok {
			variants = append(variants, value)
		}
	}
	switch len(variants) {
	case 0:
		return "", nil
	case 1:
		return variants[0], nil
	default:
		return "", fmt.Errorf("found %d variant tags, want at most one", len(variants))
	}
}

// NewFromCatalog validates and converts the installed-plugin catalog.
// Entries missing a name or version are logged, recorded in bad and
// skipped. Entries missing a manifest or install timestamp are logged and
// recorded but still included. Entries with more than one variant tag are
// logged, recorded and excluded: with an ambiguous variant the entry could
// shadow, or be shadowed by, the wrong installed plugin.
func NewFromCatalog(entries []CatalogEntry, bad *BadPluginBin) Infos {
	var items []*Info
	for _, entry := range entries {
		if entry.Name == "" || entry.Version == "" {
			slog.Error("catalog entry missing mandatory name or version",
				slog.String("name", entry.Name),
				slog.String("version", entry.Version))
			bad.Add(entry.Name)
			continue
		}
		if entry.Manifest == nil || entry.When == "" {
			slog.Error("catalog entry missing manifest or install time",
				slog.String("name", entry.Name))
			bad.Add(entry.Name)
		}

		var tags []string
		if entry.Manifest != nil {
			tags = entry.Manifest.Tags
		}
		variant, err := variantFromTags(tags)
		if err != nil {
			slog.Error("bad tag list for catalog entry",
				slog.String("name", entry.Name),
				slog.String("error", err.Error()))
			bad.Add(entry.Name)
			continue
		}

		info := NewFromParts(entry.Name, variant, entry.Version)
		info.SetExtra("description", entry.Description)
		info.SetExtra("installed", formatInstallTime(entry.When))
		sorted := append([]string(nil), tags...)
		sort.Strings(sorted)
		info.SetExtra("plugin-tags", strings.Join(sorted, ", "))
		items = append(items, info)
	}
	return NewInfos(items...)
}

// installTimeLayouts are tried in order against the catalog's "when" field.
var installTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func formatInstallTime(when string) string {
	if when == "" {
		return "Unknown"
	}
	for _, layout := range installTimeLayouts {
		if t, err := time.Parse(layout, when); err == nil {
			return t.Format("Mon 02 Jan 2006 15:04:05")
		}
	}
	return when
}

// Latest returns the greatest entry in (name, variant, version) order, or
// nil for an empty collection. This has little value when the collection
// mixes names or variants; use FilterToLatest for per-plugin maxima.
func (in Infos) Latest() *Info {
	var latest *Info
	for _, info := range in.items {
		if latest == nil || latest.Less(info) {
			latest = info
		}
	}
	return latest
}

// FilterToLatest keeps only the greatest version per (name, variant) group.
// The result is unordered; callers sort as needed.
func (in Infos) FilterToLatest() Infos {
	type key struct{ name, variant string }
	latest := make(map[key]*Info)
	var order []key
	for _, info := range in.items {
		k := key{info.Name(), info.Variant()}
		current, ok := latest[k]
		if !ok {
			order = append(order, k)
		}
		if current == nil || current.Less(info) {
			latest[k] = info
		}
	}
	items := make([]*Info, 0, len(order))
	for _, k := range order {
		items = append(items, latest[k])
	}
	return NewInfos(items...)
}

// FilterOutPrereleases drops entries whose normalized version carries a
// pre-release tag.
func (in Infos) FilterOutPrereleases() Infos {
	var items []*Info
	for _, info := range in.items {
		if info.Semver().Prerelease() == "" {
			items = append(items, info)
		}
	}
	return NewInfos(items...)
}

// LatestMatching returns the greatest entry selected by the spec, or nil
// when nothing matches.
func (in Infos) LatestMatching(spec Spec) *Info {
	return spec.Filter(in).Latest()
}

// Sorted returns the entries in (name, variant, version) order.
func (in Infos) Sorted() []*Info {
	items := append([]*Info(nil), in.items...)
	slices.SortFunc(items, func(a, b *Info) int { return a.Compare(b) })
	return items
}
