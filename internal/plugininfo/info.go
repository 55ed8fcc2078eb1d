// Package plugininfo implements plugin identity, version normalization and
// spec matching for Encapsia plugin artifacts.
//
// A plugin artifact is distributed as a file named
//
//	plugin-<name>[-variant-<variant>]-<version>.tar.gz
//
// where <name> identifies the plugin, <variant> optionally distinguishes
// concurrently installable builds of the same plugin, and <version> is a
// (possibly legacy-format) version string. Two artifacts are the same plugin
// version when their (name, variant, normalized version) triples are equal,
// even if the raw version strings differ in spelling.
package plugininfo

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Allowed character classes for the parts of a plugin identity.
const (
	allowedName    = `[a-z][a-z0-9_]*`
	allowedVersion = `[0-9][a-zA-Z0-9.+-]*`
	allowedVariant = `[a-zA-Z0-9_]+`
)

var pluginFilenameRegex = regexp.MustCompile(
	`^.*plugin-(` + allowedName + `)(?:-variant-(` + allowedVariant + `))?-(` + allowedVersion + `)\.tar\.gz$`,
)

// Info identifies one concrete, versioned plugin artifact. It is immutable
// once constructed, except for the extras bag which carries descriptive
// metadata and never takes part in equality or ordering.
type Info struct {
	name    string
	variant string
	version string
	semver  *semver.Version

	// Provenance when sourced from an S3 listing. Not part of identity.
	s3Bucket string
	s3Path   string

	extras map[string]string
}

func newInfo(s3Bucket, s3Path, name, variant, version string) *Info {
	return &Info{
		name:     name,
		variant:  variant,
		version:  version,
		semver:   NormalizeVersion(version),
		s3Bucket: s3Bucket,
		s3Path:   s3Path,
	}
}

// ParseFilename splits a plugin artifact filename (or a path ending in one)
// into name, variant and version. The variant is empty when the filename
// carries no variant tag.
func ParseFilename(filename string) (name, variant, version string, err error) {
	m := pluginFilenameRegex.FindStringSubmatch(filename)
	if m == nil {
		return "", "", "", fmt.Errorf("unable to parse plugin filename %q", filename)
	}
	return m[1], m[2], m[3], nil
}

// NewFromFilename builds an Info from a plugin artifact filename or path.
func NewFromFilename(filename string) (*Info, error) {
	name, variant, version, err := ParseFilename(filename)
	if err != nil {
		return nil, err
	}
	return newInfo("", "", name, variant, version), nil
}

// NewFromParts builds an Info directly from a name, variant and raw version
// string. An empty variant means "no variant".
func NewFromParts(name, variant, version string) *Info {
	return newInfo("", "", name, variant, version)
}

// NewFromS3 builds an Info from a bucket and object key. The key's final
// segment must follow the plugin filename grammar; the remainder of the key
// is retained so the artifact can be downloaded later.
func NewFromS3(bucket, key string) (*Info, error) {
	name, variant, version, err := ParseFilename(key)
	if err != nil {
		return nil, err
	}
	path := ""
	if idx := strings.LastIndex(key, "/"); idx != -1 {
		path = key[:idx]
	}
	return newInfo(bucket, path, name, variant, version), nil
}

// NewFromSpec materializes an Info from an exact spec. It fails when the
// spec's variant is the ANY wildcard, since a concrete artifact cannot be
// built from a wildcard.
func NewFromSpec(spec Spec) (*Info, error) {
	if spec.Variant.IsAny() {
		return nil, fmt.Errorf("cannot make plugin info from spec %s with ANY variant", spec)
	}
	return newInfo("", "", spec.Name, spec.Variant.Name(), spec.VersionPrefix), nil
}

// LooksLikePluginFile reports whether s follows the plugin artifact filename
// grammar. It never fails and is used to tell a filesystem path argument
// apart from a spec string on the command line.
func LooksLikePluginFile(s string) bool {
	return pluginFilenameRegex.MatchString(s)
}

// Name returns the plugin name.
func (i *Info) Name() string { return i.name }

// Variant returns the variant, or the empty string for "no variant".
func (i *Info) Variant() string { return i.variant }

// Version returns the raw version string as found in the filename or catalog.
func (i *Info) Version() string { return i.version }

// Semver returns the normalized version used for ordering.
func (i *Info) Semver() *semver.Version { return i.semver }

// S3Bucket returns the source bucket, or "" when not sourced from S3.
func (i *Info) S3Bucket() string { return i.s3Bucket }

// S3Path returns the key prefix within the source bucket.
func (i *Info) S3Path() string { return i.s3Path }

// Compare orders by (name, variant, normalized version), with the version
// compared per semver precedence. Raw version spelling is irrelevant.
func (i *Info) Compare(other *Info) int {
	if c := strings.Compare(i.name, other.name); c != 0 {
		return c
	}
	if c := strings.Compare(i.variant, other.variant); c != 0 {
		return c
	}
	return i.semver.Compare(other.semver)
}

// Equal reports identity equality, i.e. Compare(other) == 0.
func (i *Info) Equal(other *Info) bool { return other != nil && i.Compare(other) == 0 }

// Less reports whether i orders strictly before other.
func (i *Info) Less(other *Info) bool { return i.Compare(other) < 0 }

// FormattedVersion renders the raw version, appending the normalized form in
// parentheses when it differs. This makes it obvious to users why two
// differently spelled versions compare as equal.
func (i *Info) FormattedVersion() string {
	normalized := i.semver.String()
	if normalized == i.version {
		return normalized
	}
	return fmt.Sprintf("%s (%s)", i.version, normalized)
}

// NameAndVariant renders "name" or "name [variant]" for display.
func (i *Info) NameAndVariant() string {
	if i.variant == "" {
		return i.name
	}
	return fmt.Sprintf("%s [%s]", i.name, i.variant)
}

// Filename is the deterministic inverse of NewFromFilename.
func (i *Info) Filename() string {
	variant := ""
	if i.variant != "" {
		variant = "-variant-" + i.variant
	}
	return fmt.Sprintf("plugin-%s%s-%s.tar.gz", i.name, variant, i.version)
}

// S3Name returns the full object key within the source bucket.
func (i *Info) S3Name() string {
	if i.s3Path == "" {
		// Plugin files stored flat in a bucket.
		return i.Filename()
	}
	return i.s3Path + "/" + i.Filename()
}

// SetExtra attaches a descriptive metadata entry. Extras are display-only
// and excluded from equality and ordering.
func (i *Info) SetExtra(key, value string) {
	if i.extras == nil {
		i.extras = make(map[string]string)
	}
	i.extras[key] = value
}

// Extra returns the named extras entry, or "" when absent.
func (i *Info) Extra(key string) string { return i.extras[key] }

// Extras returns a copy of the extras bag.
func (i *Info) Extras() map[string]string {
	if i.extras == nil {
		return nil
	}
	return maps.Clone(i.extras)
}

func (i *Info) String() string { return i.Filename() }
