package plugininfo

import (
	"log/slog"
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

var (
	// fourDigitVersionRegex matches legacy versions with a fourth numeric
	// component, e.g. "1.2.3.4". The fourth component becomes a semver
	// pre-release, so "1.2.3.4" sorts below "1.2.3".
	fourDigitVersionRegex = regexp.MustCompile(`^([0-9]+)\.([0-9]+)\.([0-9]+)\.([0-9]+)$`)

	// devVersionRegex matches legacy dev builds, e.g. "0.0.209dev12".
	devVersionRegex = regexp.MustCompile(`^([0-9]+)\.([0-9]+)\.([0-9]+)dev([0-9]+)$`)
)

// zeroVersion is what unparseable version strings normalize to. It sorts
// below every real version, so such entries never win a "latest" comparison.
func zeroVersion() *semver.Version {
	return semver.New(0, 0, 0, "", "")
}

// NormalizeVersion converts an arbitrary plugin version string into a
// totally ordered semantic version. Legacy four-digit and "dev" formats are
// rewritten into pre-release form, anything else is parsed strictly. The
// function never fails: an unparseable string is logged and normalized to
// "0.0.0".
func NormalizeVersion(version string) *semver.Version {
	if m := fourDigitVersionRegex.FindStringSubmatch(version); m != nil {
		return prereleaseVersion(m[1], m[2], m[3], m[4])
	}
	if m := devVersionRegex.FindStringSubmatch(version); m != nil {
		return prereleaseVersion(m[1], m[2], m[3], m[4])
	}
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		slog.Warn("unparseable plugin version, treating as lowest",
			slog.String("version", version),
			slog.String("error", err.Error()))
		return zeroVersion()
	}
	return v
}

func prereleaseVersion(major, minor, patch, prerelease string) *semver.Version {
	// The regexes only capture digit runs, so parsing cannot fail.
	return semver.New(
		mustUint(major),
		mustUint(minor),
		mustUint(patch),
		prerelease,
		"",
	)
}

func mustUint(s string) uint64 {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		panic(err)
	}
	return n
}
