package cmd

const (
	// HostFlag names the Encapsia host: a label into
	// ~/.encapsia/credentials.toml, or a URL paired with ENCAPSIA_TOKEN.
	HostFlag = "host"
	// PluginsDirFlag overrides the local plugin artifact store directory.
	PluginsDirFlag = "plugins-dir"
	// YesFlag answers every confirmation prompt with yes.
	YesFlag = "yes"
	// ForceFlag re-fetches or re-builds artifacts already in the store.
	ForceFlag = "force"
	// VersionsFlag names a TOML version file describing desired plugins.
	VersionsFlag = "versions"
	// S3BucketFlag names an S3 bucket (or bucket/prefix) of plugin
	// artifacts; repeatable.
	S3BucketFlag = "s3-bucket"
	// AllowDowngradeFlag permits plan entries that move to older versions.
	AllowDowngradeFlag = "allow-downgrade"
	// ReinstallFlag permits plan entries that reinstall the same version.
	ReinstallFlag = "reinstall"
	// IncludePrereleasesFlag lets pre-release versions win resolution.
	IncludePrereleasesFlag = "include-prereleases"
	// OutputFlag selects the encoding for command output.
	OutputFlag = "output"
)
