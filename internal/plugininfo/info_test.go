package plugininfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantName    string
		wantVariant string
		wantVersion string
		expectError bool
	}{
		{
			name:        "plain name and version",
			filename:    "plugin-launch-1.5.0.tar.gz",
			wantName:    "launch",
			wantVersion: "1.5.0",
		},
		{
			name:        "with variant",
			filename:    "plugin-launch-variant-demo-1.5.0.tar.gz",
			wantName:    "launch",
			wantVariant: "demo",
			wantVersion: "1.5.0",
		},
		{
			name:        "path prefix is accepted",
			filename:    "/some/where/plugin-launch-1.5.0.tar.gz",
			wantName:    "launch",
			wantVersion: "1.5.0",
		},
		{
			name:        "legacy four digit version",
			filename:    "plugin-trialconfig-0.0.340.2093.tar.gz",
			wantName:    "trialconfig",
			wantVersion: "0.0.340.2093",
		},
		{
			name:        "underscored name",
			filename:    "plugin-example_reporting-0.1.0.tar.gz",
			wantName:    "example_reporting",
			wantVersion: "0.1.0",
		},
		{
			name:        "name must not start with a digit",
			filename:    "plugin-1bad-1.0.0.tar.gz",
			expectError: true,
		},
		{
			name:        "uppercase name rejected",
			filename:    "plugin-Launch-1.0.0.tar.gz",
			expectError: true,
		},
		{
			name:        "version must start with a digit",
			filename:    "plugin-launch-v1.0.0.tar.gz",
			expectError: true,
		},
		{
			name:        "wrong extension",
			filename:    "plugin-launch-1.0.0.zip",
			expectError: true,
		},
		{
			name:        "not a plugin file at all",
			filename:    "launch-1.0.0.tar.gz",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, variant, version, err := ParseFilename(tt.filename)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantVariant, variant)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestFilenameRoundTrip(t *testing.T) {
	for _, filename := range []string{
		"plugin-launch-1.5.0.tar.gz",
		"plugin-launch-variant-demo-1.5.0.tar.gz",
		"plugin-trialconfig-0.0.340.2093.tar.gz",
	} {
		t.Run(filename, func(t *testing.T) {
			info, err := NewFromFilename(filename)
			require.NoError(t, err)
			assert.Equal(t, filename, info.Filename())
		})
	}
}

func TestNewFromS3(t *testing.T) {
	t.Run("nested key keeps its prefix", func(t *testing.T) {
		info, err := NewFromS3("ice-plugins", "stable/plugin-launch-1.5.0.tar.gz")
		require.NoError(t, err)
		assert.Equal(t, "ice-plugins", info.S3Bucket())
		assert.Equal(t, "stable", info.S3Path())
		assert.Equal(t, "stable/plugin-launch-1.5.0.tar.gz", info.S3Name())
	})

	t.Run("flat key has no prefix", func(t *testing.T) {
		info, err := NewFromS3("ice-plugins", "plugin-launch-1.5.0.tar.gz")
		require.NoError(t, err)
		assert.Empty(t, info.S3Path())
		assert.Equal(t, "plugin-launch-1.5.0.tar.gz", info.S3Name())
	})
}

func TestInfoCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b *Info
		want int
	}{
		{
			name: "name dominates",
			a:    NewFromParts("alpha", "", "9.0.0"),
			b:    NewFromParts("beta", "", "1.0.0"),
			want: -1,
		},
		{
			name: "variant breaks name ties",
			a:    NewFromParts("launch", "", "1.0.0"),
			b:    NewFromParts("launch", "demo", "1.0.0"),
			want: -1,
		},
		{
			name: "version compared as semver not text",
			a:    NewFromParts("launch", "", "2.0.0"),
			b:    NewFromParts("launch", "", "10.0.0"),
			want: -1,
		},
		{
			name: "differently spelled equal versions",
			a:    NewFromParts("launch", "", "1.2.3.4"),
			b:    NewFromParts("launch", "", "1.2.3-4"),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
			assert.Equal(t, tt.want == 0, tt.a.Equal(tt.b))
		})
	}
}

func TestFormattedVersion(t *testing.T) {
	t.Run("unchanged when normalization is identity", func(t *testing.T) {
		assert.Equal(t, "1.5.0", NewFromParts("launch", "", "1.5.0").FormattedVersion())
	})

	t.Run("shows both spellings when they differ", func(t *testing.T) {
		assert.Equal(t, "1.2.3.4 (1.2.3-4)", NewFromParts("launch", "", "1.2.3.4").FormattedVersion())
	})
}

func TestNameAndVariant(t *testing.T) {
	assert.Equal(t, "launch", NewFromParts("launch", "", "1.0.0").NameAndVariant())
	assert.Equal(t, "launch [demo]", NewFromParts("launch", "demo", "1.0.0").NameAndVariant())
}

func TestLooksLikePluginFile(t *testing.T) {
	assert.True(t, LooksLikePluginFile("plugin-launch-1.5.0.tar.gz"))
	assert.True(t, LooksLikePluginFile("./dist/plugin-launch-1.5.0.tar.gz"))
	assert.False(t, LooksLikePluginFile("launch-1.5"))
	assert.False(t, LooksLikePluginFile("launch"))
}

func TestExtras(t *testing.T) {
	info := NewFromParts("launch", "", "1.0.0")
	assert.Empty(t, info.Extra("description"))
	assert.Nil(t, info.Extras())

	info.SetExtra("description", "the launch plugin")
	assert.Equal(t, "the launch plugin", info.Extra("description"))

	// Extras never take part in identity.
	assert.True(t, info.Equal(NewFromParts("launch", "", "1.0.0")))
}
