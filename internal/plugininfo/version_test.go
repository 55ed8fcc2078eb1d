package plugininfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{
			name:    "plain semver passes through",
			version: "1.2.3",
			want:    "1.2.3",
		},
		{
			name:    "semver with prerelease passes through",
			version: "2.0.0-beta.1",
			want:    "2.0.0-beta.1",
		},
		{
			name:    "four digit version becomes prerelease",
			version: "1.2.3.4",
			want:    "1.2.3-4",
		},
		{
			name:    "dev version becomes prerelease",
			version: "0.0.209dev12",
			want:    "0.0.209-12",
		},
		{
			name:    "bare major is not strict semver",
			version: "1",
			want:    "0.0.0",
		},
		{
			name:    "major.minor is not strict semver",
			version: "1.2",
			want:    "0.0.0",
		},
		{
			name:    "garbage normalizes to zero",
			version: "not-a-version",
			want:    "0.0.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeVersion(tt.version).String())
		})
	}
}

func TestNormalizeVersionOrdering(t *testing.T) {
	t.Run("four digit sorts below its three digit base", func(t *testing.T) {
		assert.Negative(t, NormalizeVersion("1.2.3.4").Compare(NormalizeVersion("1.2.3")))
	})

	t.Run("dev build sorts below the release", func(t *testing.T) {
		assert.Negative(t, NormalizeVersion("0.0.209dev12").Compare(NormalizeVersion("0.0.209")))
	})

	t.Run("unparseable sorts below everything real", func(t *testing.T) {
		assert.Negative(t, NormalizeVersion("garbage").Compare(NormalizeVersion("0.0.1")))
	})
}
