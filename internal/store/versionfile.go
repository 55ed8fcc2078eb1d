package store

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/encapsia/encapsia-cli/internal/plugininfo"
)

// ReadVersionFile decodes a TOML version file mapping plugin name to either
// a bare version string or a {version, variant, exact} table.
func ReadVersionFile(path string) (plugininfo.Specs, error) {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return plugininfo.Specs{}, fmt.Errorf("reading version file %s failed: %w", path, err)
	}
	specs, err := plugininfo.SpecsFromVersionDict(raw)
	if err != nil {
		return plugininfo.Specs{}, fmt.Errorf("version file %s: %w", path, err)
	}
	return specs, nil
}

// WriteVersionFile encodes specs into version-file TOML, using the compact
// bare-string form wherever the defaults (no variant, exact match) hold.
func WriteVersionFile(w io.Writer, specs plugininfo.Specs) error {
	if err := toml.NewEncoder(w).Encode(specs.AsVersionDict()); err != nil {
		return fmt.Errorf("writing version file failed: %w", err)
	}
	return nil
}

// WriteVersionFileTo writes the version file at the given path.
func WriteVersionFileTo(path string, specs plugininfo.Specs) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing version file %s failed: %w", path, err)
	}
	if err := WriteVersionFile(f, specs); err != nil {
		f.Close()
		return fmt.Errorf("version file %s: %w", path, err)
	}
	return f.Close()
}
