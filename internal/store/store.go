// Package store manages the local plugin artifact cache and the plugin
// source/artifact formats: building a tar.gz from a source tree and
// reading the plugin.toml manifest back out of either.
package store

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/gzip"
	tarfs "github.com/nlepage/go-tarfs"

	"github.com/encapsia/encapsia-cli/internal/plugininfo"
)

// DefaultDir is the default local store location relative to the user's
// home directory.
const DefaultDir = ".encapsia/plugins-cache"

// Store is an on-disk cache of plugin artifacts named per the plugin
// filename grammar.
type Store struct {
	dir string
}

// Open ensures the store directory exists and returns the store. An empty
// dir falls back to DefaultDir under the user's home directory.
func Open(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory failed: %w", err)
		}
		dir = filepath.Join(home, DefaultDir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating plugin store %s failed: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Scan parses every plugin artifact in the store, skipping (and logging)
// entries with unparseable names.
func (s *Store) Scan() plugininfo.Infos {
	return plugininfo.NewFromLocalStore(s.dir)
}

// Path returns where the given artifact lives (or would live) in the store.
func (s *Store) Path(info *plugininfo.Info) string {
	return filepath.Join(s.dir, info.Filename())
}

// Has reports whether the artifact is already cached.
func (s *Store) Has(info *plugininfo.Info) bool {
	_, err := os.Stat(s.Path(info))
	return err == nil
}

// Add copies an artifact file into the store, validating its name against
// the plugin filename grammar first.
func (s *Store) Add(src string) (*plugininfo.Info, error) {
	info, err := plugininfo.NewFromFilename(src)
	if err != nil {
		return nil, err
	}
	if err := copyFile(src, s.Path(info)); err != nil {
		return nil, fmt.Errorf("adding %s to plugin store failed: %w", src, err)
	}
	return info, nil
}

// WriteTo streams an artifact body into the store under the given identity.
// The write goes through a temp file so a failed download never leaves a
// truncated artifact behind.
func (s *Store) WriteTo(info *plugininfo.Info, r io.Reader) error {
	dest := s.Path(info)
	tmp, err := os.CreateTemp(s.dir, ".store-*")
	if err != nil {
		return fmt.Errorf("adding %s to plugin store failed: %w", info.Filename(), err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("adding %s to plugin store failed: %w", info.Filename(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("adding %s to plugin store failed: %w", info.Filename(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("adding %s to plugin store failed: %w", info.Filename(), err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".store-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// Manifest is the plugin.toml manifest carried by every plugin source tree
// and artifact.
type Manifest struct {
	Name           string `toml:"name"`
	Description    string `toml:"description,omitempty"`
	Version        string `toml:"version"`
	Variant        string `toml:"variant,omitempty"`
	CreatedBy      string `toml:"created_by,omitempty"`
	NTaskWorkers   int    `toml:"n_task_workers,omitempty"`
	ResetOnInstall bool   `toml:"reset_on_install,omitempty"`
}

// Info returns the artifact identity described by the manifest.
func (m *Manifest) Info() *plugininfo.Info {
	return plugininfo.NewFromParts(m.Name, m.Variant, m.Version)
}

// ReadManifestFromDir reads plugin.toml from a plugin source directory.
func ReadManifestFromDir(dir string) (*Manifest, error) {
	var m Manifest
	path := filepath.Join(dir, "plugin.toml")
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("reading manifest %s failed: %w", path, err)
	}
	if m.Name == "" || m.Version == "" {
		return nil, fmt.Errorf("manifest %s is missing a name or version", path)
	}
	return &m, nil
}

// ReadManifestFromArtifact reads the plugin.toml member out of a plugin
// tar.gz artifact without extracting the rest.
func ReadManifestFromArtifact(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact %s failed: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s failed: %w", path, err)
	}
	defer zr.Close()

	tfs, err := tarfs.New(zr)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s failed: %w", path, err)
	}
	matches, err := fs.Glob(tfs, "*/plugin.toml")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("artifact %s contains no plugin.toml", path)
	}
	data, err := fs.ReadFile(tfs, matches[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s from artifact %s failed: %w", matches[0], path, err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding plugin.toml from artifact %s failed: %w", path, err)
	}
	return &m, nil
}

// sourceParts are the members of a plugin source tree that get packaged,
// in archive order.
var sourceParts = []string{"plugin.toml", "webfiles", "views", "tasks", "wheels", "schedules"}

// BuildFromSource packages a plugin source directory into an artifact in
// the store and returns its identity. The archive contains a single top
// level directory named plugin-<name>[-variant-<v>]-<version>.
func (s *Store) BuildFromSource(srcDir string) (*plugininfo.Info, error) {
	manifest, err := ReadManifestFromDir(srcDir)
	if err != nil {
		return nil, err
	}
	info := manifest.Info()

	dest := s.Path(info)
	tmp, err := os.CreateTemp(s.dir, ".build-*")
	if err != nil {
		return nil, fmt.Errorf("building %s failed: %w", info.Filename(), err)
	}
	defer os.Remove(tmp.Name())

	if err := writeArtifact(tmp, srcDir, info); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("building %s failed: %w", info.Filename(), err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("building %s failed: %w", info.Filename(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("building %s failed: %w", info.Filename(), err)
	}
	return info, nil
}

func writeArtifact(w io.Writer, srcDir string, info *plugininfo.Info) error {
	zw := gzip.NewWriter(w)
	tw := tar.NewWriter(zw)

	base := "plugin-" + info.Name()
	if info.Variant() != "" {
		base += "-variant-" + info.Variant()
	}
	base += "-" + info.Version()

	for _, part := range sourceParts {
		src := filepath.Join(srcDir, part)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := addTree(tw, src, base+"/"+part); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return zw.Close()
}

func addTree(tw *tar.Writer, src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		name := dest
		if rel != "." {
			name = dest + "/" + filepath.ToSlash(rel)
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}
