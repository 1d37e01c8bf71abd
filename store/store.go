// Package store implements atomic local persistence for trusted metadata
// and downloaded target files: the only filesystem access point the rest
// of this module uses.
package store

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/tuf-go/coretuf/metadata"
)

// Store reads and atomically writes metadata and target files under two
// local directories.
type Store struct {
	MetadataDir string
	TargetsDir  string
}

// New returns a Store rooted at metadataDir/targetsDir. Neither directory
// is created here; call config.UpdaterConfig.EnsureDirs (or create them
// otherwise) before first use.
func New(metadataDir, targetsDir string) *Store {
	return &Store{MetadataDir: metadataDir, TargetsDir: targetsDir}
}

// ReadMetadata returns the cached bytes for roleName, or an error
// (including os.ErrNotExist) if nothing is cached.
func (s *Store) ReadMetadata(roleName string) ([]byte, error) {
	return os.ReadFile(s.metadataPath(roleName))
}

// PersistMetadata writes data for roleName atomically: write to a
// temporary file in the same directory, then rename over the destination,
// so a crash mid-write never leaves a truncated role file behind.
func (s *Store) PersistMetadata(roleName string, data []byte) error {
	return atomicWrite(s.metadataPath(roleName), data)
}

// ReadTarget returns the cached bytes for the target at relPath.
func (s *Store) ReadTarget(relPath string) ([]byte, error) {
	return os.ReadFile(s.TargetPath(relPath))
}

// PersistTarget writes data for the target at relPath atomically.
func (s *Store) PersistTarget(relPath string, data []byte) error {
	path := s.TargetPath(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return metadata.ErrPersist{Msg: err.Error()}
	}
	return atomicWrite(path, data)
}

// TargetPath returns the local filesystem path a target at relPath would
// be stored under.
func (s *Store) TargetPath(relPath string) string {
	return filepath.Join(s.TargetsDir, filepath.FromSlash(relPath))
}

func (s *Store) metadataPath(roleName string) string {
	return filepath.Join(s.MetadataDir, url.QueryEscape(roleName)+".json")
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return metadata.ErrPersist{Msg: err.Error()}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return metadata.ErrPersist{Msg: err.Error()}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return metadata.ErrPersist{Msg: err.Error()}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return metadata.ErrPersist{Msg: err.Error()}
	}
	return nil
}
