package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s := New(filepath.Join(root, "metadata"), filepath.Join(root, "targets"))
	require.NoError(t, os.MkdirAll(s.MetadataDir, 0o755))
	require.NoError(t, os.MkdirAll(s.TargetsDir, 0o755))
	return s
}

func TestPersistAndReadMetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PersistMetadata("root", []byte(`{"signed":{}}`)))
	data, err := s.ReadMetadata("root")
	require.NoError(t, err)
	assert.Equal(t, `{"signed":{}}`, string(data))
}

func TestReadMetadataMissingRoleReturnsNotExist(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadMetadata("timestamp")
	assert.True(t, os.IsNotExist(err))
}

func TestPersistMetadataOverwritesPreviousVersion(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PersistMetadata("snapshot", []byte("v1")))
	require.NoError(t, s.PersistMetadata("snapshot", []byte("v2")))

	data, err := s.ReadMetadata("snapshot")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestPersistMetadataEscapesRoleName(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PersistMetadata("team/alpha", []byte("payload")))

	entries, err := os.ReadDir(s.MetadataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), "/")

	data, err := s.ReadMetadata("team/alpha")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestPersistMetadataLeavesNoTempFilesBehind(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PersistMetadata("root", []byte("data")))

	entries, err := os.ReadDir(s.MetadataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "root.json", entries[0].Name())
}

func TestPersistAndReadTargetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PersistTarget("bin/app.exe", []byte("binary-content")))
	data, err := s.ReadTarget("bin/app.exe")
	require.NoError(t, err)
	assert.Equal(t, "binary-content", string(data))
}

func TestPersistTargetCreatesNestedDirectories(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PersistTarget("a/b/c/d.bin", []byte("nested")))
	assert.FileExists(t, s.TargetPath("a/b/c/d.bin"))
}

func TestTargetPathUsesPlatformSeparators(t *testing.T) {
	s := New("metadata-dir", "targets-dir")
	got := s.TargetPath("a/b/c.txt")
	assert.Equal(t, filepath.Join("targets-dir", "a", "b", "c.txt"), got)
}

func TestReadTargetMissingReturnsNotExist(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadTarget("missing.bin")
	assert.True(t, os.IsNotExist(err))
}
