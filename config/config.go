// Package config holds the Updater's tunables: resource directories,
// remote URLs, and the bounded-fetch/traversal limits that guard against
// adversarial resource exhaustion.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// UpdaterConfig configures a single Updater instance.
type UpdaterConfig struct {
	LocalMetadataDir string `yaml:"local_metadata_dir"`
	LocalTargetsDir  string `yaml:"local_targets_dir"`
	RemoteMetadataURL string `yaml:"remote_metadata_url"`
	RemoteTargetsURL  string `yaml:"remote_targets_url"`

	MaxRootRotations      int64         `yaml:"max_root_rotations"`
	MaxDelegations        int64         `yaml:"max_delegations"`
	RootMaxLength         int64         `yaml:"root_max_length"`
	TimestampMaxLength    int64         `yaml:"timestamp_max_length"`
	SnapshotMaxLength     int64         `yaml:"snapshot_max_length"`
	TargetsMaxLength      int64         `yaml:"targets_max_length"`
	FetchTimeout          time.Duration `yaml:"fetch_timeout"`
	PrefixTargetsWithHash bool          `yaml:"prefix_targets_with_hash"`
}

// New returns an UpdaterConfig populated with this module's defaults and
// the given LocalMetadataDir and RemoteMetadataURL; LocalTargetsDir and
// RemoteTargetsURL are left for the caller to fill in.
func New(localMetadataDir, remoteMetadataURL string) *UpdaterConfig {
	return &UpdaterConfig{
		LocalMetadataDir:      localMetadataDir,
		RemoteMetadataURL:     remoteMetadataURL,
		MaxRootRotations:      256,
		MaxDelegations:        32,
		RootMaxLength:         512000,
		TimestampMaxLength:    16384,
		SnapshotMaxLength:     2000000,
		TargetsMaxLength:      5000000,
		FetchTimeout:          15 * time.Second,
		PrefixTargetsWithHash: true,
	}
}

// FromFile loads an UpdaterConfig from a YAML file, starting from New's
// defaults so a config file only needs to override what it cares about.
func FromFile(path string) (*UpdaterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := New("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnsureDirs creates LocalMetadataDir and LocalTargetsDir if absent.
func (c *UpdaterConfig) EnsureDirs() error {
	if c.LocalMetadataDir != "" {
		if err := os.MkdirAll(c.LocalMetadataDir, 0o755); err != nil {
			return err
		}
	}
	if c.LocalTargetsDir != "" {
		if err := os.MkdirAll(c.LocalTargetsDir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
