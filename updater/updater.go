// Package updater implements the client update workflow: loading and
// verifying the chain of trusted metadata (root -> timestamp -> snapshot
// -> targets -> delegated targets), and downloading target files once
// they have been located.
//
// An Updater is single-threaded and not re-entrant: one refresh or
// target lookup must complete before the next begins.
package updater

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/tuf-go/coretuf/config"
	"github.com/tuf-go/coretuf/delegation"
	"github.com/tuf-go/coretuf/fetcher"
	"github.com/tuf-go/coretuf/metadata"
	"github.com/tuf-go/coretuf/store"
	"github.com/tuf-go/coretuf/trustedset"
)

// Updater provides the high-level API to refresh trusted metadata and to
// securely locate and download targets.
type Updater struct {
	cfg      *config.UpdaterConfig
	store    *store.Store
	fetcher  fetcher.Fetcher
	verifier metadata.Verifier
	trusted  *trustedset.TrustedSet

	targetsRefreshed bool
}

// New creates an Updater and bootstraps trust from the local root.json.
// A missing or invalid local root is fatal: the client cannot bootstrap
// without a prior Root to extend from.
func New(cfg *config.UpdaterConfig, st *store.Store, f fetcher.Fetcher, v metadata.Verifier, opts ...trustedset.Option) (*Updater, error) {
	rootData, err := st.ReadMetadata(metadata.ROOT)
	if err != nil {
		return nil, fmt.Errorf("loading local trusted root: %w", err)
	}
	trusted, err := trustedset.New(rootData, v, opts...)
	if err != nil {
		return nil, err
	}
	return &Updater{cfg: cfg, store: st, fetcher: f, verifier: v, trusted: trusted}, nil
}

// Refresh downloads, verifies, and loads metadata for the top-level roles
// in order: root, then timestamp, then snapshot, then targets. Delegated
// roles are not touched here; they load lazily inside GetTargetInfo.
func (u *Updater) Refresh(ctx context.Context) error {
	if err := u.loadRoot(ctx); err != nil {
		return err
	}
	if err := u.loadTimestamp(ctx); err != nil {
		return err
	}
	if err := u.loadSnapshot(ctx); err != nil {
		return err
	}
	if _, err := u.loadTargets(ctx, metadata.TARGETS, metadata.ROOT); err != nil {
		return err
	}
	u.targetsRefreshed = true
	return nil
}

// loadRoot fetches and commits every newer root version in sequence,
// stopping silently at the first version that cannot be fetched or that
// UpdateRoot rejects (end of the rotation chain). It fails if a committed
// root cannot be persisted, or if the final trusted root is expired.
func (u *Updater) loadRoot(ctx context.Context) error {
	lower := u.trusted.Root.Signed.Version + 1
	upper := lower + u.cfg.MaxRootRotations
	for v := lower; v < upper; v++ {
		data, err := u.downloadMetadata(ctx, metadata.ROOT, u.cfg.RootMaxLength, strconv.FormatInt(v, 10))
		if err != nil {
			break
		}
		if _, err := u.trusted.UpdateRoot(data); err != nil {
			break
		}
		if err := u.store.PersistMetadata(metadata.ROOT, data); err != nil {
			return err
		}
	}
	if u.trusted.RootExpired() {
		return metadata.ErrExpiredMetadata{Msg: "root.json is expired after rotation"}
	}
	return nil
}

// loadTimestamp tries the local cache first (non-fatal if stale/missing),
// then always fetches and commits the remote copy; EqualVersion is not an
// error, merely a no-op that isn't persisted again.
func (u *Updater) loadTimestamp(ctx context.Context) error {
	if data, err := u.store.ReadMetadata(metadata.TIMESTAMP); err == nil {
		_, _ = u.trusted.UpdateTimestamp(data)
	}
	data, err := u.downloadMetadata(ctx, metadata.TIMESTAMP, u.cfg.TimestampMaxLength, "")
	if err != nil {
		return err
	}
	if _, err := u.trusted.UpdateTimestamp(data); err != nil {
		if errors.Is(err, metadata.ErrEqualVersion{}) {
			return nil
		}
		return err
	}
	return u.store.PersistMetadata(metadata.TIMESTAMP, data)
}

// loadSnapshot tries the local cache as trusted_local=true (skipping the
// hash/length check against a locally cached copy already verified once),
// falling back to a remote fetch verified against Timestamp's snapshot_meta.
func (u *Updater) loadSnapshot(ctx context.Context) error {
	if data, err := u.store.ReadMetadata(metadata.SNAPSHOT); err == nil {
		if _, err := u.trusted.UpdateSnapshot(data, true); err == nil {
			return nil
		}
	}
	snapshotMeta := u.trusted.Timestamp.Signed.Meta[metadata.SNAPSHOT+".json"]
	length := snapshotMeta.Length
	if length == 0 {
		length = u.cfg.SnapshotMaxLength
	}
	version := ""
	if u.trusted.Root.Signed.ConsistentSnapshot {
		version = strconv.FormatInt(snapshotMeta.Version, 10)
	}
	data, err := u.downloadMetadata(ctx, metadata.SNAPSHOT, length, version)
	if err != nil {
		return err
	}
	if _, err := u.trusted.UpdateSnapshot(data, false); err != nil {
		return err
	}
	return u.store.PersistMetadata(metadata.SNAPSHOT, data)
}

// loadTargets loads the metadata for roleName, delegated by parentName,
// trying the local cache first and falling back to a remote fetch
// verified against the trusted Snapshot's declared meta entry. It
// satisfies delegation.Loader.
func (u *Updater) loadTargets(ctx context.Context, roleName, parentName string) (*metadata.Metadata[metadata.TargetsType], error) {
	if cached, ok := u.trusted.Targets[roleName]; ok {
		return cached, nil
	}
	if data, err := u.store.ReadMetadata(roleName); err == nil {
		if targets, err := u.trusted.UpdateDelegatedTargets(data, roleName, parentName); err == nil {
			return targets, nil
		}
	}

	metaInfo, ok := u.trusted.Snapshot.Signed.Meta[roleName+".json"]
	if !ok {
		return nil, metadata.ErrRepository{Msg: fmt.Sprintf("snapshot does not contain information for %s", roleName)}
	}
	length := metaInfo.Length
	if length == 0 {
		length = u.cfg.TargetsMaxLength
	}
	version := ""
	if u.trusted.Root.Signed.ConsistentSnapshot {
		version = strconv.FormatInt(metaInfo.Version, 10)
	}
	data, err := u.downloadMetadata(ctx, roleName, length, version)
	if err != nil {
		return nil, err
	}
	targets, err := u.trusted.UpdateDelegatedTargets(data, roleName, parentName)
	if err != nil {
		return nil, err
	}
	if err := u.store.PersistMetadata(roleName, data); err != nil {
		return nil, err
	}
	return targets, nil
}

// Load implements delegation.Loader.
func (u *Updater) Load(ctx context.Context, roleName, parentName string) (*metadata.Metadata[metadata.TargetsType], error) {
	return u.loadTargets(ctx, roleName, parentName)
}

// GetTargetInfo resolves targetPath to the TargetFiles describing it,
// running an implicit Refresh first if one hasn't happened yet.
func (u *Updater) GetTargetInfo(ctx context.Context, targetPath string) (*metadata.TargetFiles, error) {
	if !u.targetsRefreshed {
		if err := u.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	tf, _, err := delegation.FindTarget(ctx, u.trusted, u, targetPath, int(u.cfg.MaxDelegations))
	if err != nil {
		return nil, err
	}
	if tf == nil {
		return nil, metadata.ErrRepository{Msg: fmt.Sprintf("target %s not found", targetPath)}
	}
	return tf, nil
}

// DownloadTarget fetches and verifies the target described by tf,
// persisting it to outPath (or a generated path under the Store's
// targets directory if outPath is empty). targetBaseURL overrides
// cfg.RemoteTargetsURL for this call only.
func (u *Updater) DownloadTarget(ctx context.Context, tf *metadata.TargetFiles, outPath, targetBaseURL string) (string, error) {
	if targetBaseURL == "" {
		targetBaseURL = u.cfg.RemoteTargetsURL
	}
	targetBaseURL = ensureTrailingSlash(targetBaseURL)

	targetPath := tf.Path
	if u.trusted.Root.Signed.ConsistentSnapshot && u.cfg.PrefixTargetsWithHash {
		dir, base := path.Split(targetPath)
		targetPath = fmt.Sprintf("%s%s.%s", dir, preferredHashHex(tf.Hashes), base)
	}

	fullURL := targetBaseURL + targetPath
	fetchCtx, cancel := u.withFetchTimeout(ctx)
	defer cancel()
	data, err := u.fetcher.DownloadFile(fetchCtx, fullURL, tf.Length)
	if err != nil {
		return "", err
	}
	if err := tf.VerifyLengthHashes(data); err != nil {
		return "", err
	}

	if outPath == "" {
		outPath = url.QueryEscape(tf.Path)
		if err := u.store.PersistTarget(outPath, data); err != nil {
			return "", err
		}
		return u.store.TargetPath(outPath), nil
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", metadata.ErrPersist{Msg: err.Error()}
	}
	return outPath, nil
}

// FindCachedTarget reports whether a local copy of tf already exists and
// verifies correct, returning its path if so.
func (u *Updater) FindCachedTarget(tf *metadata.TargetFiles, localPath string) (string, error) {
	if localPath == "" {
		localPath = u.store.TargetPath(url.QueryEscape(tf.Path))
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	if err := tf.VerifyLengthHashes(data); err != nil {
		return "", err
	}
	return localPath, nil
}

// preferredHashHex picks one hex-encoded digest from hashes for use in a
// consistent-snapshot target URL, preferring sha256 when present so the
// choice is deterministic instead of depending on map iteration order.
func preferredHashHex(hashes metadata.Hashes) string {
	if h, ok := hashes["sha256"]; ok {
		return h.String()
	}
	for _, h := range hashes {
		return h.String()
	}
	return ""
}

func (u *Updater) downloadMetadata(ctx context.Context, roleName string, length int64, version string) ([]byte, error) {
	base := ensureTrailingSlash(u.cfg.RemoteMetadataURL)
	var urlPath string
	if version == "" {
		urlPath = fmt.Sprintf("%s%s.json", base, url.QueryEscape(roleName))
	} else {
		urlPath = fmt.Sprintf("%s%s.%s.json", base, version, url.QueryEscape(roleName))
	}
	ctx, cancel := u.withFetchTimeout(ctx)
	defer cancel()
	return u.fetcher.DownloadFile(ctx, urlPath, length)
}

// withFetchTimeout bounds ctx by cfg.FetchTimeout, the deadline every
// network call in this package is made under. A non-positive FetchTimeout
// leaves ctx's own deadline (if any) untouched.
func (u *Updater) withFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.cfg.FetchTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, u.cfg.FetchTimeout)
}

func ensureTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
