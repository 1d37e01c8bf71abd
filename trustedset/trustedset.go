// Package trustedset implements the in-memory collection of currently
// trusted TUF metadata and the total functions that mutate it. Every
// mutating operation either commits new metadata into the set or fails
// with a specific error, leaving the set unchanged; the set never
// reverts once a commit succeeds.
package trustedset

import (
	"fmt"
	"time"

	"github.com/tuf-go/coretuf/metadata"
)

// TrustedSet holds at most one accepted instance per top-level role plus a
// map of accepted delegated Targets roles, keyed by role name. RefTime is
// fixed for the lifetime of the set so all expiry checks within a single
// refresh are consistent.
type TrustedSet struct {
	Root      *metadata.Metadata[metadata.RootType]
	Timestamp *metadata.Metadata[metadata.TimestampType]
	Snapshot  *metadata.Metadata[metadata.SnapshotType]
	Targets   map[string]*metadata.Metadata[metadata.TargetsType]

	refTime  time.Time
	verifier metadata.Verifier
}

// Option configures a TrustedSet at construction time.
type Option func(*TrustedSet)

// WithReferenceTime overrides the reference "now" used for every expiry
// check performed by this set. Defaults to time.Now().UTC(); tests should
// always set this explicitly for determinism.
func WithReferenceTime(t time.Time) Option {
	return func(ts *TrustedSet) { ts.refTime = t }
}

// New creates a TrustedSet bootstrapped from rootData, the initial trusted
// Root. An expired initial Root is accepted: expiry is only enforced on
// the final Root once the rotation loop (driven by the caller) stops.
func New(rootData []byte, verifier metadata.Verifier, opts ...Option) (*TrustedSet, error) {
	ts := &TrustedSet{
		Targets:  map[string]*metadata.Metadata[metadata.TargetsType]{},
		refTime:  time.Now().UTC(),
		verifier: verifier,
	}
	for _, opt := range opts {
		opt(ts)
	}
	root, err := metadata.Root().FromBytes(rootData)
	if err != nil {
		return nil, err
	}
	if err := root.VerifyDelegate(metadata.ROOT, root, verifier); err != nil {
		return nil, err
	}
	ts.Root = root
	return ts, nil
}

// UpdateRoot verifies and commits rootData as the new trusted Root. Only
// callable before Snapshot has been committed.
func (ts *TrustedSet) UpdateRoot(rootData []byte) (*metadata.Metadata[metadata.RootType], error) {
	if ts.Snapshot != nil {
		return nil, metadata.ErrRuntime{Msg: "cannot update root after snapshot has been loaded"}
	}
	next, err := metadata.Root().FromBytes(rootData)
	if err != nil {
		return nil, err
	}
	// self-consistency alone is insufficient: the trusted chain must admit it.
	if err := ts.Root.VerifyDelegate(metadata.ROOT, next, ts.verifier); err != nil {
		return nil, err
	}
	if next.Signed.Version != ts.Root.Signed.Version+1 {
		return nil, metadata.ErrBadVersion{Msg: fmt.Sprintf("expected root version %d, got %d", ts.Root.Signed.Version+1, next.Signed.Version)}
	}
	// dual-signing requirement: next must also be signed by itself.
	if err := next.VerifyDelegate(metadata.ROOT, next, ts.verifier); err != nil {
		return nil, err
	}
	// expiry deliberately not checked here: a long rotation chain may pass
	// through expired intermediate roots.
	ts.Root = next
	return ts.Root, nil
}

// UpdateTimestamp verifies and commits timestampData as the new trusted
// Timestamp.
func (ts *TrustedSet) UpdateTimestamp(timestampData []byte) (*metadata.Metadata[metadata.TimestampType], error) {
	if ts.Root == nil {
		return nil, metadata.ErrRuntime{Msg: "cannot update timestamp before root"}
	}
	if ts.Root.Signed.IsExpired(ts.refTime) {
		return nil, metadata.ErrExpiredMetadata{Msg: "trusted root.json is expired"}
	}
	next, err := metadata.Timestamp().FromBytes(timestampData)
	if err != nil {
		return nil, err
	}
	if err := ts.Root.VerifyDelegate(metadata.TIMESTAMP, next, ts.verifier); err != nil {
		return nil, err
	}
	if ts.Timestamp != nil {
		if next.Signed.Version < ts.Timestamp.Signed.Version {
			return nil, metadata.ErrBadVersion{Msg: fmt.Sprintf("new timestamp version %d must be >= %d", next.Signed.Version, ts.Timestamp.Signed.Version)}
		}
		if next.Signed.Version == ts.Timestamp.Signed.Version {
			return nil, metadata.ErrEqualVersion{Msg: fmt.Sprintf("timestamp version %d already trusted", next.Signed.Version)}
		}
		curSnap := ts.Timestamp.Signed.Meta[snapshotFile]
		newSnap := next.Signed.Meta[snapshotFile]
		if newSnap.Version < curSnap.Version {
			return nil, metadata.ErrBadVersion{Msg: fmt.Sprintf("new snapshot version %d must be >= %d", newSnap.Version, curSnap.Version)}
		}
	}
	if next.Signed.IsExpired(ts.refTime) {
		return nil, metadata.ErrExpiredMetadata{Msg: "timestamp.json is expired"}
	}
	ts.Timestamp = next
	return ts.Timestamp, nil
}

// UpdateSnapshot verifies and commits snapshotData as the new trusted
// Snapshot. If trustedLocal is true, the hash/length check against
// Timestamp's declared snapshot_meta is skipped: locally cached data has
// already been verified once, at write time.
func (ts *TrustedSet) UpdateSnapshot(snapshotData []byte, trustedLocal bool) (*metadata.Metadata[metadata.SnapshotType], error) {
	if ts.Timestamp == nil {
		return nil, metadata.ErrRuntime{Msg: "cannot update snapshot before timestamp"}
	}
	if ts.Timestamp.Signed.IsExpired(ts.refTime) {
		return nil, metadata.ErrExpiredMetadata{Msg: "timestamp.json is expired"}
	}
	snapshotMeta := ts.Timestamp.Signed.Meta[snapshotFile]
	if !trustedLocal {
		if err := snapshotMeta.VerifyLengthHashes(snapshotData); err != nil {
			return nil, err
		}
	}
	next, err := metadata.Snapshot().FromBytes(snapshotData)
	if err != nil {
		return nil, err
	}
	if err := ts.Root.VerifyDelegate(metadata.SNAPSHOT, next, ts.verifier); err != nil {
		return nil, err
	}
	if next.Signed.Version != snapshotMeta.Version {
		return nil, metadata.ErrBadVersion{Msg: fmt.Sprintf("expected snapshot version %d, got %d", snapshotMeta.Version, next.Signed.Version)}
	}
	if ts.Snapshot != nil {
		for name, info := range ts.Snapshot.Signed.Meta {
			newInfo, ok := next.Signed.Meta[name]
			if !ok {
				return nil, metadata.ErrBadVersion{Msg: fmt.Sprintf("new snapshot is missing entry for %s", name)}
			}
			if newInfo.Version < info.Version {
				return nil, metadata.ErrBadVersion{Msg: fmt.Sprintf("expected %s version >= %d, got %d", name, info.Version, newInfo.Version)}
			}
		}
	}
	if next.Signed.IsExpired(ts.refTime) {
		return nil, metadata.ErrExpiredMetadata{Msg: "snapshot.json is expired"}
	}
	ts.Snapshot = next
	// a new snapshot invalidates every previously cached delegated Targets.
	ts.Targets = map[string]*metadata.Metadata[metadata.TargetsType]{}
	return ts.Snapshot, nil
}

// UpdateTargets verifies and commits targetsData as the new top-level
// Targets metadata. Equivalent to UpdateDelegatedTargets(data, "targets", "root").
func (ts *TrustedSet) UpdateTargets(targetsData []byte) (*metadata.Metadata[metadata.TargetsType], error) {
	return ts.UpdateDelegatedTargets(targetsData, metadata.TARGETS, metadata.ROOT)
}

// UpdateDelegatedTargets verifies and commits targetsData as the new
// metadata for the delegated role roleName, whose delegator is
// parentName ("root" for the top-level targets role).
func (ts *TrustedSet) UpdateDelegatedTargets(targetsData []byte, roleName, parentName string) (*metadata.Metadata[metadata.TargetsType], error) {
	if ts.Snapshot == nil {
		return nil, metadata.ErrRuntime{Msg: "cannot update targets before snapshot"}
	}
	if ts.Snapshot.Signed.IsExpired(ts.refTime) {
		return nil, metadata.ErrExpiredMetadata{Msg: "snapshot.json is expired"}
	}
	if parentName != metadata.ROOT {
		if _, ok := ts.Targets[parentName]; !ok {
			return nil, metadata.ErrRuntime{Msg: fmt.Sprintf("cannot update %s before its delegator %s", roleName, parentName)}
		}
	} else if ts.Root == nil {
		return nil, metadata.ErrRuntime{Msg: "cannot update targets before root"}
	}

	metaInfo, ok := ts.Snapshot.Signed.Meta[roleName+".json"]
	if !ok {
		return nil, metadata.ErrRepository{Msg: fmt.Sprintf("snapshot does not contain information for %s", roleName)}
	}
	if metaInfo.Length != 0 && int64(len(targetsData)) > metaInfo.Length {
		return nil, metadata.ErrLengthOrHashMismatch{Msg: fmt.Sprintf("%s exceeds expected length %d", roleName, metaInfo.Length)}
	}
	if len(metaInfo.Hashes) > 0 {
		if err := (&metadata.MetaFiles{Hashes: metaInfo.Hashes}).VerifyLengthHashes(targetsData); err != nil {
			return nil, err
		}
	}

	next, err := metadata.Targets().FromBytes(targetsData)
	if err != nil {
		return nil, err
	}

	if parentName == metadata.ROOT {
		if err := ts.Root.VerifyDelegate(roleName, next, ts.verifier); err != nil {
			return nil, err
		}
	} else {
		if err := ts.Targets[parentName].VerifyDelegate(roleName, next, ts.verifier); err != nil {
			return nil, err
		}
	}

	if next.Signed.Version != metaInfo.Version {
		return nil, metadata.ErrBadVersion{Msg: fmt.Sprintf("expected %s version %d, got %d", roleName, metaInfo.Version, next.Signed.Version)}
	}
	if next.Signed.IsExpired(ts.refTime) {
		return nil, metadata.ErrExpiredMetadata{Msg: fmt.Sprintf("%s.json is expired", roleName)}
	}
	ts.Targets[roleName] = next
	return next, nil
}

// RootExpired reports whether the currently trusted Root is expired as of
// this set's reference time.
func (ts *TrustedSet) RootExpired() bool {
	return ts.Root.Signed.IsExpired(ts.refTime)
}

const snapshotFile = "snapshot.json"
