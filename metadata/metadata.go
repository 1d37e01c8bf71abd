// Copyright 2022-2023 VMware, Inc.
//
// This product is licensed to you under the BSD-2 license (the "License").
// You may not use this product except in compliance with the BSD-2 License.
// This product may include a number of subcomponents with separate copyright
// notices and license terms. Your use of these subcomponents is subject to
// the terms and conditions of the subcomponent's license, as noted in the
// LICENSE file.
//
// SPDX-License-Identifier: BSD-2-Clause

package metadata

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"golang.org/x/crypto/blake2b"
)

// Root returns a new, empty Root metadata instance with version 1 and the
// four top-level roles pre-populated (no keys, threshold 1 each).
func Root(expires ...time.Time) *Metadata[RootType] {
	exp := firstOrNow(expires)
	roles := map[string]*Role{}
	for _, r := range []string{ROOT, SNAPSHOT, TARGETS, TIMESTAMP} {
		roles[r] = &Role{KeyIDs: []string{}, Threshold: 1, UnrecognizedFields: map[string]any{}}
	}
	return &Metadata[RootType]{
		Signed: RootType{
			Type:               ROOT,
			SpecVersion:        SpecificationVersion,
			Version:            1,
			Expires:            exp,
			Keys:               map[string]*Key{},
			Roles:              roles,
			ConsistentSnapshot: true,
			UnrecognizedFields: map[string]any{},
		},
		Signatures:         []Signature{},
		UnrecognizedFields: map[string]any{},
	}
}

// Snapshot returns a new, empty Snapshot metadata instance with version 1.
func Snapshot(expires ...time.Time) *Metadata[SnapshotType] {
	return &Metadata[SnapshotType]{
		Signed: SnapshotType{
			Type:               SNAPSHOT,
			SpecVersion:        SpecificationVersion,
			Version:            1,
			Expires:            firstOrNow(expires),
			Meta:               map[string]MetaFiles{"targets.json": {Version: 1, UnrecognizedFields: map[string]any{}}},
			UnrecognizedFields: map[string]any{},
		},
		Signatures:         []Signature{},
		UnrecognizedFields: map[string]any{},
	}
}

// Timestamp returns a new, empty Timestamp metadata instance with version 1.
func Timestamp(expires ...time.Time) *Metadata[TimestampType] {
	return &Metadata[TimestampType]{
		Signed: TimestampType{
			Type:               TIMESTAMP,
			SpecVersion:        SpecificationVersion,
			Version:            1,
			Expires:            firstOrNow(expires),
			Meta:               map[string]MetaFiles{"snapshot.json": {Version: 1, UnrecognizedFields: map[string]any{}}},
			UnrecognizedFields: map[string]any{},
		},
		Signatures:         []Signature{},
		UnrecognizedFields: map[string]any{},
	}
}

// Targets returns a new, empty Targets metadata instance with version 1.
func Targets(expires ...time.Time) *Metadata[TargetsType] {
	return &Metadata[TargetsType]{
		Signed: TargetsType{
			Type:               TARGETS,
			SpecVersion:        SpecificationVersion,
			Version:            1,
			Expires:            firstOrNow(expires),
			Targets:            map[string]TargetFiles{},
			UnrecognizedFields: map[string]any{},
		},
		Signatures:         []Signature{},
		UnrecognizedFields: map[string]any{},
	}
}

func firstOrNow(expires []time.Time) time.Time {
	if len(expires) == 0 {
		return time.Now().UTC()
	}
	return expires[0]
}

// FromFile loads and parses metadata from a local path.
func (meta *Metadata[T]) FromFile(name string) (*Metadata[T], error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return meta.FromBytes(data)
}

// FromBytes parses metadata from bytes, verifying it is the expected role,
// that spec_version is compatible, and that signature keyids are unique.
func (meta *Metadata[T]) FromBytes(data []byte) (*Metadata[T], error) {
	m, err := fromBytes[T](data)
	if err != nil {
		return nil, err
	}
	*meta = *m
	log.Info("loaded metadata from bytes")
	return meta, nil
}

// ToBytes serializes meta to its wire JSON form.
func (meta *Metadata[T]) ToBytes(pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(*meta, "", "\t")
	}
	return json.Marshal(*meta)
}

// ToFile writes meta's wire JSON form to name.
func (meta *Metadata[T]) ToFile(name string, pretty bool) error {
	data, err := meta.ToBytes(pretty)
	if err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o644)
}

// IsExpired reports whether referenceTime is at or after Signed.Expires.
func (signed *RootType) IsExpired(referenceTime time.Time) bool {
	return !referenceTime.Before(signed.Expires)
}

// IsExpired reports whether referenceTime is at or after Signed.Expires.
func (signed *SnapshotType) IsExpired(referenceTime time.Time) bool {
	return !referenceTime.Before(signed.Expires)
}

// IsExpired reports whether referenceTime is at or after Signed.Expires.
func (signed *TimestampType) IsExpired(referenceTime time.Time) bool {
	return !referenceTime.Before(signed.Expires)
}

// IsExpired reports whether referenceTime is at or after Signed.Expires.
func (signed *TargetsType) IsExpired(referenceTime time.Time) bool {
	return !referenceTime.Before(signed.Expires)
}

// VerifyLengthHashes checks data against f's declared length and hashes,
// both of which are optional for a MetaFiles entry.
func (f *MetaFiles) VerifyLengthHashes(data []byte) error {
	if len(f.Hashes) > 0 {
		if err := verifyHashes(data, f.Hashes); err != nil {
			return err
		}
	}
	if f.Length != 0 {
		if err := verifyLength(data, f.Length); err != nil {
			return err
		}
	}
	return nil
}

// VerifyLengthHashes checks data against f's declared length and hashes,
// both mandatory for a TargetFiles entry.
func (f *TargetFiles) VerifyLengthHashes(data []byte) error {
	if err := verifyHashes(data, f.Hashes); err != nil {
		return err
	}
	return verifyLength(data, f.Length)
}

// FromFile populates a TargetFiles describing the content at localPath,
// computing length and the requested hash algorithms (sha256 by default).
func (t *TargetFiles) FromFile(localPath string, hashes ...string) (*TargetFiles, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	return t.FromBytes(localPath, data, hashes...)
}

// FromBytes populates a TargetFiles describing data, as FromFile does.
func (t *TargetFiles) FromBytes(localPath string, data []byte, hashes ...string) (*TargetFiles, error) {
	if len(hashes) == 0 {
		hashes = []string{"sha256"}
	}
	tf := &TargetFiles{Hashes: map[string]HexBytes{}, UnrecognizedFields: map[string]any{}}
	tf.Length = int64(len(data))
	for _, name := range hashes {
		hexDigest, err := computeHash(name, data)
		if err != nil {
			return nil, err
		}
		enc, err := hex.DecodeString(hexDigest)
		if err != nil {
			return nil, err
		}
		tf.Hashes[name] = enc
	}
	tf.Path = localPath
	return tf, nil
}

// fromBytes parses data into a Metadata[T], verifying the declared _type
// matches T and that signature keyids are unique.
func fromBytes[T Roles](data []byte) (*Metadata[T], error) {
	meta := &Metadata[T]{}
	if err := checkType[T](data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, ErrMalformedMetadata{Msg: err.Error()}
	}
	if err := checkSpecVersion(meta); err != nil {
		return nil, err
	}
	if err := checkUniqueSignatures(*meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func checkUniqueSignatures[T Roles](meta Metadata[T]) error {
	seen := map[string]bool{}
	for _, sig := range meta.Signatures {
		if seen[sig.KeyID] {
			return ErrMalformedMetadata{Msg: "multiple signatures found for key ID " + sig.KeyID}
		}
		seen[sig.KeyID] = true
	}
	return nil
}

func checkType[T Roles](data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return ErrMalformedMetadata{Msg: err.Error()}
	}
	signedRaw, ok := m["signed"].(map[string]any)
	if !ok {
		return ErrMalformedMetadata{Msg: "missing signed field"}
	}
	signedType, ok := signedRaw["_type"].(string)
	if !ok {
		return ErrMalformedMetadata{Msg: "missing signed._type field"}
	}
	var want string
	switch any(new(T)).(type) {
	case *RootType:
		want = ROOT
	case *SnapshotType:
		want = SNAPSHOT
	case *TimestampType:
		want = TIMESTAMP
	case *TargetsType:
		want = TARGETS
	default:
		return ErrMalformedMetadata{Msg: "unrecognized metadata type"}
	}
	if want != signedType {
		return ErrMalformedMetadata{Msg: "expected metadata type " + want + ", got " + signedType}
	}
	return nil
}

// checkSpecVersion enforces spec.md §4.1: spec_version must split into 2
// or 3 numeric components, with the major component equal to 1.
func checkSpecVersion[T Roles](meta *Metadata[T]) error {
	v := specVersionOf(meta)
	parts := strings.Split(v, ".")
	if len(parts) != 2 && len(parts) != 3 {
		return ErrMalformedMetadata{Msg: "spec_version must have 2 or 3 components, got " + v}
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return ErrMalformedMetadata{Msg: "spec_version component is not numeric: " + p}
		}
	}
	if parts[0] != "1" {
		return ErrMalformedMetadata{Msg: "unsupported spec_version major component: " + parts[0]}
	}
	return nil
}

func specVersionOf[T Roles](meta *Metadata[T]) string {
	switch s := any(meta.Signed).(type) {
	case RootType:
		return s.SpecVersion
	case SnapshotType:
		return s.SpecVersion
	case TimestampType:
		return s.SpecVersion
	case TargetsType:
		return s.SpecVersion
	}
	return ""
}

func verifyLength(data []byte, length int64) error {
	if int64(len(data)) != length {
		return ErrLengthOrHashMismatch{Msg: "length verification failed"}
	}
	return nil
}

// computeHash maps a TUF hash-algorithm name onto a hex digest of data.
// sha256/sha512 go through opencontainers/go-digest; blake2b-256 (not one
// of go-digest's built-in algorithms) is computed directly via
// golang.org/x/crypto/blake2b. This is the single place a further
// algorithm would be registered.
func computeHash(name string, data []byte) (string, error) {
	switch name {
	case "sha256":
		return digest.SHA256.FromBytes(data).Encoded(), nil
	case "sha512":
		return digest.SHA512.FromBytes(data).Encoded(), nil
	case "blake2b-256":
		sum := blake2b.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", ErrLengthOrHashMismatch{Msg: "unknown hashing algorithm " + name}
	}
}

func verifyHashes(data []byte, hashes Hashes) error {
	for name, want := range hashes {
		got, err := computeHash(name, data)
		if err != nil {
			return err
		}
		if got != want.String() {
			return ErrLengthOrHashMismatch{Msg: "hash mismatch for algorithm " + name}
		}
	}
	return nil
}

