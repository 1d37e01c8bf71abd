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
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/secure-systems-lab/go-securesystemslib/cjson"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"golang.org/x/exp/slices"
)

// Key type/scheme identifiers recognized by this module.
const (
	KeyTypeEd25519             = "ed25519"
	KeyTypeECDSA_SHA2_P256     = "ecdsa-sha2-nistp256"
	KeyTypeRSASSA_PSS_SHA256   = "rsa"
	KeySchemeEd25519           = "ed25519"
	KeySchemeECDSA_SHA2_P256   = "ecdsa-sha2-nistp256"
	KeySchemeRSASSA_PSS_SHA256 = "rsassa-pss-sha256"
)

// ToPublicKey decodes the wire-format public key material into a
// crypto.PublicKey, selecting a decoder by Key.Type.
func (k *Key) ToPublicKey() (crypto.PublicKey, error) {
	switch k.Type {
	case KeyTypeRSASSA_PSS_SHA256:
		pub, err := cryptoutils.UnmarshalPEMToPublicKey([]byte(k.Value.PublicKey))
		if err != nil {
			return nil, err
		}
		rsaKey, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("invalid rsa public key")
		}
		return rsaKey, nil
	case KeyTypeECDSA_SHA2_P256:
		pub, err := cryptoutils.UnmarshalPEMToPublicKey([]byte(k.Value.PublicKey))
		if err != nil {
			return nil, err
		}
		ecdsaKey, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("invalid ecdsa public key")
		}
		return ecdsaKey, nil
	case KeyTypeEd25519:
		raw, err := hex.DecodeString(k.Value.PublicKey)
		if err != nil {
			return nil, err
		}
		return ed25519.PublicKey(raw), nil
	}
	return nil, fmt.Errorf("unsupported public key type %q", k.Type)
}

// KeyFromPublicKey builds a wire-format Key from a crypto.PublicKey,
// choosing type/scheme/encoding by its concrete Go type.
func KeyFromPublicKey(pub crypto.PublicKey) (*Key, error) {
	key := &Key{UnrecognizedFields: map[string]any{}}
	switch pk := pub.(type) {
	case *rsa.PublicKey:
		key.Type = KeyTypeRSASSA_PSS_SHA256
		key.Scheme = KeySchemeRSASSA_PSS_SHA256
		pemKey, err := cryptoutils.MarshalPublicKeyToPEM(pk)
		if err != nil {
			return nil, err
		}
		key.Value.PublicKey = string(pemKey)
	case *ecdsa.PublicKey:
		key.Type = KeyTypeECDSA_SHA2_P256
		key.Scheme = KeySchemeECDSA_SHA2_P256
		pemKey, err := cryptoutils.MarshalPublicKeyToPEM(pk)
		if err != nil {
			return nil, err
		}
		key.Value.PublicKey = string(pemKey)
	case ed25519.PublicKey:
		key.Type = KeyTypeEd25519
		key.Scheme = KeySchemeEd25519
		key.Value.PublicKey = hex.EncodeToString(pk)
	default:
		if _, err := x509.MarshalPKIXPublicKey(pub); err != nil {
			return nil, fmt.Errorf("unsupported public key type %T", pub)
		}
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}
	return key, nil
}

// ID returns the keyID for this key: the hex SHA-256 of its canonical JSON
// encoding, memoized since keys are immutable once parsed.
func (k *Key) ID() string {
	k.idOnce.Do(func() {
		data, err := cjson.EncodeCanonical(k)
		if err != nil {
			panic(fmt.Errorf("error computing key ID: %w", err))
		}
		digest := sha256.Sum256(data)
		k.id = hex.EncodeToString(digest[:])
	})
	return k.id
}

// AddKey authorizes key for role, appending its ID to the role's keyids and
// registering the key itself in Keys. No-op if already present.
func (signed *RootType) AddKey(key *Key, role string) error {
	r, ok := signed.Roles[role]
	if !ok {
		return ErrValue{Msg: fmt.Sprintf("role %s doesn't exist", role)}
	}
	if !slices.Contains(r.KeyIDs, key.ID()) {
		r.KeyIDs = append(r.KeyIDs, key.ID())
	}
	signed.Keys[key.ID()] = key
	return nil
}

// RevokeKey removes keyID's authorization for role, and drops it from Keys
// if no other role still references it.
func (signed *RootType) RevokeKey(keyID, role string) error {
	r, ok := signed.Roles[role]
	if !ok {
		return ErrValue{Msg: fmt.Sprintf("role %s doesn't exist", role)}
	}
	if !slices.Contains(r.KeyIDs, keyID) {
		return ErrValue{Msg: fmt.Sprintf("key %s is not used by %s", keyID, role)}
	}
	filtered := make([]string, 0, len(r.KeyIDs))
	for _, id := range r.KeyIDs {
		if id != keyID {
			filtered = append(filtered, id)
		}
	}
	r.KeyIDs = filtered
	for _, other := range signed.Roles {
		if slices.Contains(other.KeyIDs, keyID) {
			return nil
		}
	}
	delete(signed.Keys, keyID)
	return nil
}

// AddKey authorizes key for the named delegated role.
func (signed *TargetsType) AddKey(key *Key, role string) error {
	if signed.Delegations == nil {
		return ErrValue{Msg: fmt.Sprintf("delegated role %s doesn't exist", role)}
	}
	for i, d := range signed.Delegations.Roles {
		if d.Name != role {
			continue
		}
		if !slices.Contains(d.KeyIDs, key.ID()) {
			signed.Delegations.Roles[i].KeyIDs = append(signed.Delegations.Roles[i].KeyIDs, key.ID())
			signed.Delegations.Keys[key.ID()] = key
		}
		return nil
	}
	return ErrValue{Msg: fmt.Sprintf("delegated role %s doesn't exist", role)}
}

// RevokeKey removes keyID's authorization for the named delegated role.
func (signed *TargetsType) RevokeKey(keyID, role string) error {
	if signed.Delegations == nil {
		return ErrValue{Msg: fmt.Sprintf("delegated role %s doesn't exist", role)}
	}
	for i, d := range signed.Delegations.Roles {
		if d.Name != role {
			continue
		}
		if !slices.Contains(d.KeyIDs, keyID) {
			return ErrValue{Msg: fmt.Sprintf("key %s is not used by %s", keyID, role)}
		}
		filtered := make([]string, 0, len(d.KeyIDs))
		for _, id := range d.KeyIDs {
			if id != keyID {
				filtered = append(filtered, id)
			}
		}
		signed.Delegations.Roles[i].KeyIDs = filtered
		for _, other := range signed.Delegations.Roles {
			if slices.Contains(other.KeyIDs, keyID) {
				return nil
			}
		}
		delete(signed.Delegations.Keys, keyID)
		return nil
	}
	return ErrValue{Msg: fmt.Sprintf("delegated role %s doesn't exist", role)}
}
