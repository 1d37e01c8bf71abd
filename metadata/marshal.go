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
	"errors"
)

// These Marshal/Unmarshal pairs are how this module achieves the
// round-trip property required by the spec: encoding/json has no native
// "preserve whatever I didn't declare a field for" mode, so every
// JSON-object type carries an UnrecognizedFields bag that Unmarshal fills
// with whatever wasn't a known field, and Marshal merges back in.

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || len(data)%2 != 0 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("metadata: invalid JSON hex bytes")
	}
	res := make([]byte, hex.DecodedLen(len(data)-2))
	if _, err := hex.Decode(res, data[1:len(data)-1]); err != nil {
		return err
	}
	*b = res
	return nil
}

func (b HexBytes) MarshalJSON() ([]byte, error) {
	res := make([]byte, hex.EncodedLen(len(b))+2)
	res[0] = '"'
	res[len(res)-1] = '"'
	hex.Encode(res[1:], b)
	return res, nil
}

func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

func (signed RootType) MarshalJSON() ([]byte, error) {
	dict := cloneFields(signed.UnrecognizedFields)
	dict["_type"] = signed.Type
	dict["spec_version"] = signed.SpecVersion
	dict["consistent_snapshot"] = signed.ConsistentSnapshot
	dict["version"] = signed.Version
	dict["expires"] = signed.Expires
	dict["keys"] = signed.Keys
	dict["roles"] = signed.Roles
	return json.Marshal(dict)
}

func (signed *RootType) UnmarshalJSON(data []byte) error {
	type alias RootType
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*signed = RootType(a)
	dict, err := unrecognized(data, "_type", "spec_version", "consistent_snapshot", "version", "expires", "keys", "roles")
	if err != nil {
		return err
	}
	signed.UnrecognizedFields = dict
	return nil
}

func (signed SnapshotType) MarshalJSON() ([]byte, error) {
	dict := cloneFields(signed.UnrecognizedFields)
	dict["_type"] = signed.Type
	dict["spec_version"] = signed.SpecVersion
	dict["version"] = signed.Version
	dict["expires"] = signed.Expires
	dict["meta"] = signed.Meta
	return json.Marshal(dict)
}

func (signed *SnapshotType) UnmarshalJSON(data []byte) error {
	type alias SnapshotType
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*signed = SnapshotType(a)
	dict, err := unrecognized(data, "_type", "spec_version", "version", "expires", "meta")
	if err != nil {
		return err
	}
	signed.UnrecognizedFields = dict
	return nil
}

func (signed TimestampType) MarshalJSON() ([]byte, error) {
	dict := cloneFields(signed.UnrecognizedFields)
	dict["_type"] = signed.Type
	dict["spec_version"] = signed.SpecVersion
	dict["version"] = signed.Version
	dict["expires"] = signed.Expires
	dict["meta"] = signed.Meta
	return json.Marshal(dict)
}

func (signed *TimestampType) UnmarshalJSON(data []byte) error {
	type alias TimestampType
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*signed = TimestampType(a)
	dict, err := unrecognized(data, "_type", "spec_version", "version", "expires", "meta")
	if err != nil {
		return err
	}
	signed.UnrecognizedFields = dict
	return nil
}

func (signed TargetsType) MarshalJSON() ([]byte, error) {
	dict := cloneFields(signed.UnrecognizedFields)
	dict["_type"] = signed.Type
	dict["spec_version"] = signed.SpecVersion
	dict["version"] = signed.Version
	dict["expires"] = signed.Expires
	dict["targets"] = signed.Targets
	if signed.Delegations != nil {
		dict["delegations"] = signed.Delegations
	}
	return json.Marshal(dict)
}

func (signed *TargetsType) UnmarshalJSON(data []byte) error {
	type alias TargetsType
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*signed = TargetsType(a)
	dict, err := unrecognized(data, "_type", "spec_version", "version", "expires", "targets", "delegations")
	if err != nil {
		return err
	}
	signed.UnrecognizedFields = dict
	return nil
}

func (m MetaFiles) MarshalJSON() ([]byte, error) {
	dict := cloneFields(m.UnrecognizedFields)
	if m.Length != 0 {
		dict["length"] = m.Length
	}
	if m.Hashes != nil {
		dict["hashes"] = m.Hashes
	}
	dict["version"] = m.Version
	return json.Marshal(dict)
}

func (m *MetaFiles) UnmarshalJSON(data []byte) error {
	type alias MetaFiles
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = MetaFiles(a)
	dict, err := unrecognized(data, "length", "hashes", "version")
	if err != nil {
		return err
	}
	m.UnrecognizedFields = dict
	return nil
}

func (t TargetFiles) MarshalJSON() ([]byte, error) {
	dict := cloneFields(t.UnrecognizedFields)
	dict["length"] = t.Length
	dict["hashes"] = t.Hashes
	return json.Marshal(dict)
}

func (t *TargetFiles) UnmarshalJSON(data []byte) error {
	type alias TargetFiles
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = TargetFiles(a)
	dict, err := unrecognized(data, "length", "hashes")
	if err != nil {
		return err
	}
	t.UnrecognizedFields = dict
	return nil
}

func (k *Key) MarshalJSON() ([]byte, error) {
	dict := cloneFields(k.UnrecognizedFields)
	dict["keytype"] = k.Type
	dict["scheme"] = k.Scheme
	dict["keyval"] = k.Value
	return json.Marshal(dict)
}

func (k *Key) UnmarshalJSON(data []byte) error {
	type alias struct {
		Type   string `json:"keytype"`
		Scheme string `json:"scheme"`
		Value  KeyVal `json:"keyval"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	k.Type = a.Type
	k.Scheme = a.Scheme
	k.Value = a.Value
	dict, err := unrecognized(data, "keytype", "scheme", "keyval")
	if err != nil {
		return err
	}
	k.UnrecognizedFields = dict
	return nil
}

func (kv KeyVal) MarshalJSON() ([]byte, error) {
	dict := cloneFields(kv.UnrecognizedFields)
	dict["public"] = kv.PublicKey
	return json.Marshal(dict)
}

func (kv *KeyVal) UnmarshalJSON(data []byte) error {
	type alias KeyVal
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*kv = KeyVal(a)
	dict, err := unrecognized(data, "public")
	if err != nil {
		return err
	}
	kv.UnrecognizedFields = dict
	return nil
}

func (r Role) MarshalJSON() ([]byte, error) {
	dict := cloneFields(r.UnrecognizedFields)
	dict["keyids"] = r.KeyIDs
	dict["threshold"] = r.Threshold
	return json.Marshal(dict)
}

func (r *Role) UnmarshalJSON(data []byte) error {
	type alias Role
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Role(a)
	dict, err := unrecognized(data, "keyids", "threshold")
	if err != nil {
		return err
	}
	r.UnrecognizedFields = dict
	return nil
}

func (d Delegations) MarshalJSON() ([]byte, error) {
	dict := cloneFields(d.UnrecognizedFields)
	dict["keys"] = d.Keys
	dict["roles"] = d.Roles
	return json.Marshal(dict)
}

func (d *Delegations) UnmarshalJSON(data []byte) error {
	type alias Delegations
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Delegations(a)
	dict, err := unrecognized(data, "keys", "roles")
	if err != nil {
		return err
	}
	d.UnrecognizedFields = dict
	return nil
}

func (d DelegatedRole) MarshalJSON() ([]byte, error) {
	dict := cloneFields(d.UnrecognizedFields)
	dict["name"] = d.Name
	dict["keyids"] = d.KeyIDs
	dict["threshold"] = d.Threshold
	dict["terminating"] = d.Terminating
	if len(d.Paths) > 0 {
		dict["paths"] = d.Paths
	}
	if len(d.PathHashPrefixes) > 0 {
		dict["path_hash_prefixes"] = d.PathHashPrefixes
	}
	return json.Marshal(dict)
}

func (d *DelegatedRole) UnmarshalJSON(data []byte) error {
	type alias DelegatedRole
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = DelegatedRole(a)
	dict, err := unrecognized(data, "name", "keyids", "threshold", "terminating", "paths", "path_hash_prefixes")
	if err != nil {
		return err
	}
	d.UnrecognizedFields = dict
	return nil
}

func (s Signature) MarshalJSON() ([]byte, error) {
	dict := cloneFields(s.UnrecognizedFields)
	dict["keyid"] = s.KeyID
	dict["sig"] = s.Signature
	return json.Marshal(dict)
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	type alias Signature
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Signature(a)
	dict, err := unrecognized(data, "keyid", "sig")
	if err != nil {
		return err
	}
	s.UnrecognizedFields = dict
	return nil
}

func (meta Metadata[T]) MarshalJSON() ([]byte, error) {
	dict := cloneFields(meta.UnrecognizedFields)
	dict["signed"] = meta.Signed
	dict["signatures"] = meta.Signatures
	return json.Marshal(dict)
}

func (meta *Metadata[T]) UnmarshalJSON(data []byte) error {
	dict := struct {
		Signed     T           `json:"signed"`
		Signatures []Signature `json:"signatures"`
	}{}
	if err := json.Unmarshal(data, &dict); err != nil {
		return err
	}
	meta.Signed = dict.Signed
	meta.Signatures = dict.Signatures
	unrec, err := unrecognized(data, "signed", "signatures")
	if err != nil {
		return err
	}
	meta.UnrecognizedFields = unrec
	return nil
}

// cloneFields returns a fresh map so repeated Marshal calls never mutate
// the UnrecognizedFields bag they read from.
func cloneFields(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+4)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// unrecognized decodes data as a generic object and strips the named
// known fields, leaving whatever the caller's type didn't declare.
func unrecognized(data []byte, known ...string) (map[string]any, error) {
	var dict map[string]any
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(dict, k)
	}
	return dict, nil
}
