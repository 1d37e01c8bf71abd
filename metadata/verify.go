package metadata

import "fmt"

// Verifier abstracts the cryptographic signature check the trusted
// metadata core depends on but never implements itself: given a candidate
// key and the exact bytes that were signed, report whether sig is a valid
// signature over data under that key's type/scheme. Implementations live
// outside this package (see the sibling verify package for a default one)
// so the core has no hard dependency on any particular crypto library.
type Verifier interface {
	Verify(key *Key, data, sig []byte) (bool, error)
}

// Signer abstracts producing a signature; only used by test fixtures and
// by repository-side tooling, never by the client trust core itself.
type Signer interface {
	SignMessage(data []byte) ([]byte, error)
	PublicKey() (*Key, error)
}

// VerifyDelegate checks that delegatedMetadata carries at least the
// delegated role's threshold of distinct, valid signatures, where the
// delegated role's keys/keyids/threshold are looked up in meta (Root for
// top-level roles, a parent Targets for delegated roles).
func (meta *Metadata[T]) VerifyDelegate(delegatedRole string, delegatedMetadata any, verifier Verifier) error {
	var keys map[string]*Key
	var roleKeyIDs []string
	var roleThreshold int

	switch d := any(meta).(type) {
	case *Metadata[RootType]:
		keys = d.Signed.Keys
		role, ok := d.Signed.Roles[delegatedRole]
		if !ok {
			return ErrValue{Msg: fmt.Sprintf("no delegation found for %s", delegatedRole)}
		}
		roleKeyIDs = role.KeyIDs
		roleThreshold = role.Threshold
	case *Metadata[TargetsType]:
		if d.Signed.Delegations == nil {
			return ErrValue{Msg: fmt.Sprintf("no delegation found for %s", delegatedRole)}
		}
		keys = d.Signed.Delegations.Keys
		for _, r := range d.Signed.Delegations.Roles {
			if r.Name == delegatedRole {
				roleKeyIDs = r.KeyIDs
				roleThreshold = r.Threshold
				break
			}
		}
	default:
		return ErrType{Msg: "VerifyDelegate is valid only on root or targets metadata"}
	}

	if len(roleKeyIDs) == 0 {
		return ErrValue{Msg: fmt.Sprintf("no delegation found for %s", delegatedRole)}
	}

	var payload []byte
	var signatures []Signature
	switch d := delegatedMetadata.(type) {
	case *Metadata[RootType]:
		payload, signatures = signedPayload(d.Signed, d.Signatures)
	case *Metadata[SnapshotType]:
		payload, signatures = signedPayload(d.Signed, d.Signatures)
	case *Metadata[TimestampType]:
		payload, signatures = signedPayload(d.Signed, d.Signatures)
	case *Metadata[TargetsType]:
		payload, signatures = signedPayload(d.Signed, d.Signatures)
	default:
		return ErrType{Msg: "unrecognized delegated metadata type"}
	}
	if payload == nil {
		return ErrMalformedMetadata{Msg: "failed to canonicalize delegated metadata"}
	}

	return verifyThreshold(keys, roleKeyIDs, roleThreshold, payload, signatures, verifier, delegatedRole)
}

func signedPayload(signed any, signatures []Signature) ([]byte, []Signature) {
	data, err := CanonicalBytes(signed)
	if err != nil {
		return nil, nil
	}
	return data, signatures
}

// verifyThreshold implements the Signature verification rule: iterate
// roleKeyIDs in declared order, for each find the matching signature and
// key, invoke the verifier, and count distinct contributing keyids.
// A failed or missing signature for a keyid is not fatal by itself; only
// the final threshold comparison matters.
func verifyThreshold(keys map[string]*Key, roleKeyIDs []string, threshold int, payload []byte, signatures []Signature, verifier Verifier, roleName string) error {
	contributing := map[string]bool{}
	for _, keyID := range roleKeyIDs {
		key, ok := keys[keyID]
		if !ok {
			return ErrRepository{Msg: fmt.Sprintf("key %s not found for role %s", keyID, roleName)}
		}
		var sig *Signature
		for i := range signatures {
			if signatures[i].KeyID == keyID {
				sig = &signatures[i]
				break
			}
		}
		if sig == nil {
			log.Info("missing signature", "role", roleName, "keyid", keyID)
			continue
		}
		ok, err := verifier.Verify(key, payload, sig.Signature)
		if err != nil || !ok {
			log.Info("signature verification failed", "role", roleName, "keyid", keyID)
			continue
		}
		contributing[keyID] = true
	}
	if len(contributing) < threshold {
		return ErrUnsignedMetadata{Msg: fmt.Sprintf("verifying %s failed: got %d valid signatures, want %d", roleName, len(contributing), threshold)}
	}
	return nil
}

// Sign appends a new signature over the canonical encoding of Signed,
// produced by signer. Used by repository-side tooling and test fixtures;
// the client trust core never calls it.
func (meta *Metadata[T]) Sign(signer Signer) (*Signature, error) {
	payload, err := CanonicalBytes(meta.Signed)
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignMessage(payload)
	if err != nil {
		return nil, ErrUnsignedMetadata{Msg: "problem signing metadata: " + err.Error()}
	}
	key, err := signer.PublicKey()
	if err != nil {
		return nil, err
	}
	s := Signature{KeyID: key.ID(), Signature: sig}
	meta.Signatures = append(meta.Signatures, s)
	return &s, nil
}

// ClearSignatures drops all signatures from meta.
func (meta *Metadata[T]) ClearSignatures() {
	meta.Signatures = []Signature{}
}
