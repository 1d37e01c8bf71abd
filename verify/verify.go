// Package verify provides a default implementation of metadata.Verifier,
// the cryptographic signature-check interface the trusted metadata core
// depends on but never implements itself (spec.md §1 treats this as an
// external collaborator: verify(scheme, key, data, sig) -> bool).
package verify

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"

	"github.com/sigstore/sigstore/pkg/signature"
	"github.com/sigstore/sigstore/pkg/signature/options"

	"github.com/tuf-go/coretuf/metadata"
)

// Default is a metadata.Verifier backed by the standard library's crypto
// primitives (via sigstore's signature.LoadVerifier for PSS/ECDSA option
// handling), supporting the three key types spec.md §3 keys can carry:
// ed25519, ecdsa-sha2-nistp256 and rsassa-pss-sha256.
type Default struct{}

// New returns the default Verifier.
func New() metadata.Verifier {
	return Default{}
}

// Verify implements metadata.Verifier.
func (Default) Verify(key *metadata.Key, data, sig []byte) (bool, error) {
	pub, err := key.ToPublicKey()
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}

	hash := crypto.Hash(0)
	if key.Type != metadata.KeyTypeEd25519 {
		hash = crypto.SHA256
	}

	var verifier signature.Verifier
	switch typed := pub.(type) {
	case ed25519.PublicKey, *ecdsa.PublicKey:
		verifier, err = signature.LoadVerifier(pub, hash)
	case *rsa.PublicKey:
		// rsassa-pss-sha256, per the key scheme: PKCS1v15 (LoadVerifier's
		// default for RSA) would accept signatures the scheme never
		// promised to produce.
		verifier, err = signature.LoadVerifierWithOpts(typed, options.WithRSAPSS(&rsa.PSSOptions{Hash: crypto.SHA256}))
	default:
		return false, fmt.Errorf("verify: unsupported key type %T", pub)
	}
	if err != nil {
		return false, fmt.Errorf("verify: loading verifier: %w", err)
	}
	if err := verifier.VerifySignature(bytes.NewReader(sig), bytes.NewReader(data)); err != nil {
		return false, nil
	}
	return true, nil
}
