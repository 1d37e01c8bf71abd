package verify

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"testing"

	"github.com/sigstore/sigstore/pkg/signature"
	"github.com/sigstore/sigstore/pkg/signature/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuf-go/coretuf/metadata"
)

func TestVerifyEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	key := &metadata.Key{
		Type:   metadata.KeyTypeEd25519,
		Scheme: metadata.KeySchemeEd25519,
		Value:  metadata.KeyVal{PublicKey: hex.EncodeToString(pub)},
	}
	data := []byte("payload to sign")
	sig := ed25519.Sign(priv, data)

	v := New()
	ok, err := v.Verify(key, data, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(key, []byte("tampered payload"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyECDSA(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	key, err := metadata.KeyFromPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	signer, err := signature.LoadSigner(priv, crypto.SHA256)
	require.NoError(t, err)
	data := []byte("ecdsa payload")
	sig, err := signer.SignMessage(bytes.NewReader(data))
	require.NoError(t, err)

	v := New()
	ok, err := v.Verify(key, data, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRSA(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := metadata.KeyFromPublicKey(&priv.PublicKey)
	require.NoError(t, err)

	// the key scheme is rsassa-pss-sha256; sign with PSS to match what
	// verify.Default actually checks against an RSA public key.
	signer, err := signature.LoadSignerWithOpts(priv, options.WithRSAPSS(&rsa.PSSOptions{Hash: crypto.SHA256}))
	require.NoError(t, err)
	data := []byte("rsa payload")
	sig, err := signer.SignMessage(bytes.NewReader(data))
	require.NoError(t, err)

	v := New()
	ok, err := v.Verify(key, data, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyUnsupportedKeyType(t *testing.T) {
	key := &metadata.Key{Type: "unknown-type", Scheme: "unknown-scheme"}
	v := New()
	_, err := v.Verify(key, []byte("x"), []byte("y"))
	assert.Error(t, err)
}
