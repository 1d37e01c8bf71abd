package metadata

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func newFakeSigner() *fakeSigner {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return &fakeSigner{priv: priv, pub: pub}
}

func (s *fakeSigner) SignMessage(data []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, data), nil
}

func (s *fakeSigner) PublicKey() (*Key, error) {
	return &Key{
		Type:               KeyTypeEd25519,
		Scheme:             KeySchemeEd25519,
		Value:              KeyVal{PublicKey: hex.EncodeToString(s.pub)},
		UnrecognizedFields: map[string]any{},
	}, nil
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(key *Key, data, sig []byte) (bool, error) {
	raw, err := hex.DecodeString(key.Value.PublicKey)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(raw), data, sig), nil
}

func TestRootDefaults(t *testing.T) {
	root := Root()
	assert.Equal(t, ROOT, root.Signed.Type)
	assert.Equal(t, SpecificationVersion, root.Signed.SpecVersion)
	assert.Equal(t, int64(1), root.Signed.Version)
	assert.True(t, root.Signed.ConsistentSnapshot)
	for _, r := range []string{ROOT, SNAPSHOT, TARGETS, TIMESTAMP} {
		role, ok := root.Signed.Roles[r]
		require.True(t, ok)
		assert.Equal(t, 1, role.Threshold)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	signer := newFakeSigner()
	key, err := signer.PublicKey()
	require.NoError(t, err)

	root := Root(time.Now().UTC().Add(time.Hour))
	require.NoError(t, root.Signed.AddKey(key, ROOT))
	_, err = root.Sign(signer)
	require.NoError(t, err)

	data, err := root.ToBytes(true)
	require.NoError(t, err)

	parsed, err := Root().FromBytes(data)
	require.NoError(t, err)
	assert.Equal(t, root.Signed.Version, parsed.Signed.Version)
	assert.Len(t, parsed.Signatures, 1)
	assert.Equal(t, key.ID(), parsed.Signatures[0].KeyID)

	reencoded, err := parsed.ToBytes(true)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(reencoded))
}

func TestMetadataRoundTripPreservesUnrecognizedFields(t *testing.T) {
	root := Root()
	data, err := root.ToBytes(false)
	require.NoError(t, err)

	// simulate a newer producer adding a field this module doesn't know about
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	signed := raw["signed"].(map[string]any)
	signed["x-custom-extension"] = "kept"
	augmented, err := json.Marshal(raw)
	require.NoError(t, err)

	parsed, err := Root().FromBytes(augmented)
	require.NoError(t, err)
	assert.Equal(t, "kept", parsed.Signed.UnrecognizedFields["x-custom-extension"])

	reencoded, err := parsed.ToBytes(false)
	require.NoError(t, err)
	assert.JSONEq(t, string(augmented), string(reencoded))
}

func TestCheckTypeRejectsMismatch(t *testing.T) {
	snap := Snapshot()
	data, err := snap.ToBytes(false)
	require.NoError(t, err)

	_, err = Root().FromBytes(data)
	var malformed ErrMalformedMetadata
	assert.ErrorAs(t, err, &malformed)
}

func TestCheckSpecVersionRejectsUnsupportedMajor(t *testing.T) {
	root := Root()
	root.Signed.SpecVersion = "2.0.0"
	data, err := root.ToBytes(false)
	require.NoError(t, err)

	_, err = Root().FromBytes(data)
	var malformed ErrMalformedMetadata
	assert.ErrorAs(t, err, &malformed)
}

func TestCheckUniqueSignaturesRejectsDuplicateKeyIDs(t *testing.T) {
	root := Root()
	data, err := root.ToBytes(false)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["signatures"] = []map[string]any{
		{"keyid": "abc", "sig": "aa"},
		{"keyid": "abc", "sig": "bb"},
	}
	dup, err := json.Marshal(raw)
	require.NoError(t, err)

	_, err = Root().FromBytes(dup)
	var malformed ErrMalformedMetadata
	assert.ErrorAs(t, err, &malformed)
}

func TestIsExpiredAtExactInstant(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	root := Root(now)
	assert.True(t, root.Signed.IsExpired(now), "expiry is inclusive: now == expires counts as expired")
	assert.False(t, root.Signed.IsExpired(now.Add(-time.Second)))
	assert.True(t, root.Signed.IsExpired(now.Add(time.Second)))
}

func TestTargetFilesFromBytesSha256(t *testing.T) {
	tf, err := (&TargetFiles{}).FromBytes("a/b.txt", []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello world")), tf.Length)
	require.Contains(t, tf.Hashes, "sha256")
	assert.NoError(t, tf.VerifyLengthHashes([]byte("hello world")))
	assert.Error(t, tf.VerifyLengthHashes([]byte("tampered")))
}

func TestTargetFilesFromBytesBlake2b(t *testing.T) {
	tf, err := (&TargetFiles{}).FromBytes("a/b.txt", []byte("hello world"), "blake2b-256")
	require.NoError(t, err)
	require.Contains(t, tf.Hashes, "blake2b-256")
	assert.NoError(t, tf.VerifyLengthHashes([]byte("hello world")))
}

func TestTargetFilesFromBytesUnknownAlgorithm(t *testing.T) {
	_, err := (&TargetFiles{}).FromBytes("a/b.txt", []byte("hi"), "md5")
	assert.ErrorIs(t, err, ErrLengthOrHashMismatch{})
}

func TestVerifyLengthHashesLengthMismatch(t *testing.T) {
	tf, err := (&TargetFiles{}).FromBytes("a/b.txt", []byte("hello world"))
	require.NoError(t, err)
	tf.Length = 3
	err = tf.VerifyLengthHashes([]byte("hello world"))
	assert.ErrorIs(t, err, ErrLengthOrHashMismatch{})
}

func TestVerifyDelegateThreshold(t *testing.T) {
	signerA := newFakeSigner()
	signerB := newFakeSigner()
	keyA, _ := signerA.PublicKey()
	keyB, _ := signerB.PublicKey()

	root := Root()
	require.NoError(t, root.Signed.AddKey(keyA, ROOT))
	require.NoError(t, root.Signed.AddKey(keyB, ROOT))
	root.Signed.Roles[ROOT].Threshold = 2

	_, err := root.Sign(signerA)
	require.NoError(t, err)

	v := fakeVerifier{}
	err = root.VerifyDelegate(ROOT, root, v)
	var unsigned ErrUnsignedMetadata
	require.ErrorAs(t, err, &unsigned)

	_, err = root.Sign(signerB)
	require.NoError(t, err)
	assert.NoError(t, root.VerifyDelegate(ROOT, root, v))
}
