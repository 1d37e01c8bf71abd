package metadata

import "github.com/secure-systems-lab/go-securesystemslib/cjson"

// CanonicalBytes returns the canonical JSON encoding of v: keys sorted
// lexicographically at every depth, no insignificant whitespace, integers
// without fractional parts, arrays in original order. This is the exact
// byte sequence signed and verified for any Signed body, which is what
// makes signatures stable across producers.
func CanonicalBytes(v any) ([]byte, error) {
	data, err := cjson.EncodeCanonical(v)
	if err != nil {
		return nil, ErrMalformedMetadata{Msg: err.Error()}
	}
	return data, nil
}
