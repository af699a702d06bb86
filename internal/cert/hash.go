package cert

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashHexLen is the length of every digest produced by this package:
// SHA-256, lowercase hex.
const HashHexLen = 64

// HashBytes returns the SHA-256 digest of b as lowercase hex.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashString returns the SHA-256 digest of s as lowercase hex.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashObject canonicalizes v and returns the SHA-256 digest of the canonical
// form. Semantically identical objects hash equal regardless of map key
// order or struct field order. Returns ErrEncoding if v cannot be
// serialized.
func HashObject(v any) (string, error) {
	canonical, err := canonicalJSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(canonical), nil
}

// canonicalJSON serializes v twice: once to JSON, then through a generic
// decode and re-encode. encoding/json sorts map keys on output, so the
// second pass yields a key-order-independent byte form for any input,
// including structs (their fields become map entries on the round trip).
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return canonical, nil
}

// isHexDigest reports whether s is a well-formed digest as produced by this
// package.
func isHexDigest(s string) bool {
	if len(s) != HashHexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
