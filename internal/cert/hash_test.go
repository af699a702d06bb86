package cert_test

import (
	"errors"
	"testing"

	"certvault-go/internal/cert"
)

func TestHashString(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		if cert.HashString("hello") != cert.HashString("hello") {
			t.Error("same input hashed to different digests")
		}
		if cert.HashString("hello") == cert.HashString("world") {
			t.Error("different inputs hashed to the same digest")
		}
	})

	t.Run("produces 64-char lowercase hex", func(t *testing.T) {
		digest := cert.HashString("hello")
		if len(digest) != cert.HashHexLen {
			t.Fatalf("digest length = %d, want %d", len(digest), cert.HashHexLen)
		}
		for i := 0; i < len(digest); i++ {
			c := digest[i]
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				t.Fatalf("digest contains non-hex character %q", c)
			}
		}
	})
}

func TestHashObject(t *testing.T) {
	t.Run("is independent of field order", func(t *testing.T) {
		type ba struct {
			B string `json:"b"`
			A string `json:"a"`
		}

		fromStruct, err := cert.HashObject(ba{B: "2", A: "1"})
		if err != nil {
			t.Fatalf("HashObject(struct) error = %v", err)
		}
		fromMap, err := cert.HashObject(map[string]string{"a": "1", "b": "2"})
		if err != nil {
			t.Fatalf("HashObject(map) error = %v", err)
		}

		if fromStruct != fromMap {
			t.Error("semantically equal objects hashed to different digests")
		}
	})

	t.Run("distinguishes different values", func(t *testing.T) {
		first, err := cert.HashObject(map[string]int{"n": 1})
		if err != nil {
			t.Fatalf("HashObject() error = %v", err)
		}
		second, err := cert.HashObject(map[string]int{"n": 2})
		if err != nil {
			t.Fatalf("HashObject() error = %v", err)
		}
		if first == second {
			t.Error("different objects hashed to the same digest")
		}
	})

	t.Run("reports unserializable values", func(t *testing.T) {
		_, err := cert.HashObject(func() {})
		if !errors.Is(err, cert.ErrEncoding) {
			t.Fatalf("HashObject(func) error = %v, want ErrEncoding", err)
		}
	})
}
