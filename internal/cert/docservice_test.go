package cert_test

import (
	"bytes"
	"strings"
	"testing"

	"certvault-go/internal/cert"
	"certvault-go/internal/docstore"
	"certvault-go/internal/encryption"
)

func TestDocumentService_Store(t *testing.T) {
	t.Run("stores plaintext under its fingerprint", func(t *testing.T) {
		vault := docstore.NewMemoryVault("test")
		svc := cert.NewDocumentService(vault, encryption.NewTestEncryptor(), cert.NewNopLogger())

		content := []byte("diploma for alice")
		locator, err := svc.Store(bytes.NewReader(content), false)
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		if locator != cert.HashBytes(content) {
			t.Errorf("locator = %q, want the content fingerprint", locator)
		}

		exists, err := svc.Exists(locator)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !exists {
			t.Error("stored document not found in vault")
		}
	})

	t.Run("encrypted storage differs from the plaintext", func(t *testing.T) {
		vault := docstore.NewMemoryVault("test")
		svc := cert.NewDocumentService(vault, encryption.NewTestEncryptor(), cert.NewNopLogger())

		content := []byte("diploma for alice")
		locator, err := svc.Store(bytes.NewReader(content), true)
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		// The locator is still the plaintext fingerprint.
		if locator != cert.HashBytes(content) {
			t.Errorf("locator = %q, want the plaintext fingerprint", locator)
		}

		var stored bytes.Buffer
		if err := vault.Get(locator, &stored); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if bytes.Equal(stored.Bytes(), content) {
			t.Error("vault holds the plaintext despite encryption")
		}
	})
}

func TestDocumentService_Fetch(t *testing.T) {
	t.Run("round-trips plaintext", func(t *testing.T) {
		vault := docstore.NewMemoryVault("test")
		svc := cert.NewDocumentService(vault, encryption.NewTestEncryptor(), cert.NewNopLogger())

		content := []byte("diploma for alice")
		locator, err := svc.Store(bytes.NewReader(content), false)
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		var out bytes.Buffer
		if err := svc.Fetch(locator, &out, nil); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !bytes.Equal(out.Bytes(), content) {
			t.Errorf("Fetch() = %q, want %q", out.Bytes(), content)
		}
	})

	t.Run("round-trips through encryption", func(t *testing.T) {
		vault := docstore.NewMemoryVault("test")
		encryptor := encryption.NewTestEncryptor()
		svc := cert.NewDocumentService(vault, encryptor, cert.NewNopLogger())

		content := []byte("diploma for alice")
		locator, err := svc.Store(bytes.NewReader(content), true)
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		decryptCtx, err := encryptor.Unlock("")
		if err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}

		var out bytes.Buffer
		if err := svc.Fetch(locator, &out, decryptCtx); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !bytes.Equal(out.Bytes(), content) {
			t.Errorf("Fetch() = %q, want %q", out.Bytes(), content)
		}
	})

	t.Run("detects corrupted vault content", func(t *testing.T) {
		vault := docstore.NewMemoryVault("test")
		svc := cert.NewDocumentService(vault, encryption.NewTestEncryptor(), cert.NewNopLogger())

		content := []byte("diploma for alice")
		locator, err := svc.Store(bytes.NewReader(content), false)
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}

		// Substitute the stored content behind the same locator.
		garbage := []byte("tampered")
		if err := vault.Put(locator, bytes.NewReader(garbage), int64(len(garbage))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var out bytes.Buffer
		err = svc.Fetch(locator, &out, nil)
		if err == nil {
			t.Fatal("Fetch() expected error for corrupted content")
		}
		if !strings.Contains(err.Error(), "does not match fingerprint") {
			t.Errorf("Fetch() error = %v, want fingerprint mismatch", err)
		}
	})

	t.Run("reports missing locators", func(t *testing.T) {
		vault := docstore.NewMemoryVault("test")
		svc := cert.NewDocumentService(vault, encryption.NewTestEncryptor(), cert.NewNopLogger())

		var out bytes.Buffer
		if err := svc.Fetch(cert.HashString("missing"), &out, nil); err == nil {
			t.Error("Fetch() expected error for unknown locator")
		}
	})
}
