package cert

import (
	"bytes"
	"fmt"
	"io"
)

// DocumentService moves documents in and out of the content-addressed vault.
// Stored content is keyed by the document's fingerprint, which doubles as
// the storage locator recorded on the certificate. Documents may be
// encrypted at rest; the locator always refers to the plaintext fingerprint
// so retrieval can re-check integrity after decryption.
type DocumentService struct {
	vault     DocumentVault
	encryptor Encryptor
	logger    Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(vault DocumentVault, encryptor Encryptor, logger Logger) *DocumentService {
	return &DocumentService{
		vault:     vault,
		encryptor: encryptor,
		logger:    logger,
	}
}

// Store fingerprints the document, optionally encrypts it, and writes it to
// the vault. Returns the fingerprint, which is both the document's identity
// and its storage locator. Storing the same document twice is idempotent.
func (s *DocumentService) Store(r io.Reader, encrypt bool) (locator string, err error) {
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	fingerprint := HashBytes(plaintext)

	payload := plaintext
	if encrypt {
		var buf bytes.Buffer
		if err := s.encryptor.Encrypt(bytes.NewReader(plaintext), &buf); err != nil {
			return "", fmt.Errorf("encrypting document: %w", err)
		}
		payload = buf.Bytes()
	}

	if err := s.vault.Put(fingerprint, bytes.NewReader(payload), int64(len(payload))); err != nil {
		return "", fmt.Errorf("storing document: %w", err)
	}

	s.logger.Debug("document stored", "locator", fingerprint, "encrypted", encrypt)
	return fingerprint, nil
}

// Fetch retrieves a document by locator, decrypting it when a decryption
// context is supplied, and re-checks the content against the locator before
// writing it out. A fingerprint mismatch means the vault content was
// corrupted or substituted.
func (s *DocumentService) Fetch(locator string, w io.Writer, decryptCtx DecryptionContext) error {
	var stored bytes.Buffer
	if err := s.vault.Get(locator, &stored); err != nil {
		return fmt.Errorf("fetching document: %w", err)
	}

	plaintext := stored.Bytes()
	if decryptCtx != nil {
		var buf bytes.Buffer
		if err := decryptCtx.Decrypt(&stored, &buf); err != nil {
			return fmt.Errorf("decrypting document: %w", err)
		}
		plaintext = buf.Bytes()
	}

	if got := HashBytes(plaintext); got != locator {
		return fmt.Errorf("document content does not match fingerprint %s", locator)
	}

	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}

// Exists reports whether the vault holds content for the locator.
func (s *DocumentService) Exists(locator string) (bool, error) {
	return s.vault.Exists(locator)
}
