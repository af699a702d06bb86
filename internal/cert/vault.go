package cert

import "io"

// DocumentVault is the content-addressed blob store for certificate
// documents. The locator is the document's fingerprint; the vault itself is
// storage-agnostic (memory, filesystem, S3). All operations stream through
// io.Reader/io.Writer so large documents never need to fit in memory.
type DocumentVault interface {
	// Put stores content under the given locator. Idempotent: storing the
	// same locator twice is safe. size is the number of bytes r will yield.
	Put(locator string, r io.Reader, size int64) error

	// Get retrieves content by locator and writes it to w.
	Get(locator string, w io.Writer) error

	// Exists reports whether content is present for the locator.
	Exists(locator string) (bool, error)

	// ValidateSetup verifies that the vault is accessible and properly
	// configured.
	ValidateSetup() error
}
