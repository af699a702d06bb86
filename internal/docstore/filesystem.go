package docstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"certvault-go/internal/cert"
)

// FileSystemVault stores documents as files under a root directory:
//
//	<root>/
//	  content/
//	    <locator>   (document files, named by fingerprint)
type FileSystemVault struct {
	name       string
	root       string
	contentDir string
}

var _ cert.DocumentVault = (*FileSystemVault)(nil)

// NewFileSystemVault creates a filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	contentDir := filepath.Join(root, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}

	return &FileSystemVault{
		name:       name,
		root:       root,
		contentDir: contentDir,
	}, nil
}

// Put stores content under the locator. Idempotent: if the locator already
// exists the reader is drained and the stored file left untouched.
func (v *FileSystemVault) Put(locator string, r io.Reader, size int64) error {
	destPath := filepath.Join(v.contentDir, locator)

	if _, err := os.Stat(destPath); err == nil {
		written, err := io.Copy(io.Discard, r)
		if err != nil {
			return fmt.Errorf("failed to read content: %w", err)
		}
		if written != size {
			return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
		}
		return nil
	}

	// Write to a temp file first so a partial write never masquerades as
	// stored content.
	tmp, err := os.CreateTemp(v.contentDir, ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write content: %w", err)
	}
	if written != size {
		os.Remove(tmpPath)
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize content: %w", err)
	}
	return nil
}

// Get retrieves content by locator.
func (v *FileSystemVault) Get(locator string, w io.Writer) error {
	f, err := os.Open(filepath.Join(v.contentDir, locator))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("content not found: %s", locator)
		}
		return fmt.Errorf("failed to open content: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write content: %w", err)
	}
	return nil
}

// Exists reports whether content is present for the locator.
func (v *FileSystemVault) Exists(locator string) (bool, error) {
	_, err := os.Stat(filepath.Join(v.contentDir, locator))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat content: %w", err)
}

// ValidateSetup verifies the content directory exists and is writable.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.contentDir)
	if err != nil {
		return fmt.Errorf("content directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content path is not a directory: %s", v.contentDir)
	}
	return nil
}
