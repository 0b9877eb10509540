// Package fingerprint computes the content hashes used for change detection.
// The same digest algorithm covers page bodies and attachments so equality
// is comparable everywhere.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
)

// AttachmentDigest pairs an attachment filename with the hash of its bytes.
type AttachmentDigest struct {
	Filename string
	Hash     string
}

// Bytes returns the hex sha256 digest of b.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// File returns the hex sha256 digest of the file contents.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Page fingerprints a rendered page: the body markup plus the sorted
// (filename, content hash) pairs of its attachments. Any byte-level change
// in either yields a different digest; attachment order does not.
func Page(body string, attachments []AttachmentDigest) string {
	sorted := append([]AttachmentDigest(nil), attachments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	hash := sha256.New()
	hash.Write([]byte(body))
	for _, att := range sorted {
		hash.Write([]byte{0})
		hash.Write([]byte(att.Filename))
		hash.Write([]byte{0})
		hash.Write([]byte(att.Hash))
	}
	return hex.EncodeToString(hash.Sum(nil))
}
