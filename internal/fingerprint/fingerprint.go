// Package fingerprint computes the content digests used for file-level
// idempotency and for synthesized conversion identifiers.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// File computes the SHA-256 digest of a file's content, streaming the
// bytes rather than loading the file into memory. Identical content
// always yields the same hex digest (64 characters).
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer f.Close()

	return Reader(f)
}

// Reader computes the SHA-256 hex digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FallbackConversionID synthesizes an external conversion id for rows
// that carry none. Formula: SHA256(networkID|subAffiliateID|source|ordinal).
//
// The id is deterministic within a run, so two extid-less rows in the
// same run never collide. It is NOT globally unique: re-processing a
// changed file whose extid-less rows keep their ordinals reproduces the
// same ids (and therefore dedups against the prior run), and the file
// and API entry points share the id space for a given network/sub pair.
func FallbackConversionID(networkID, subAffiliateID int64, source string, ordinal int64) string {
	data := fmt.Sprintf("%d|%d|%s|%d", networkID, subAffiliateID, source, ordinal)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
