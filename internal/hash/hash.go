// Package hash computes content digests for scraped entity payloads.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Entity returns the hex SHA-256 digest of a canonical serialization of data.
// Map keys are serialized in sorted order, so two payloads that are
// semantically equal hash identically regardless of insertion order. The
// digest is a pure function of data; it never depends on wall-clock time.
func Entity(data map[string]any) (string, error) {
	canonical, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
