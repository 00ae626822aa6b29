package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// integrityHashLength is the number of hex characters retained from the
// full SHA-256 digest (§4.11: "first 16 hex chars retained").
const integrityHashLength = 16

// Hash returns a SHA-256 hex digest over the canonical JSON encoding of
// value. encoding/json already emits map[string]any keys in sorted
// (code-point) order, so canonicalizing before marshaling is sufficient
// to make this deterministic regardless of the original map's
// iteration/declaration order.
func Hash(value any) (string, error) {
	canonical := Canonicalize(value)
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("canonical marshal: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ShortHash truncates a Hash result to the first integrityHashLength hex
// characters, as used for a baseline's IntegrityHash and a tool's
// SchemaHash.
func ShortHash(value any) (string, error) {
	full, err := Hash(value)
	if err != nil {
		return "", err
	}
	if len(full) < integrityHashLength {
		return full, nil
	}
	return full[:integrityHashLength], nil
}

// SchemaHash computes a tool's schema hash from its decoded JSON schema.
func SchemaHash(schema any) (string, error) {
	return ShortHash(schema)
}
