package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"draftline/pkg/domain"
)

// HashFields produces a stable content hash for a field map. Keys are
// sorted before hashing so map iteration order never leaks into the
// hash, and values go through their canonical JSON form.
func HashFields(fields map[string]domain.FieldValue) (string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("init hash: %w", err)
	}
	for _, k := range keys {
		value, err := json.Marshal(fields[k])
		if err != nil {
			return "", fmt.Errorf("marshal field %s: %w", k, err)
		}
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write(value)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
