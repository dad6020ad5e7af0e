// fingerprint.go generates stable content hashes for events.

package evsink

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentHash generates a stable hash of an event's type and payload.
//
// The payload is encoded as JSON; encoding/json sorts map keys, so two
// records with equal contents always hash the same regardless of how
// they were built. Values that cannot be encoded fall back to their
// fmt representation.
func ContentHash(typeTag string, data Record) string {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte(fmt.Sprintf("%v", map[string]any(data)))
	}

	h := sha256.New()
	h.Write([]byte(typeTag))
	h.Write([]byte{'|'})
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
