package trust

import (
	"crypto/sha256"
	"encoding/hex"
)

// VerifyChain reports whether records (assumed oldest-first) form a valid
// append-only chain: genesis has prev=null, every subsequent record's prev
// equals its predecessor's recordId, no recordId repeats, and every
// record's recordId matches its recomputed hash.
func VerifyChain(records []Record) bool {
	seen := make(map[string]struct{}, len(records))
	var prevID *string

	for _, r := range records {
		payload, err := RecordIDPayload(r)
		if err != nil {
			return false
		}
		sum := sha256.Sum256(payload)
		if r.RecordId != hex.EncodeToString(sum[:]) {
			return false
		}
		if _, dup := seen[r.RecordId]; dup {
			return false
		}
		seen[r.RecordId] = struct{}{}

		if !sameOptionalString(r.Prev, prevID) {
			return false
		}
		id := r.RecordId
		prevID = &id
	}
	return true
}
