package journal

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint identifies an ordered journal list. Two lists share a
// fingerprint only if they hold the same records in the same order.
func Fingerprint(journals []Journal) string {
	h, _ := blake2b.New256(nil)
	for _, j := range journals {
		h.Write([]byte(j.ID))
		h.Write([]byte{0})
		h.Write([]byte(j.IndexText()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
