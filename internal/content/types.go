package content

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Ref is the deterministic identity of a byte sequence: the hex sha256
// digest of the raw (uncompressed) content. Two identical payloads always
// yield the same Ref.
type Ref string

func (r Ref) String() string {
	return string(r)
}

// Short returns an abbreviated form for display.
func (r Ref) Short() string {
	if len(r) > 7 {
		return string(r[:7])
	}
	return string(r)
}

// Hash computes the Ref for a payload.
func Hash(data []byte) Ref {
	sum := sha256.Sum256(data)
	return Ref(hex.EncodeToString(sum[:]))
}

// ValidRef reports whether s is a well-formed Ref.
func ValidRef(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// blobMeta is the badger-side record kept per stored blob.
type blobMeta struct {
	Ref        Ref       `json:"ref"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}
