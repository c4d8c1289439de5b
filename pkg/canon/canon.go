package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Canonicalize collapses all whitespace runs (including newlines) into single
// spaces and trims both ends. It is idempotent: Canonicalize(Canonicalize(s))
// equals Canonicalize(s).
func Canonicalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Digest returns the hex-encoded SHA-256 of the canonicalized text. Empty
// input yields the digest of the empty byte sequence.
func Digest(text string) string {
	sum := sha256.Sum256([]byte(Canonicalize(text)))
	return hex.EncodeToString(sum[:])
}

// ContentUUID derives a UUID from the first 16 bytes of the content digest.
// Texts differing only in whitespace map to the same UUID; empty text maps
// to the all-zero UUID.
func ContentUUID(text string) string {
	if Canonicalize(text) == "" {
		return uuid.Nil.String()
	}
	sum := sha256.Sum256([]byte(Canonicalize(text)))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		return uuid.Nil.String()
	}
	return id.String()
}
