package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize prepares text for key derivation:
// 1. Trim leading/trailing whitespace
// 2. Lowercase
// 3. Collapse internal whitespace to single spaces
// Two fragments with the same normalized content share one cache entry.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return s
}

// Key derives the cache key for a (mode, text) pair: sha256 over the mode
// and the normalized text, NUL-separated. Pure and deterministic; carries
// no volatile data, so identical content collides on purpose.
func Key(mode, text string) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(Normalize(text)))
	return hex.EncodeToString(h.Sum(nil))
}
