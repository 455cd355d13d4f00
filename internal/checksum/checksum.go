// Package checksum fingerprints persisted documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats a digest as a strong HTTP entity tag.
func ETag(sum string) string {
	return strconv.Quote(sum)
}

// ParseETag strips the quotes (and a weak prefix) from an If-Match value.
func ParseETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}
