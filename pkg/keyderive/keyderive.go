package keyderive

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Version identifies the key derivation policy. Keys persisted under one
// version are not reachable by URL under another, so any change to Derive
// must bump it.
const Version = 1

// half is the number of hex characters taken from each end of the digest.
const half = 10

// Derive maps a URL to a short, fixed-length cache key.
//
// The key is the upper-case hex SHA-1 digest of the URL, reduced to its first
// and last ten characters joined by a dash. The result contains only [0-9A-F-]
// so it is safe as a file name and as a store key.
func Derive(url string) string {
	sum := sha1.Sum([]byte(url))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))

	head := digest[:min(len(digest), half)]
	tail := digest[max(0, len(digest)-half):]
	return head + "-" + tail
}
