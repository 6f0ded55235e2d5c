package services

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// maxUserKeyLen bounds the derived local user key so it is always safe to
// store and index.
const maxUserKeyLen = 64

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_.@-]+$`)

// DeriveUserKey produces the stable local key for a provider profile.
// The profile identifier is usually URL- or path-like; its final path
// segment becomes the local handle and the key is
// "<providerID>-<handle>". Handles that would make the key oversized, or
// that contain characters unsafe for storage keys, are replaced by a hex
// digest of the handle truncated so the key never exceeds the bound. A
// provider id so long that no handle fits degrades the whole key to a
// digest of the composed key. Derivation is deterministic: the same
// identifier always yields the same key.
func DeriveUserKey(profileIdentifier, providerID string) string {
	handle := strings.TrimRight(profileIdentifier, "/")
	if i := strings.LastIndex(handle, "/"); i >= 0 {
		handle = handle[i+1:]
	}

	key := providerID + "-" + handle
	if len(key) <= maxUserKeyLen && handlePattern.MatchString(handle) {
		return key
	}
	budget := maxUserKeyLen - len(providerID) - 1
	if budget < 1 {
		// Provider id leaves no room for a handle at all; the whole
		// composed key degrades to its digest.
		return hashHandle(key, maxUserKeyLen)
	}
	return providerID + "-" + hashHandle(handle, budget)
}

// hashHandle digests the input and truncates the hex form to at most
// budget characters, keeping the composed key within bounds even for
// long provider ids.
func hashHandle(handle string, budget int) string {
	sum := sha256.Sum256([]byte(handle))
	digest := hex.EncodeToString(sum[:])
	if budget < len(digest) {
		return digest[:budget]
	}
	return digest
}
