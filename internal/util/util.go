// Package util provides content hashing helpers.
package util

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// Blake3Hash computes the 32-byte BLAKE3 hash of data.
func Blake3Hash(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}

// Blake3HashHex computes the BLAKE3 hash of data and returns it as hex.
func Blake3HashHex(data []byte) string {
	return hex.EncodeToString(Blake3Hash(data))
}

// ShortID safely truncates an ID string to 12 characters.
func ShortID(s string) string {
	if len(s) >= 12 {
		return s[:12]
	}
	return s
}
