// Package hash provides the hashing helpers used for transaction and
// object identifiers.
package hash

import "golang.org/x/crypto/blake2b"

// Size is the byte length of an object hash.
const Size = blake2b.Size256

// Blake2b256 hashes the incoming byte slice using unkeyed blake2b-256.
func Blake2b256(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}
