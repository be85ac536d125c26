// Package base58 provides base58check encoding as used by the chain's
// string representation of hashes and addresses: payload bytes followed
// by a 4-byte double-sha256 checksum, base58-encoded.
package base58

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

const checksumSize = 4

// ErrBadChecksum is returned when the trailing checksum does not match
// the payload.
var ErrBadChecksum = errors.New("invalid base58check checksum")

// ErrTooShort is returned when the decoded payload is too short to even
// carry a checksum.
var ErrTooShort = errors.New("base58check string too short")

// CheckEncode encodes b with an appended 4-byte checksum.
func CheckEncode(b []byte) string {
	buf := make([]byte, 0, len(b)+checksumSize)
	buf = append(buf, b...)
	buf = append(buf, checksum(b)...)
	return base58.Encode(buf)
}

// CheckDecode decodes the given base58check string and verifies its
// checksum, returning the payload without the checksum.
func CheckDecode(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) < checksumSize {
		return nil, ErrTooShort
	}
	payload, sum := b[:len(b)-checksumSize], b[len(b)-checksumSize:]
	if !bytes.Equal(sum, checksum(payload)) {
		return nil, ErrBadChecksum
	}
	return payload, nil
}

func checksum(b []byte) []byte {
	h := sha256.Sum256(b)
	h = sha256.Sum256(h[:])
	return h[:checksumSize]
}
