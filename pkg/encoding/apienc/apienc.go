// Package apienc implements the chain's prefixed string encoding of
// binary objects. Every object class has a two-letter prefix separated
// from the body by an underscore; hash-like objects use base58check for
// the body, byte-array-like objects use base64 with the same 4-byte
// double-sha256 checksum appended.
package apienc

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/base58"
)

// Prefix identifies the class of an encoded object.
type Prefix string

// Known object prefixes.
const (
	Account        Prefix = "ak"
	Name           Prefix = "nm"
	Commitment     Prefix = "cm"
	Contract       Prefix = "ct"
	Oracle         Prefix = "ok"
	OracleQueryID  Prefix = "oq"
	Channel        Prefix = "ch"
	TxHash         Prefix = "th"
	Signature      Prefix = "sg"
	KeyBlockHash   Prefix = "kh"
	MicroBlockHash Prefix = "mh"
	BlockPoW       Prefix = "bf"

	Transaction      Prefix = "tx"
	Bytearray        Prefix = "ba"
	ContractBytecode Prefix = "cb"
	OracleResponse   Prefix = "or"
	OracleQuery      Prefix = "ov"
	StateTrees       Prefix = "st"
	State            Prefix = "ss"
)

// objectSize is the required body length for fixed-size object classes,
// 0 meaning variable length.
var objectSize = map[Prefix]int{
	Account:        32,
	Name:           32,
	Commitment:     32,
	Contract:       32,
	Oracle:         32,
	OracleQueryID:  32,
	Channel:        32,
	TxHash:         32,
	KeyBlockHash:   32,
	MicroBlockHash: 32,
	Signature:      64,
}

// base64Prefixes holds the object classes whose body is base64check
// rather than base58check.
var base64Prefixes = map[Prefix]bool{
	Transaction:      true,
	Bytearray:        true,
	ContractBytecode: true,
	OracleResponse:   true,
	OracleQuery:      true,
	StateTrees:       true,
	State:            true,
}

var knownPrefixes = func() map[Prefix]bool {
	m := map[Prefix]bool{}
	for p := range objectSize {
		m[p] = true
	}
	for p := range base64Prefixes {
		m[p] = true
	}
	m[BlockPoW] = true
	return m
}()

// ErrUnknownPrefix is returned when the prefix of an encoded string is
// not a registered object class.
var ErrUnknownPrefix = errors.New("unknown object prefix")

// Encode returns the prefixed string form of data under the given
// object class.
func Encode(p Prefix, data []byte) string {
	var body string
	if base64Prefixes[p] {
		body = base64.StdEncoding.EncodeToString(append(append(
			make([]byte, 0, len(data)+4), data...), checksum(data)...))
	} else {
		body = base58.CheckEncode(data)
	}
	return string(p) + "_" + body
}

// Decode parses any known prefixed string, returning its object class
// and payload bytes.
func Decode(s string) (Prefix, []byte, error) {
	i := strings.IndexByte(s, '_')
	if i < 0 {
		return "", nil, fmt.Errorf("invalid encoded string %q: missing prefix separator", s)
	}
	p := Prefix(s[:i])
	if !knownPrefixes[p] {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownPrefix, string(p))
	}
	var (
		data []byte
		err  error
	)
	if base64Prefixes[p] {
		data, err = base64CheckDecode(s[i+1:])
	} else {
		data, err = base58.CheckDecode(s[i+1:])
	}
	if err != nil {
		return "", nil, fmt.Errorf("decoding %q body: %w", string(p), err)
	}
	if want := objectSize[p]; want != 0 && len(data) != want {
		return "", nil, fmt.Errorf("invalid %q payload: %d bytes instead of %d", string(p), len(data), want)
	}
	return p, data, nil
}

// DecodeWith decodes s and requires it to carry the given prefix.
func DecodeWith(p Prefix, s string) ([]byte, error) {
	got, data, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if got != p {
		return nil, fmt.Errorf("expected %q encoding, got %q", string(p), string(got))
	}
	return data, nil
}

// HasPrefix reports whether s carries the given object prefix without
// decoding the body.
func HasPrefix(p Prefix, s string) bool {
	return strings.HasPrefix(s, string(p)+"_")
}

func base64CheckDecode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) < 4 {
		return nil, errors.New("base64check string too short")
	}
	data, sum := b[:len(b)-4], b[len(b)-4:]
	want := checksum(data)
	for i := range sum {
		if sum[i] != want[i] {
			return nil, errors.New("invalid base64check checksum")
		}
	}
	return data, nil
}

func checksum(b []byte) []byte {
	h := sha256.Sum256(b)
	h = sha256.Sum256(h[:])
	return h[:4]
}
