package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/apienc"
)

// PrivateKey is an ed25519 signing key for a chain account.
type PrivateKey struct {
	k ed25519.PrivateKey
}

// Generate creates a new random key pair.
func Generate() (*PrivateKey, error) {
	_, k, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key: %w", err)
	}
	return &PrivateKey{k: k}, nil
}

// PrivateKeyFromHex parses a hex string holding either a 32-byte seed
// or a full 64-byte private key.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	return PrivateKeyFromBytes(b)
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte seed or a
// full 64-byte private key.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return &PrivateKey{k: ed25519.NewKeyFromSeed(b)}, nil
	case ed25519.PrivateKeySize:
		k := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
		copy(k, b)
		return &PrivateKey{k: k}, nil
	default:
		return nil, fmt.Errorf("invalid private key length %d", len(b))
	}
}

// Public returns the corresponding public key.
func (p *PrivateKey) Public() *PublicKey {
	return &PublicKey{k: p.k.Public().(ed25519.PublicKey)}
}

// Address returns the account address of the key pair.
func (p *PrivateKey) Address() string {
	return p.Public().Address()
}

// Sign signs the given message, returning a 64-byte signature.
func (p *PrivateKey) Sign(msg []byte) []byte {
	return ed25519.Sign(p.k, msg)
}

// Bytes returns the full 64-byte private key.
func (p *PrivateKey) Bytes() []byte {
	b := make([]byte, len(p.k))
	copy(b, p.k)
	return b
}

// String implements fmt.Stringer, hiding key material.
func (p *PrivateKey) String() string {
	return "private key for " + p.Address()
}

// PublicKey is an ed25519 verification key for a chain account.
type PublicKey struct {
	k ed25519.PublicKey
}

// PublicKeyFromAddress decodes an account address ("ak_...") into the
// public key it encodes. Oracle ids ("ok_...") carry the same key bytes
// and are accepted too.
func PublicKeyFromAddress(addr string) (*PublicKey, error) {
	p, b, err := apienc.Decode(addr)
	if err != nil {
		return nil, err
	}
	if p != apienc.Account && p != apienc.Oracle {
		return nil, fmt.Errorf("%q does not encode an account key", addr)
	}
	return &PublicKey{k: ed25519.PublicKey(b)}, nil
}

// Address returns the prefixed account address of the key.
func (p *PublicKey) Address() string {
	return apienc.Encode(apienc.Account, p.k)
}

// Verify reports whether sig is a valid signature of msg by this key.
func (p *PublicKey) Verify(msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(p.k, msg, sig)
}

// Bytes returns the raw 32-byte public key.
func (p *PublicKey) Bytes() []byte {
	b := make([]byte, len(p.k))
	copy(b, p.k)
	return b
}
