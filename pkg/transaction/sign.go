package transaction

import (
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/hash"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/keys"
)

// innerTxMarker is appended to the network id when signing a
// transaction that is wrapped by a fee-sponsorship container, so such a
// signature can never be replayed as a standalone transaction.
const innerTxMarker = "-inner_tx"

// SigningData returns the byte sequence an account signs for the given
// canonical transaction bytes: the network id, the inner marker when
// the transaction is sponsored, then the transaction bytes themselves.
func SigningData(networkID string, rlpBytes []byte, innerTx bool) []byte {
	prefix := networkID
	if innerTx {
		prefix += innerTxMarker
	}
	out := make([]byte, 0, len(prefix)+len(rlpBytes))
	out = append(out, prefix...)
	return append(out, rlpBytes...)
}

// SigningDataHashed is the alternate signing payload for oversized
// transactions: the network-id prefix over the blake2b hash of the
// bytes instead of the bytes themselves.
func SigningDataHashed(networkID string, rlpBytes []byte, innerTx bool) []byte {
	return SigningData(networkID, hash.Blake2b256(rlpBytes), innerTx)
}

// Sign wraps canonical transaction bytes into a SignedTx carrying one
// signature over the network-id-prefixed payload.
func Sign(priv *keys.PrivateKey, networkID string, rlpBytes []byte, innerTx bool) (*BuiltTransaction, error) {
	sig := priv.Sign(SigningData(networkID, rlpBytes, innerTx))
	return Build(SignedTx, Fields{
		"signatures": [][]byte{sig},
		"encodedTx":  rlpBytes,
	}, nil)
}
