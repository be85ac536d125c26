package transaction

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/hash"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/apienc"
)

// NameID returns the name-hash identifier ("nm_...") of a plain name
// string as used by update/transfer/revoke transactions.
func NameID(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return apienc.Encode(apienc.Name, hash.Blake2b256([]byte(strings.ToLower(name)))), nil
}

// CommitmentID computes the preclaim commitment hash ("cm_...") hiding
// the name and the claim salt.
func CommitmentID(name string, salt uint64) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	data := append([]byte(strings.ToLower(name)), uint256.NewInt(salt).PaddedBytes(32)...)
	return apienc.Encode(apienc.Commitment, hash.Blake2b256(data)), nil
}

func checkName(name string) error {
	if !strings.HasSuffix(name, ".chain") {
		return &ArgumentError{Name: "name", Reason: fmt.Sprintf("%q must end in .chain", name)}
	}
	if len(name) == len(".chain") {
		return &ArgumentError{Name: "name", Reason: "label must not be empty"}
	}
	return nil
}

// OracleToAccount rewrites an oracle identifier into the account
// address holding the same key bytes. Account addresses pass through
// unchanged.
func OracleToAccount(id string) (string, error) {
	p, data, err := apienc.Decode(id)
	if err != nil {
		return "", err
	}
	switch p {
	case apienc.Account:
		return id, nil
	case apienc.Oracle:
		return apienc.Encode(apienc.Account, data), nil
	}
	return "", fmt.Errorf("%q is neither an account nor an oracle id", id)
}
