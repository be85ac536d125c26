package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/keys"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/encoding/apienc"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/transaction"
)

func zero() *uint256.Int {
	return uint256.NewInt(0)
}

func containsType(types []transaction.Type, t transaction.Type) bool {
	for _, el := range types {
		if el == t {
			return true
		}
	}
	return false
}

// checkSignature validates the signatures of a signature container
// against the sender key of the transaction it wraps. The signing
// payload depends on context: a transaction sponsored by a payer is
// signed over a marked prefix, and oversized transactions are signed
// over their hash, so both the plain and the hashed payload are
// accepted. Inside a generalized-account wrapper authorization comes
// from the account's auth contract and the check does not apply.
func checkSignature(_ context.Context, in *checkContext) ([]Finding, error) {
	if in.raw.Type != transaction.SignedTx {
		return nil, nil
	}
	if containsType(in.parents, transaction.GaMetaTx) {
		return nil, nil
	}
	sigs, _ := in.raw.Field("signatures").([][]byte)
	innerBytes, ok := in.raw.Field("encodedTx").([]byte)
	if !ok {
		return nil, fmt.Errorf("signature container carries no inner transaction")
	}
	pub, err := keys.PublicKeyFromAddress(in.sender)
	if err != nil {
		return nil, fmt.Errorf("decoding sender key: %w", err)
	}
	innerTx := containsType(in.parents, transaction.PayingForTx)
	payloads := [][]byte{
		transaction.SigningData(in.snap.networkID, innerBytes, innerTx),
		transaction.SigningDataHashed(in.snap.networkID, innerBytes, innerTx),
	}
	for _, sig := range sigs {
		for _, payload := range payloads {
			if pub.Verify(payload, sig) {
				return nil, nil
			}
		}
	}
	return []Finding{{
		Message: fmt.Sprintf("signature of %s does not verify on network %q", in.sender, in.snap.networkID),
		Reason:  ReasonInvalidSignature,
		Fields:  []string{"signatures", "encodedTx"},
	}}, nil
}

// checkNested descends into container transactions and verifies the
// wrapped transaction with the container type appended to the parent
// chain, against the same chain snapshot.
func checkNested(ctx context.Context, in *checkContext) ([]Finding, error) {
	name := innerFieldName(in.raw.Type)
	if name == "" {
		return nil, nil
	}
	innerBytes, ok := in.raw.Field(name).([]byte)
	if !ok {
		return nil, fmt.Errorf("%s field %s carries no transaction", in.raw.Type, name)
	}
	inner, err := transaction.UnpackBytes(innerBytes, 0)
	if err != nil {
		return nil, fmt.Errorf("unpacking transaction inside %s: %w", in.raw.Type, err)
	}
	parents := append(append([]transaction.Type(nil), in.parents...), in.raw.Type)
	return verifyRaw(ctx, inner, in.snap, parents, in.opts)
}

func checkTTL(_ context.Context, in *checkContext) ([]Finding, error) {
	ttl := in.raw.Int("ttl")
	if ttl.IsZero() {
		return nil, nil
	}
	if ttl.CmpUint64(in.snap.height) > 0 {
		return nil, nil
	}
	return []Finding{{
		Message: fmt.Sprintf("ttl %s is not above the current height %d", ttl, in.snap.height),
		Reason:  ReasonExpiredTTL,
		Fields:  []string{"ttl"},
	}}, nil
}

// checkBalance compares the worst-case cost of the transaction against
// the sender balance. A payer additionally covers the wrapped
// transaction's fee, and a sponsored transaction correspondingly does
// not pay its own.
func checkBalance(_ context.Context, in *checkContext) ([]Finding, error) {
	cost := zero().Add(in.raw.Int("fee"), in.raw.Int("nameFee"))
	cost.Add(cost, in.raw.Int("amount"))
	if in.raw.Type == transaction.PayingForTx {
		innermost, err := innermostRaw(in.raw)
		if err != nil {
			return nil, err
		}
		cost.Add(cost, innermost.Int("fee"))
	}
	if containsType(in.parents, transaction.PayingForTx) {
		cost.Sub(cost, in.raw.Int("fee"))
	}
	if in.account.Balance.Cmp(cost) >= 0 {
		return nil, nil
	}
	return []Finding{{
		Message: fmt.Sprintf("account %s balance %s is below the transaction cost %s", in.sender, in.account.Balance, cost),
		Reason:  ReasonInsufficientBalance,
		Fields:  []string{"fee", "amount", "nameFee"},
	}}, nil
}

// innermostRaw unwraps container transactions until a non-container is
// reached.
func innermostRaw(raw *transaction.RawTransaction) (*transaction.RawTransaction, error) {
	for innerFieldName(raw.Type) != "" {
		inner, err := innerRaw(raw)
		if err != nil {
			return nil, err
		}
		raw = inner
	}
	return raw, nil
}

// checkAccountKind flags a direct signature by a generalized account
// and a generalized-account wrapper around a basic account. Both mix
// up the two authorization models the chain keeps strictly apart.
func checkAccountKind(_ context.Context, in *checkContext) ([]Finding, error) {
	switch in.raw.Type {
	case transaction.SignedTx:
		sigs, _ := in.raw.Field("signatures").([][]byte)
		if len(sigs) > 0 && in.account.Kind == transaction.AccountGeneralized &&
			!containsType(in.parents, transaction.GaMetaTx) {
			return []Finding{{
				Message: fmt.Sprintf("generalized account %s cannot authorize by signature", in.sender),
				Reason:  ReasonInvalidAccountType,
				Fields:  []string{"signatures"},
			}}, nil
		}
	case transaction.GaMetaTx:
		if in.account.Kind == transaction.AccountBasic {
			return []Finding{{
				Message: fmt.Sprintf("account %s has no authorization contract attached", in.sender),
				Reason:  ReasonInvalidAccountType,
				Fields:  []string{"gaId"},
			}}, nil
		}
	}
	return nil, nil
}

// checkNonce compares the declared nonce against the next valid one of
// the sender. Transactions authorized through a generalized-account
// wrapper carry a contract-managed nonce instead and are skipped.
func checkNonce(_ context.Context, in *checkContext) ([]Finding, error) {
	if in.raw.Field("nonce") == nil {
		return nil, nil
	}
	if containsType(in.parents, transaction.GaMetaTx) {
		return nil, nil
	}
	valid := in.account.Nonce + 1
	nonce := in.raw.Int("nonce")
	switch nonce.CmpUint64(valid) {
	case -1:
		return []Finding{{
			Message: fmt.Sprintf("nonce %s of account %s was already used, next valid one is %d", nonce, in.sender, valid),
			Reason:  ReasonNonceAlreadyUsed,
			Fields:  []string{"nonce"},
		}}, nil
	case 1:
		return []Finding{{
			Message: fmt.Sprintf("nonce %s of account %s is ahead of the next valid one %d", nonce, in.sender, valid),
			Reason:  ReasonNonceHigh,
			Fields:  []string{"nonce"},
		}}, nil
	}
	return nil, nil
}

// checkCtVersion validates the declared vm/abi versions against the
// sets the active consensus protocol supports for this transaction
// type. An unrecognized protocol is a context-level error, not a
// finding.
func checkCtVersion(_ context.Context, in *checkContext) ([]Finding, error) {
	var ct transaction.CtVersion
	var declared []string
	switch v := in.raw.Field("ctVersion").(type) {
	case transaction.CtVersion:
		ct = v
		declared = []string{"ctVersion"}
	default:
		if in.raw.Field("abiVersion") == nil {
			return nil, nil
		}
		abi := in.raw.Int("abiVersion")
		if !abi.IsUint64() || abi.Uint64() > 0xffff {
			return []Finding{{
				Message: fmt.Sprintf("abi version %s is out of range", abi),
				Reason:  ReasonVmAndAbiVersionMismatch,
				Fields:  []string{"abiVersion"},
			}}, nil
		}
		ct = transaction.CtVersion{ABIVersion: uint16(abi.Uint64())}
		declared = []string{"abiVersion"}
	}
	ok, err := transaction.CtVersionSupported(in.raw.Type, ct, in.snap.protocol)
	var unknown *transaction.UnknownTxError
	if errors.As(err, &unknown) {
		// type carries no vm/abi constraints under this protocol
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	return []Finding{{
		Message: fmt.Sprintf("vm version %d and abi version %d are not supported by consensus protocol %d for %s",
			ct.VMVersion, ct.ABIVersion, in.snap.protocol, in.raw.Type),
		Reason:  ReasonVmAndAbiVersionMismatch,
		Fields:  declared,
	}}, nil
}

// checkContractLiveness verifies that the target of a contract call
// exists and has not been disabled. A name target is resolved at
// consensus time and is left alone here.
func checkContractLiveness(ctx context.Context, in *checkContext) ([]Finding, error) {
	if in.raw.Type != transaction.ContractCallTx {
		return nil, nil
	}
	id := in.raw.ID("contractId")
	if !apienc.HasPrefix(apienc.Contract, id) {
		return nil, nil
	}
	c, err := in.snap.q.Contract(ctx, id)
	switch {
	case errors.Is(err, transaction.ErrContractNotFound):
		return []Finding{{
			Message: fmt.Sprintf("contract %s does not exist on chain", id),
			Reason:  ReasonContractNotFound,
			Fields:  []string{"contractId"},
		}}, nil
	case err != nil:
		return nil, fmt.Errorf("fetching contract %s: %w", id, err)
	case !c.Active:
		return []Finding{{
			Message: fmt.Sprintf("contract %s is no longer active", id),
			Reason:  ReasonContractNotActive,
			Fields:  []string{"contractId"},
		}}, nil
	}
	return nil, nil
}
