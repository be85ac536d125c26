package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Gas accounting constants of the fee formula.
const (
	// BaseGas is the flat gas cost of a plain transaction.
	BaseGas = 15_000
	// GasPerByte is the surcharge per serialized byte.
	GasPerByte = 20
	// MinGasPrice is the protocol minimum gas price in aettos.
	MinGasPrice = 1_000_000_000
)

// Known consensus protocol versions.
const (
	IrisProtocol  = 5
	CeresProtocol = 6
)

// feeGasFactor returns the per-type multiplier of BaseGas as a
// num/den rational. Fee-sponsorship containers are cheap (1/5), the
// contract family expensive.
func feeGasFactor(t Type) (num, den uint64) {
	switch t {
	case ContractCreateTx, GaAttachTx:
		return 5, 1
	case ContractCallTx:
		return 30, 1
	case GaMetaTx:
		return 5, 1
	case PayingForTx:
		return 1, 5
	default:
		return 1, 1
	}
}

// hasGasTerm reports whether the fee of this transaction type carries a
// gas-limit-dependent term.
func hasGasTerm(t Type) bool {
	switch t {
	case ContractCreateTx, ContractCallTx, GaAttachTx, GaMetaTx:
		return true
	}
	return false
}

// feePlaceholder is the provisional fee value used for the first build
// pass of the fee computation. Its 8-byte encoding is at least as wide
// as any realistic final fee, so measuring with it never undercharges.
var feePlaceholder = new(uint256.Int).SetUint64(^uint64(0))

// MinFee computes the minimal acceptable fee for the given transaction
// parameters at the given gas price. It is an explicit two-pass
// computation: a provisional build with a placeholder fee measures the
// serialized size, then the formula prices that size.
func MinFee(t Type, fields Fields, opts *BuildOptions, gasLimit uint64, gasPrice uint64) (*uint256.Int, error) {
	if gasPrice < MinGasPrice {
		gasPrice = MinGasPrice
	}
	probe := make(Fields, len(fields)+1)
	for k, v := range fields {
		probe[k] = v
	}
	probe["fee"] = feePlaceholder

	var probeOpts BuildOptions
	if opts != nil {
		probeOpts = *opts
	}
	built, err := Build(t, probe, &probeOpts)
	if err != nil {
		return nil, err
	}

	num, den := feeGasFactor(t)
	gas := BaseGas*num + uint64(len(built.RLPBytes))*GasPerByte*den
	if hasGasTerm(t) {
		gas += gasLimit * den
	}
	fee := new(uint256.Int).Mul(uint256.NewInt(gas), uint256.NewInt(gasPrice))
	// Round the rational up so a truncated division can never yield a
	// fee below the protocol minimum.
	fee.Add(fee, uint256.NewInt(den-1))
	fee.Div(fee, uint256.NewInt(den))
	return fee, nil
}

// ParamsRequest carries the caller-known parts of PrepareParams input.
type ParamsRequest struct {
	SenderID string
	// Nonce 0 requests resolution from chain state under Strategy.
	Nonce    uint64
	Strategy NonceStrategy
	// TTL is relative to the current height unless AbsoluteTTL is set;
	// 0 means the transaction never expires.
	TTL         int64
	AbsoluteTTL bool
	// Fee overrides the computed minimum when non-nil; a value below
	// the minimum fails unless LenientFee is set.
	Fee        *uint256.Int
	LenientFee bool
	// GasLimit feeds the gas term of contract-related fees.
	GasLimit uint64
}

// Params is the resolved parameter set, ready to be passed to Build.
type Params struct {
	Nonce uint64
	TTL   uint64
	Fee   *uint256.Int
	// Warnings collects non-fatal problems accepted under LenientFee.
	Warnings []string
}

// PrepareParams resolves the chain-dependent parameters (nonce, ttl,
// fee) of a transaction before building it. fields must hold all other
// schema fields of the transaction since the fee depends on the
// serialized size. The call is read-only against chain state.
func PrepareParams(ctx context.Context, t Type, req ParamsRequest, fields Fields, opts *BuildOptions, q ChainQuery) (*Params, error) {
	out := &Params{Nonce: req.Nonce}

	if req.Nonce == 0 {
		strategy := req.Strategy
		if strategy == "" {
			strategy = NonceContinuity
		}
		nonce, err := q.NextNonce(ctx, req.SenderID, strategy)
		switch {
		case err == nil:
			out.Nonce = nonce
		case isNotFound(err):
			// An account that does not exist on chain yet starts at
			// nonce 1.
			out.Nonce = 1
		default:
			return nil, fmt.Errorf("resolving nonce for %s: %w", req.SenderID, err)
		}
	}

	if req.TTL < 0 {
		return nil, &ArgumentError{Name: "ttl", Reason: "must be non-negative"}
	}
	switch {
	case req.TTL == 0:
		out.TTL = 0
	case req.AbsoluteTTL:
		out.TTL = uint64(req.TTL)
	default:
		height, err := q.Height(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving current height: %w", err)
		}
		out.TTL = height + uint64(req.TTL)
	}

	resolved := make(Fields, len(fields)+2)
	for k, v := range fields {
		resolved[k] = v
	}
	resolved["nonce"] = out.Nonce
	if _, hasTTL := schemaHasField(t, opts, "ttl"); hasTTL {
		resolved["ttl"] = out.TTL
	}

	minFee, err := MinFee(t, resolved, opts, req.GasLimit, recentGasPrice(ctx, q))
	if err != nil {
		return nil, err
	}
	switch {
	case req.Fee == nil:
		out.Fee = minFee
	case req.Fee.Cmp(minFee) >= 0:
		out.Fee = req.Fee
	case req.LenientFee:
		out.Fee = req.Fee
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("fee %s is below the computed minimum %s", req.Fee.ToBig(), minFee.ToBig()))
	default:
		return nil, &ArgumentError{
			Name:   "fee",
			Reason: fmt.Sprintf("%s is below the computed minimum %s", req.Fee.ToBig(), minFee.ToBig()),
		}
	}
	return out, nil
}

// recentGasPrice picks the gas price for fee computation from the
// node's recent samples, never below the protocol minimum. Nodes
// without the endpoint simply get the minimum.
func recentGasPrice(ctx context.Context, q ChainQuery) uint64 {
	price := uint64(MinGasPrice)
	samples, err := q.GasPrices(ctx)
	if err != nil {
		return price
	}
	for _, s := range samples {
		if s.MinGasPrice > price {
			price = s.MinGasPrice
		}
	}
	return price
}

func schemaHasField(t Type, opts *BuildOptions, name string) (FieldDef, bool) {
	var version uint32
	if opts != nil {
		version = opts.Version
	}
	schema, _, err := Schema(t, version)
	if err != nil {
		return FieldDef{}, false
	}
	for _, def := range schema {
		if def.Name == name {
			return def, true
		}
	}
	return FieldDef{}, false
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrContractNotFound)
}

// vmABISupport lists the vm and abi versions a transaction type accepts
// under one consensus protocol. An empty VM list means the type carries
// no vm version at all.
type vmABISupport struct {
	VM  []uint16
	ABI []uint16
}

var protocolVMABI = map[uint64]map[Type]vmABISupport{
	IrisProtocol: {
		ContractCreateTx: {VM: []uint16{7}, ABI: []uint16{3}},
		ContractCallTx:   {VM: nil, ABI: []uint16{1, 3}},
		GaAttachTx:       {VM: []uint16{7}, ABI: []uint16{3}},
		GaMetaTx:         {VM: nil, ABI: []uint16{1, 3}},
		OracleRegisterTx: {VM: nil, ABI: []uint16{0, 3}},
	},
	CeresProtocol: {
		ContractCreateTx: {VM: []uint16{8}, ABI: []uint16{3}},
		ContractCallTx:   {VM: nil, ABI: []uint16{3}},
		GaAttachTx:       {VM: []uint16{8}, ABI: []uint16{3}},
		GaMetaTx:         {VM: nil, ABI: []uint16{3}},
		OracleRegisterTx: {VM: nil, ABI: []uint16{0, 3}},
	},
}

// ResolveCtVersion fills the missing parts of a vm/abi version pair
// with the first value the active protocol supports for the given
// transaction type. Sub-versions already set by the caller are kept
// as-is; checking them against the supported sets is the verifier's
// job.
func ResolveCtVersion(t Type, partial CtVersion, protocol uint64) (CtVersion, error) {
	support, err := vmABIFor(t, protocol)
	if err != nil {
		return CtVersion{}, err
	}
	out := partial
	if out.VMVersion == 0 && len(support.VM) > 0 {
		out.VMVersion = support.VM[0]
	}
	if out.ABIVersion == 0 && len(support.ABI) > 0 {
		out.ABIVersion = support.ABI[0]
	}
	return out, nil
}

func vmABIFor(t Type, protocol uint64) (vmABISupport, error) {
	types, ok := protocolVMABI[protocol]
	if !ok {
		return vmABISupport{}, &UnsupportedProtocolError{Protocol: protocol}
	}
	support, ok := types[t]
	if !ok {
		return vmABISupport{}, &UnknownTxError{Type: t, Protocol: protocol}
	}
	return support, nil
}

// CtVersionSupported reports whether a declared vm/abi pair is inside
// the supported sets of the active protocol for this transaction type.
func CtVersionSupported(t Type, ct CtVersion, protocol uint64) (bool, error) {
	support, err := vmABIFor(t, protocol)
	if err != nil {
		return false, err
	}
	vmOK := len(support.VM) == 0 && ct.VMVersion == 0
	for _, vm := range support.VM {
		if ct.VMVersion == vm {
			vmOK = true
			break
		}
	}
	abiOK := len(support.ABI) == 0 && ct.ABIVersion == 0
	for _, abi := range support.ABI {
		if ct.ABIVersion == abi {
			abiOK = true
			break
		}
	}
	return vmOK && abiOK, nil
}
