package transaction

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// chainStub is an in-memory ChainQuery for resolver tests.
type chainStub struct {
	accounts  map[string]*Account
	height    uint64
	protocol  uint64
	networkID string
	gasPrices []GasPriceSample
	contracts map[string]*Contract
	nextNonce map[NonceStrategy]uint64
}

func (c *chainStub) Account(_ context.Context, address string) (*Account, error) {
	acct, ok := c.accounts[address]
	if !ok {
		return nil, fmt.Errorf("querying %s: %w", address, ErrAccountNotFound)
	}
	return acct, nil
}

func (c *chainStub) NextNonce(_ context.Context, address string, strategy NonceStrategy) (uint64, error) {
	if _, ok := c.accounts[address]; !ok {
		return 0, fmt.Errorf("querying %s: %w", address, ErrAccountNotFound)
	}
	if n, ok := c.nextNonce[strategy]; ok {
		return n, nil
	}
	return c.accounts[address].Nonce + 1, nil
}

func (c *chainStub) Height(context.Context) (uint64, error) { return c.height, nil }

func (c *chainStub) ProtocolInfo(context.Context) (*ProtocolInfo, error) {
	return &ProtocolInfo{NetworkID: c.networkID, ConsensusProtocol: c.protocol}, nil
}

func (c *chainStub) GasPrices(context.Context) ([]GasPriceSample, error) {
	if c.gasPrices == nil {
		return nil, errors.New("endpoint not supported")
	}
	return c.gasPrices, nil
}

func (c *chainStub) Contract(_ context.Context, id string) (*Contract, error) {
	ct, ok := c.contracts[id]
	if !ok {
		return nil, fmt.Errorf("querying %s: %w", id, ErrContractNotFound)
	}
	return ct, nil
}

func testStub(sender string) *chainStub {
	return &chainStub{
		accounts: map[string]*Account{
			sender: {ID: sender, Balance: uint256.NewInt(1_000_000_000_000_000_000), Nonce: 4, Kind: AccountBasic},
		},
		height:    100,
		protocol:  CeresProtocol,
		networkID: "ae_test",
	}
}

func TestPrepareParamsNonce(t *testing.T) {
	sender := newAddress(t)
	fields := spendFields(sender, newAddress(t))
	ctx := context.Background()

	t.Run("continuity strategy", func(t *testing.T) {
		stub := testStub(sender)
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender}, fields, nil, stub)
		require.NoError(t, err)
		require.Equal(t, uint64(5), params.Nonce)
	})
	t.Run("max strategy", func(t *testing.T) {
		stub := testStub(sender)
		stub.nextNonce = map[NonceStrategy]uint64{NonceMax: 9}
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender, Strategy: NonceMax}, fields, nil, stub)
		require.NoError(t, err)
		require.Equal(t, uint64(9), params.Nonce)
	})
	t.Run("fresh account starts at one", func(t *testing.T) {
		stub := testStub(sender)
		other := newAddress(t)
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: other}, fields, nil, stub)
		require.NoError(t, err)
		require.Equal(t, uint64(1), params.Nonce)
	})
	t.Run("explicit nonce kept", func(t *testing.T) {
		stub := testStub(sender)
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender, Nonce: 77}, fields, nil, stub)
		require.NoError(t, err)
		require.Equal(t, uint64(77), params.Nonce)
	})
}

func TestPrepareParamsTTL(t *testing.T) {
	sender := newAddress(t)
	fields := spendFields(sender, newAddress(t))
	ctx := context.Background()

	t.Run("zero means no expiry", func(t *testing.T) {
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender}, fields, nil, testStub(sender))
		require.NoError(t, err)
		require.Equal(t, uint64(0), params.TTL)
	})
	t.Run("relative adds current height", func(t *testing.T) {
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender, TTL: 50}, fields, nil, testStub(sender))
		require.NoError(t, err)
		require.Equal(t, uint64(150), params.TTL)
	})
	t.Run("absolute kept as is", func(t *testing.T) {
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender, TTL: 50, AbsoluteTTL: true}, fields, nil, testStub(sender))
		require.NoError(t, err)
		require.Equal(t, uint64(50), params.TTL)
	})
	t.Run("negative fails", func(t *testing.T) {
		_, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender, TTL: -1}, fields, nil, testStub(sender))
		var arg *ArgumentError
		require.ErrorAs(t, err, &arg)
		require.Equal(t, "ttl", arg.Name)
	})
}

func TestPrepareParamsFee(t *testing.T) {
	sender := newAddress(t)
	fields := spendFields(sender, newAddress(t))
	delete(fields, "fee")
	ctx := context.Background()

	t.Run("computed minimum", func(t *testing.T) {
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender}, fields, nil, testStub(sender))
		require.NoError(t, err)
		// base gas plus a per-byte term, at the minimum gas price.
		require.True(t, params.Fee.Cmp(uint256.NewInt(BaseGas*MinGasPrice)) > 0)
		require.Empty(t, params.Warnings)
	})
	t.Run("caller fee above minimum accepted", func(t *testing.T) {
		fee := uint256.NewInt(1_000_000_000_000_000)
		params, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender, Fee: fee}, fields, nil, testStub(sender))
		require.NoError(t, err)
		require.Equal(t, fee, params.Fee)
	})
	t.Run("low fee fails strictly", func(t *testing.T) {
		_, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender, Fee: uint256.NewInt(1)}, fields, nil, testStub(sender))
		var arg *ArgumentError
		require.ErrorAs(t, err, &arg)
		require.Equal(t, "fee", arg.Name)
	})
	t.Run("low fee warns when lenient", func(t *testing.T) {
		params, err := PrepareParams(ctx, SpendTx,
			ParamsRequest{SenderID: sender, Fee: uint256.NewInt(1), LenientFee: true}, fields, nil, testStub(sender))
		require.NoError(t, err)
		require.Equal(t, uint64(1), params.Fee.Uint64())
		require.Len(t, params.Warnings, 1)
	})
	t.Run("gas price samples raise the minimum", func(t *testing.T) {
		base, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender}, fields, nil, testStub(sender))
		require.NoError(t, err)

		stub := testStub(sender)
		stub.gasPrices = []GasPriceSample{{MinGasPrice: 2 * MinGasPrice, Utilization: 90}}
		raised, err := PrepareParams(ctx, SpendTx, ParamsRequest{SenderID: sender}, fields, nil, stub)
		require.NoError(t, err)
		require.True(t, raised.Fee.Cmp(base.Fee) > 0)
	})
	t.Run("contract gas term", func(t *testing.T) {
		callFields := Fields{
			"callerId":   sender,
			"nonce":      uint64(5),
			"contractId": "ct_" + sender[len("ak_"):],
			"abiVersion": uint64(3),
			"ttl":        uint64(0),
			"amount":     uint64(0),
			"gasLimit":   uint64(25_000),
			"gasPrice":   uint64(MinGasPrice),
			"callData":   []byte{1, 2, 3},
		}
		withGas, err := PrepareParams(ctx, ContractCallTx,
			ParamsRequest{SenderID: sender, GasLimit: 25_000}, callFields, nil, testStub(sender))
		require.NoError(t, err)
		withoutGas, err := PrepareParams(ctx, ContractCallTx,
			ParamsRequest{SenderID: sender}, callFields, nil, testStub(sender))
		require.NoError(t, err)
		diff := new(uint256.Int).Sub(withGas.Fee, withoutGas.Fee)
		require.Equal(t, uint64(25_000*MinGasPrice), diff.Uint64())
	})
}

func TestMinFeeTwoPassIsStable(t *testing.T) {
	sender := newAddress(t)
	fields := spendFields(sender, newAddress(t))
	delete(fields, "fee")

	min1, err := MinFee(SpendTx, fields, nil, 0, 0)
	require.NoError(t, err)

	// Rebuilding with the computed fee must not change the minimum:
	// the placeholder is at least as wide as any real fee.
	fields["fee"] = min1
	built, err := Build(SpendTx, fields, nil)
	require.NoError(t, err)
	require.True(t, uint64(len(built.RLPBytes))*GasPerByte*MinGasPrice <= min1.Uint64())
}

func TestResolveCtVersion(t *testing.T) {
	t.Run("fills missing parts", func(t *testing.T) {
		got, err := ResolveCtVersion(ContractCreateTx, CtVersion{}, CeresProtocol)
		require.NoError(t, err)
		require.Equal(t, CtVersion{VMVersion: 8, ABIVersion: 3}, got)
	})
	t.Run("keeps caller values", func(t *testing.T) {
		got, err := ResolveCtVersion(ContractCallTx, CtVersion{ABIVersion: 1}, IrisProtocol)
		require.NoError(t, err)
		require.Equal(t, CtVersion{VMVersion: 0, ABIVersion: 1}, got)
	})
	t.Run("unsupported protocol", func(t *testing.T) {
		_, err := ResolveCtVersion(ContractCreateTx, CtVersion{}, 99)
		var unsupported *UnsupportedProtocolError
		require.ErrorAs(t, err, &unsupported)
	})
	t.Run("unknown tx under protocol", func(t *testing.T) {
		_, err := ResolveCtVersion(SpendTx, CtVersion{}, CeresProtocol)
		var unknown *UnknownTxError
		require.ErrorAs(t, err, &unknown)
	})
}

func TestCtVersionSupported(t *testing.T) {
	ok, err := CtVersionSupported(ContractCreateTx, CtVersion{VMVersion: 8, ABIVersion: 3}, CeresProtocol)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = CtVersionSupported(ContractCreateTx, CtVersion{VMVersion: 7, ABIVersion: 3}, CeresProtocol)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = CtVersionSupported(ContractCreateTx, CtVersion{}, 1)
	var unsupported *UnsupportedProtocolError
	require.ErrorAs(t, err, &unsupported)
}
