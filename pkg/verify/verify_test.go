package verify

import (
	"context"
	"sort"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/keys"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/transaction"
)

const testNetwork = "ae_test"

type chainStub struct {
	accounts  map[string]*transaction.Account
	contracts map[string]*transaction.Contract
	height    uint64
	protocol  uint64

	heightCalls  int
	accountCalls map[string]int
}

func (c *chainStub) Account(_ context.Context, address string) (*transaction.Account, error) {
	if c.accountCalls == nil {
		c.accountCalls = map[string]int{}
	}
	c.accountCalls[address]++
	if a, ok := c.accounts[address]; ok {
		return a, nil
	}
	return nil, transaction.ErrAccountNotFound
}

func (c *chainStub) NextNonce(_ context.Context, address string, _ transaction.NonceStrategy) (uint64, error) {
	if a, ok := c.accounts[address]; ok {
		return a.Nonce + 1, nil
	}
	return 1, nil
}

func (c *chainStub) Height(context.Context) (uint64, error) {
	c.heightCalls++
	return c.height, nil
}

func (c *chainStub) ProtocolInfo(context.Context) (*transaction.ProtocolInfo, error) {
	return &transaction.ProtocolInfo{NetworkID: testNetwork, ConsensusProtocol: c.protocol}, nil
}

func (c *chainStub) GasPrices(context.Context) ([]transaction.GasPriceSample, error) {
	return nil, nil
}

func (c *chainStub) Contract(_ context.Context, id string) (*transaction.Contract, error) {
	if ct, ok := c.contracts[id]; ok {
		return ct, nil
	}
	return nil, transaction.ErrContractNotFound
}

func newStub() *chainStub {
	return &chainStub{
		accounts:  map[string]*transaction.Account{},
		contracts: map[string]*transaction.Contract{},
		height:    100,
		protocol:  transaction.CeresProtocol,
	}
}

func fund(c *chainStub, address string, balance, nonce uint64) {
	c.accounts[address] = &transaction.Account{
		ID:      address,
		Balance: uint256.NewInt(balance),
		Nonce:   nonce,
		Kind:    transaction.AccountBasic,
	}
}

const (
	testFee    = uint64(17_000_000_000_000)
	testAmount = uint64(100)
)

func buildSpend(t *testing.T, priv *keys.PrivateKey, nonce, ttl uint64) *transaction.BuiltTransaction {
	t.Helper()
	recipient, err := keys.Generate()
	require.NoError(t, err)
	spend, err := transaction.Build(transaction.SpendTx, transaction.Fields{
		"senderId":    priv.Address(),
		"recipientId": recipient.Address(),
		"amount":      testAmount,
		"fee":         testFee,
		"ttl":         ttl,
		"nonce":       nonce,
	}, nil)
	require.NoError(t, err)
	return spend
}

func signedSpend(t *testing.T, priv *keys.PrivateKey, nonce, ttl uint64) *transaction.BuiltTransaction {
	t.Helper()
	spend := buildSpend(t, priv, nonce, ttl)
	signed, err := transaction.Sign(priv, testNetwork, spend.RLPBytes, false)
	require.NoError(t, err)
	return signed
}

func reasons(findings []Finding) []string {
	if len(findings) == 0 {
		return nil
	}
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Reason
	}
	sort.Strings(out)
	return out
}

func TestVerifyValidSignedSpend(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	stub := newStub()
	fund(stub, priv.Address(), testFee+testAmount, 4)

	signed := signedSpend(t, priv, 5, 0)
	findings, err := Transaction(context.Background(), signed.Encoded, stub)
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestVerifyNonceBoundaries(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		nonce  uint64
		expect []string
	}{
		{"used", 4, []string{ReasonNonceAlreadyUsed}},
		{"next", 5, nil},
		{"ahead", 6, []string{ReasonNonceHigh}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStub()
			fund(stub, priv.Address(), testFee+testAmount, 4)
			signed := signedSpend(t, priv, tc.nonce, 0)
			findings, err := Transaction(context.Background(), signed.Encoded, stub)
			require.NoError(t, err)
			require.Equal(t, tc.expect, reasons(findings))
			for _, f := range findings {
				require.Equal(t, []string{"nonce"}, f.Fields)
			}
		})
	}
}

func TestVerifyTTLBoundaries(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		ttl    uint64
		expect []string
	}{
		{"below height", 99, []string{ReasonExpiredTTL}},
		{"at height", 100, []string{ReasonExpiredTTL}},
		{"above height", 110, nil},
		{"unlimited", 0, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStub()
			fund(stub, priv.Address(), testFee+testAmount, 4)
			signed := signedSpend(t, priv, 5, tc.ttl)
			findings, err := Transaction(context.Background(), signed.Encoded, stub)
			require.NoError(t, err)
			require.Equal(t, tc.expect, reasons(findings))
		})
	}
}

func TestVerifySignature(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)

	t.Run("wrong network", func(t *testing.T) {
		stub := newStub()
		fund(stub, priv.Address(), testFee+testAmount, 4)
		spend := buildSpend(t, priv, 5, 0)
		signed, err := transaction.Sign(priv, "ae_mainnet", spend.RLPBytes, false)
		require.NoError(t, err)
		findings, err := Transaction(context.Background(), signed.Encoded, stub)
		require.NoError(t, err)
		require.Equal(t, []string{ReasonInvalidSignature}, reasons(findings))
	})

	t.Run("hashed payload accepted", func(t *testing.T) {
		stub := newStub()
		fund(stub, priv.Address(), testFee+testAmount, 4)
		spend := buildSpend(t, priv, 5, 0)
		sig := priv.Sign(transaction.SigningDataHashed(testNetwork, spend.RLPBytes, false))
		signed, err := transaction.Build(transaction.SignedTx, transaction.Fields{
			"signatures": [][]byte{sig},
			"encodedTx":  spend.RLPBytes,
		}, nil)
		require.NoError(t, err)
		findings, err := Transaction(context.Background(), signed.Encoded, stub)
		require.NoError(t, err)
		require.Empty(t, findings)
	})

	t.Run("foreign key", func(t *testing.T) {
		other, err := keys.Generate()
		require.NoError(t, err)
		stub := newStub()
		fund(stub, priv.Address(), testFee+testAmount, 4)
		spend := buildSpend(t, priv, 5, 0)
		signed, err := transaction.Sign(other, testNetwork, spend.RLPBytes, false)
		require.NoError(t, err)
		findings, err := Transaction(context.Background(), signed.Encoded, stub)
		require.NoError(t, err)
		require.Equal(t, []string{ReasonInvalidSignature}, reasons(findings))
	})
}

func TestVerifyInsufficientBalance(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)

	t.Run("short by one", func(t *testing.T) {
		stub := newStub()
		fund(stub, priv.Address(), testFee+testAmount-1, 4)
		signed := signedSpend(t, priv, 5, 0)
		findings, err := Transaction(context.Background(), signed.Encoded, stub)
		require.NoError(t, err)
		require.Equal(t, []string{ReasonInsufficientBalance}, reasons(findings))
	})

	t.Run("exact cost", func(t *testing.T) {
		stub := newStub()
		fund(stub, priv.Address(), testFee+testAmount, 4)
		signed := signedSpend(t, priv, 5, 0)
		findings, err := Transaction(context.Background(), signed.Encoded, stub)
		require.NoError(t, err)
		require.Empty(t, findings)
	})
}

// Every failing check contributes its own finding; unrelated checks
// must not mask each other.
func TestVerifyIndependentFindings(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	other, err := keys.Generate()
	require.NoError(t, err)

	stub := newStub()
	fund(stub, priv.Address(), testFee+testAmount-1, 10)

	// Wrong key, already-used nonce, expired ttl and a short balance.
	spend := buildSpend(t, priv, 3, 50)
	signed, err := transaction.Sign(other, testNetwork, spend.RLPBytes, false)
	require.NoError(t, err)

	findings, err := Transaction(context.Background(), signed.Encoded, stub)
	require.NoError(t, err)
	require.Equal(t, []string{
		ReasonExpiredTTL,
		ReasonInsufficientBalance,
		ReasonInvalidSignature,
		ReasonNonceAlreadyUsed,
	}, reasons(findings))
}

// An account the chain does not know yet behaves as a zero-balance
// account with nonce 0, so nonce 1 is acceptable and any fee is not.
func TestVerifyFreshAccountBaseline(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	stub := newStub()

	signed := signedSpend(t, priv, 1, 0)
	findings, err := Transaction(context.Background(), signed.Encoded, stub)
	require.NoError(t, err)
	require.Equal(t, []string{ReasonInsufficientBalance}, reasons(findings))
}

func TestVerifyGeneralizedAccountCannotSign(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	stub := newStub()
	fund(stub, priv.Address(), testFee+testAmount, 4)
	stub.accounts[priv.Address()].Kind = transaction.AccountGeneralized

	signed := signedSpend(t, priv, 5, 0)
	findings, err := Transaction(context.Background(), signed.Encoded, stub)
	require.NoError(t, err)
	require.Equal(t, []string{ReasonInvalidAccountType}, reasons(findings))
}

// Inside a generalized-account wrapper the nonce is managed by the
// auth contract and the wrapped container needs no signatures, so
// neither check may fire.
func TestVerifyGaMetaSkipsNonceAndSignature(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	addr := priv.Address()
	stub := newStub()
	fund(stub, addr, 1_000_000_000_000_000_000, 4)
	stub.accounts[addr].Kind = transaction.AccountGeneralized

	spend := buildSpend(t, priv, 99, 0) // far ahead of the account nonce
	unsigned, err := transaction.Build(transaction.SignedTx, transaction.Fields{
		"signatures": [][]byte{},
		"encodedTx":  spend.RLPBytes,
	}, nil)
	require.NoError(t, err)

	meta, err := transaction.Build(transaction.GaMetaTx, transaction.Fields{
		"gaId":       addr,
		"authData":   []byte("auth-call-data"),
		"abiVersion": uint64(3),
		"fee":        testFee,
		"gasLimit":   uint64(50_000),
		"gasPrice":   uint64(1_000_000_000),
		"tx":         unsigned.RLPBytes,
	}, nil)
	require.NoError(t, err)

	findings, err := Transaction(context.Background(), meta.Encoded, stub)
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestVerifyGaMetaOverBasicAccount(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	addr := priv.Address()
	stub := newStub()
	fund(stub, addr, 1_000_000_000_000_000_000, 4)

	spend := buildSpend(t, priv, 5, 0)
	unsigned, err := transaction.Build(transaction.SignedTx, transaction.Fields{
		"signatures": [][]byte{},
		"encodedTx":  spend.RLPBytes,
	}, nil)
	require.NoError(t, err)
	meta, err := transaction.Build(transaction.GaMetaTx, transaction.Fields{
		"gaId":       addr,
		"authData":   []byte("auth-call-data"),
		"abiVersion": uint64(3),
		"fee":        testFee,
		"gasPrice":   uint64(1_000_000_000),
		"tx":         unsigned.RLPBytes,
	}, nil)
	require.NoError(t, err)

	findings, err := Transaction(context.Background(), meta.Encoded, stub)
	require.NoError(t, err)
	require.Equal(t, []string{ReasonInvalidAccountType}, reasons(findings))
}

func payingFor(t *testing.T, payer, sender *keys.PrivateKey, payerNonce uint64) *transaction.BuiltTransaction {
	t.Helper()
	spend := buildSpend(t, sender, 5, 0)
	signed, err := transaction.Sign(sender, testNetwork, spend.RLPBytes, true)
	require.NoError(t, err)
	outer, err := transaction.Build(transaction.PayingForTx, transaction.Fields{
		"payerId": payer.Address(),
		"nonce":   payerNonce,
		"fee":     testFee,
		"tx":      signed.RLPBytes,
	}, nil)
	require.NoError(t, err)
	return outer
}

// The payer covers its own fee plus the wrapped transaction's fee; the
// wrapped sender pays everything but the fee.
func TestVerifyPayingForFeeAccounting(t *testing.T) {
	payer, err := keys.Generate()
	require.NoError(t, err)
	sender, err := keys.Generate()
	require.NoError(t, err)

	t.Run("exact balances", func(t *testing.T) {
		stub := newStub()
		fund(stub, payer.Address(), 2*testFee, 0)
		fund(stub, sender.Address(), testAmount, 4)
		outer := payingFor(t, payer, sender, 1)
		findings, err := Transaction(context.Background(), outer.Encoded, stub)
		require.NoError(t, err)
		require.Empty(t, findings)
	})

	t.Run("payer short of the inner fee", func(t *testing.T) {
		stub := newStub()
		fund(stub, payer.Address(), 2*testFee-1, 0)
		fund(stub, sender.Address(), testAmount, 4)
		outer := payingFor(t, payer, sender, 1)
		findings, err := Transaction(context.Background(), outer.Encoded, stub)
		require.NoError(t, err)
		require.Equal(t, []string{ReasonInsufficientBalance}, reasons(findings))
	})

	t.Run("sender short of the amount", func(t *testing.T) {
		stub := newStub()
		fund(stub, payer.Address(), 2*testFee, 0)
		fund(stub, sender.Address(), testAmount-1, 4)
		outer := payingFor(t, payer, sender, 1)
		findings, err := Transaction(context.Background(), outer.Encoded, stub)
		require.NoError(t, err)
		require.Equal(t, []string{ReasonInsufficientBalance}, reasons(findings))
	})
}

// A sponsored transaction is signed over the marked payload; the plain
// one must be rejected.
func TestVerifyPayingForInnerMarker(t *testing.T) {
	payer, err := keys.Generate()
	require.NoError(t, err)
	sender, err := keys.Generate()
	require.NoError(t, err)
	stub := newStub()
	fund(stub, payer.Address(), 2*testFee, 0)
	fund(stub, sender.Address(), testAmount, 4)

	spend := buildSpend(t, sender, 5, 0)
	signed, err := transaction.Sign(sender, testNetwork, spend.RLPBytes, false)
	require.NoError(t, err)
	outer, err := transaction.Build(transaction.PayingForTx, transaction.Fields{
		"payerId": payer.Address(),
		"nonce":   uint64(1),
		"fee":     testFee,
		"tx":      signed.RLPBytes,
	}, nil)
	require.NoError(t, err)

	findings, err := Transaction(context.Background(), outer.Encoded, stub)
	require.NoError(t, err)
	require.Equal(t, []string{ReasonInvalidSignature}, reasons(findings))
}

func contractCall(t *testing.T, caller *keys.PrivateKey, contractID string) *transaction.BuiltTransaction {
	t.Helper()
	call, err := transaction.Build(transaction.ContractCallTx, transaction.Fields{
		"callerId":   caller.Address(),
		"nonce":      uint64(5),
		"contractId": contractID,
		"abiVersion": uint64(3),
		"fee":        testFee,
		"ttl":        uint64(0),
		"gasLimit":   uint64(25_000),
		"gasPrice":   uint64(1_000_000_000),
		"callData":   []byte("call-data"),
	}, nil)
	require.NoError(t, err)
	return call
}

func TestVerifyContractLiveness(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	contractID := "ct_" + newStubContractSuffix(t)

	t.Run("missing", func(t *testing.T) {
		stub := newStub()
		fund(stub, priv.Address(), 1_000_000_000_000_000_000, 4)
		call := contractCall(t, priv, contractID)
		findings, err := Transaction(context.Background(), call.Encoded, stub)
		require.NoError(t, err)
		require.Equal(t, []string{ReasonContractNotFound}, reasons(findings))
	})

	t.Run("disabled", func(t *testing.T) {
		stub := newStub()
		fund(stub, priv.Address(), 1_000_000_000_000_000_000, 4)
		stub.contracts[contractID] = &transaction.Contract{ID: contractID, Active: false}
		call := contractCall(t, priv, contractID)
		findings, err := Transaction(context.Background(), call.Encoded, stub)
		require.NoError(t, err)
		require.Equal(t, []string{ReasonContractNotActive}, reasons(findings))
	})

	t.Run("active", func(t *testing.T) {
		stub := newStub()
		fund(stub, priv.Address(), 1_000_000_000_000_000_000, 4)
		stub.contracts[contractID] = &transaction.Contract{ID: contractID, Active: true}
		call := contractCall(t, priv, contractID)
		findings, err := Transaction(context.Background(), call.Encoded, stub)
		require.NoError(t, err)
		require.Empty(t, findings)
	})
}

func newStubContractSuffix(t *testing.T) string {
	t.Helper()
	priv, err := keys.Generate()
	require.NoError(t, err)
	// Contract ids share the address payload shape; reuse a key for a
	// syntactically valid id.
	return priv.Address()[len("ak_"):]
}

func TestVerifyCtVersionMismatch(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)

	create := func(t *testing.T, vm uint16) *transaction.BuiltTransaction {
		t.Helper()
		built, err := transaction.Build(transaction.ContractCreateTx, transaction.Fields{
			"ownerId":   priv.Address(),
			"nonce":     uint64(5),
			"code":      []byte("contract-code"),
			"ctVersion": transaction.CtVersion{VMVersion: vm, ABIVersion: 3},
			"fee":       testFee,
			"ttl":       uint64(0),
			"gasPrice":  uint64(1_000_000_000),
			"callData":  []byte("init-call-data"),
		}, nil)
		require.NoError(t, err)
		return built
	}

	stub := newStub()
	fund(stub, priv.Address(), 1_000_000_000_000_000_000, 4)

	findings, err := Transaction(context.Background(), create(t, 7).Encoded, stub)
	require.NoError(t, err)
	require.Equal(t, []string{ReasonVmAndAbiVersionMismatch}, reasons(findings))

	findings, err = Transaction(context.Background(), create(t, 8).Encoded, stub)
	require.NoError(t, err)
	require.Empty(t, findings)
}

func TestVerifyUnknownProtocolEscalates(t *testing.T) {
	priv, err := keys.Generate()
	require.NoError(t, err)
	stub := newStub()
	stub.protocol = 99
	fund(stub, priv.Address(), 1_000_000_000_000_000_000, 4)

	call := contractCall(t, priv, "ct_"+newStubContractSuffix(t))
	stub.contracts[call.Raw.ID("contractId")] = &transaction.Contract{Active: true}

	_, err = Transaction(context.Background(), call.Encoded, stub)
	var unsupported *transaction.UnsupportedProtocolError
	require.ErrorAs(t, err, &unsupported)
	require.EqualValues(t, 99, unsupported.Protocol)
}

// A nested transaction is verified against the same chain view as its
// wrapper: height and per-account state are fetched once per call.
func TestVerifySnapshotFetchedOnce(t *testing.T) {
	payer, err := keys.Generate()
	require.NoError(t, err)
	sender, err := keys.Generate()
	require.NoError(t, err)
	stub := newStub()
	fund(stub, payer.Address(), 2*testFee, 0)
	fund(stub, sender.Address(), testAmount, 4)

	outer := payingFor(t, payer, sender, 1)
	findings, err := Transaction(context.Background(), outer.Encoded, stub)
	require.NoError(t, err)
	require.Empty(t, findings)

	require.Equal(t, 1, stub.heightCalls)
	require.Equal(t, 1, stub.accountCalls[payer.Address()])
	// The sender appears at two nesting levels but is fetched once.
	require.Equal(t, 1, stub.accountCalls[sender.Address()])
}
