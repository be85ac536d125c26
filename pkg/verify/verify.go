// Package verify pre-validates encoded transactions against a live
// chain view, reporting advisory findings for everything a node would
// reject: bad signatures, stale nonces, expired ttls, underfunded
// senders, wrong account kinds, incompatible vm/abi versions and dead
// call targets.
//
// Findings never abort verification; only context-level problems (an
// unrecognized consensus protocol, malformed transaction bytes or a
// failing chain query) surface as errors.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/transaction"
)

// Finding is one advisory verification result. Fields names the
// transaction fields the failed check looked at.
type Finding struct {
	Message string
	Reason  string
	Fields  []string
}

// Reason codes of the built-in checks.
const (
	ReasonInvalidSignature        = "InvalidSignature"
	ReasonExpiredTTL              = "ExpiredTTL"
	ReasonInsufficientBalance     = "InsufficientBalance"
	ReasonInvalidAccountType      = "InvalidAccountType"
	ReasonNonceAlreadyUsed        = "NonceAlreadyUsed"
	ReasonNonceHigh               = "NonceHigh"
	ReasonVmAndAbiVersionMismatch = "VmAndAbiVersionMismatch"
	ReasonContractNotFound        = "ContractNotFound"
	ReasonContractNotActive       = "ContractNotActive"
)

// Option tunes a verification call.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger attaches a logger to the verification call.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Transaction verifies an encoded ("tx_...") transaction against
// current chain state and returns all findings of the independent check
// stages. The chain snapshot (height, protocol, accounts) is fetched
// once and shared by every nested check, so all of them observe the
// same chain view even if the ledger advances mid-call.
func Transaction(ctx context.Context, encoded string, q transaction.ChainQuery, opts ...Option) ([]Finding, error) {
	o := &options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	raw, _, err := transaction.Unpack(encoded, 0)
	if err != nil {
		return nil, err
	}
	snap, err := newSnapshot(ctx, q)
	if err != nil {
		return nil, err
	}
	return verifyRaw(ctx, raw, snap, nil, o)
}

// snapshot is the immutable chain view of one top-level verification
// call. Height and protocol are fetched eagerly; accounts are fetched
// once per address on demand and cached, with a missing account
// resolving to the fresh-account baseline (zero balance, nonce 0).
type snapshot struct {
	q         transaction.ChainQuery
	height    uint64
	networkID string
	protocol  uint64

	mu       sync.Mutex
	accounts map[string]*transaction.Account
}

func newSnapshot(ctx context.Context, q transaction.ChainQuery) (*snapshot, error) {
	height, err := q.Height(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching current height: %w", err)
	}
	info, err := q.ProtocolInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching protocol info: %w", err)
	}
	return &snapshot{
		q:         q,
		height:    height,
		networkID: info.NetworkID,
		protocol:  info.ConsensusProtocol,
		accounts:  map[string]*transaction.Account{},
	}, nil
}

func (s *snapshot) account(ctx context.Context, address string) (*transaction.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[address]; ok {
		return acct, nil
	}
	acct, err := s.q.Account(ctx, address)
	switch {
	case err == nil:
	case errors.Is(err, transaction.ErrAccountNotFound):
		acct = &transaction.Account{
			ID:      address,
			Balance: zero(),
			Nonce:   0,
			Kind:    transaction.AccountBasic,
		}
	default:
		return nil, fmt.Errorf("fetching account %s: %w", address, err)
	}
	s.accounts[address] = acct
	return acct, nil
}

// senderRoles is the priority order of the fields that can carry the
// responsible account of a transaction; the first present one wins.
var senderRoles = []string{
	"senderId", "accountId", "ownerId", "callerId", "oracleId",
	"fromId", "initiator", "gaId", "payerId",
}

// senderAddress resolves the account responsible for a transaction. A
// signature container has no role field of its own, so its sender is
// the inner transaction's one.
func senderAddress(raw *transaction.RawTransaction) (string, error) {
	if raw.Type == transaction.SignedTx {
		inner, err := innerRaw(raw)
		if err != nil {
			return "", err
		}
		return senderAddress(inner)
	}
	for _, role := range senderRoles {
		if id := raw.ID(role); id != "" {
			return transaction.OracleToAccount(id)
		}
	}
	return "", fmt.Errorf("%s carries no sender field", raw.Type)
}

func innerRaw(raw *transaction.RawTransaction) (*transaction.RawTransaction, error) {
	name := innerFieldName(raw.Type)
	if name == "" {
		return nil, fmt.Errorf("%s is not a container", raw.Type)
	}
	b, ok := raw.Field(name).([]byte)
	if !ok {
		return nil, fmt.Errorf("%s field %s carries no transaction", raw.Type, name)
	}
	return transaction.UnpackBytes(b, 0)
}

func innerFieldName(t transaction.Type) string {
	switch t {
	case transaction.SignedTx:
		return "encodedTx"
	case transaction.GaMetaTx, transaction.PayingForTx:
		return "tx"
	}
	return ""
}

// checkContext is the shared input of all check stages of one
// transaction, assembled before the concurrent fan-out.
type checkContext struct {
	raw     *transaction.RawTransaction
	snap    *snapshot
	parents []transaction.Type
	sender  string
	account *transaction.Account
	opts    *options
}

type checkFunc func(ctx context.Context, in *checkContext) ([]Finding, error)

// The fixed stage list. Stages are independent pure functions over the
// check context; they run concurrently and their findings are merged
// without ordering guarantees.
var stages []checkFunc

func init() {
	stages = []checkFunc{
		checkSignature,
		checkNested,
		checkTTL,
		checkBalance,
		checkAccountKind,
		checkNonce,
		checkCtVersion,
		checkContractLiveness,
	}
}

func verifyRaw(ctx context.Context, raw *transaction.RawTransaction, snap *snapshot, parents []transaction.Type, o *options) ([]Finding, error) {
	sender, err := senderAddress(raw)
	if err != nil {
		return nil, err
	}
	account, err := snap.account(ctx, sender)
	if err != nil {
		return nil, err
	}
	in := &checkContext{
		raw:     raw,
		snap:    snap,
		parents: parents,
		sender:  sender,
		account: account,
		opts:    o,
	}

	results := make([][]Finding, len(stages))
	g, gctx := errgroup.WithContext(ctx)
	for i, stage := range stages {
		i, stage := i, stage
		g.Go(func() error {
			findings, err := stage(gctx, in)
			if err != nil {
				return err
			}
			results[i] = findings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Finding
	for _, findings := range results {
		all = append(all, findings...)
	}
	if len(all) > 0 {
		o.log.Debug("transaction verification produced findings",
			zap.Stringer("type", raw.Type), zap.Int("findings", len(all)))
	}
	return all, nil
}
