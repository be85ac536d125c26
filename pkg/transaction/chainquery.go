package transaction

import (
	"context"

	"github.com/holiman/uint256"
)

// AccountKind distinguishes plain key-pair accounts from generalized
// accounts whose authorization logic is a deployed contract.
type AccountKind string

// Account kinds as reported by the chain.
const (
	AccountBasic       AccountKind = "basic"
	AccountGeneralized AccountKind = "generalized"
)

// Account is the chain-state view of an account.
type Account struct {
	ID      string
	Balance *uint256.Int
	Nonce   uint64
	Kind    AccountKind
}

// Contract is the chain-state view of a contract.
type Contract struct {
	ID         string
	OwnerID    string
	Active     bool
	VMVersion  uint16
	ABIVersion uint16
}

// ProtocolInfo describes the network a node is part of.
type ProtocolInfo struct {
	NetworkID         string
	ConsensusProtocol uint64
}

// GasPriceSample is one recent gas price observation from the chain.
type GasPriceSample struct {
	MinGasPrice uint64
	// Utilization of the sampled blocks, percent.
	Utilization uint8
	MinedBlocks uint64
}

// NonceStrategy selects how the next usable nonce of an account is
// determined.
type NonceStrategy string

// Nonce strategies.
const (
	// NonceContinuity returns the strictly next value after the
	// account's confirmed nonce.
	NonceContinuity NonceStrategy = "continuity"
	// NonceMax returns one past the highest nonce seen for the
	// account, including pending transactions.
	NonceMax NonceStrategy = "max"
)

// ChainQuery is the read-only view of ledger state this package
// consumes. Implementations own all transport concerns (retries,
// timeouts, backoff); callers cancel through ctx.
//
// Account and Contract report ErrAccountNotFound/ErrContractNotFound
// for objects that do not exist on chain, distinct from transport
// failures.
type ChainQuery interface {
	Account(ctx context.Context, address string) (*Account, error)
	NextNonce(ctx context.Context, address string, strategy NonceStrategy) (uint64, error)
	Height(ctx context.Context) (uint64, error)
	ProtocolInfo(ctx context.Context) (*ProtocolInfo, error)
	GasPrices(ctx context.Context) ([]GasPriceSample, error)
	Contract(ctx context.Context, id string) (*Contract, error)
}
