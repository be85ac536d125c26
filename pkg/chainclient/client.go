// Package chainclient talks to the v3 HTTP API of an æternity-style
// node and exposes the chain state reads transaction preparation and
// verification consume.
package chainclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/transaction"
)

const (
	defaultDialTimeout    = 4 * time.Second
	defaultRequestTimeout = 4 * time.Second
)

// Options defines options for the node client. All values are
// optional; durations default to 4 seconds.
type Options struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	// Limit total number of connections per host. No limit by default.
	MaxConnsPerHost int
	Logger          *zap.Logger
}

// Client reads chain state over the node's HTTP API. It implements
// transaction.ChainQuery, is safe for concurrent use and keeps no
// state besides the connection pool.
type Client struct {
	cli      *http.Client
	endpoint *url.URL
	log      *zap.Logger
}

// New returns a Client bound to the given node base URL, e.g.
// "https://mainnet.aeternity.io".
func New(endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing node endpoint: %w", err)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		cli: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.DialTimeout,
				}).DialContext,
				MaxConnsPerHost: opts.MaxConnsPerHost,
			},
			Timeout: opts.RequestTimeout,
		},
		endpoint: u,
		log:      opts.Logger,
	}, nil
}

// errNotFound marks a 404 reply; callers map it to the object-specific
// sentinel.
var errNotFound = errors.New("object not found")

func (c *Client) get(ctx context.Context, call string, out interface{}, query url.Values, elems ...string) error {
	u := c.endpoint.JoinPath(append([]string{"v3"}, elems...)...)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	apiRequests.WithLabelValues(call).Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("building %s request: %w", call, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		apiFailures.WithLabelValues(call).Inc()
		return fmt.Errorf("calling %s: %w", u.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", u.Path, errNotFound)
	case resp.StatusCode != http.StatusOK:
		apiFailures.WithLabelValues(call).Inc()
		return fmt.Errorf("%s replied %s", u.Path, resp.Status)
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		apiFailures.WithLabelValues(call).Inc()
		return fmt.Errorf("decoding %s reply: %w", call, err)
	}
	c.log.Debug("node call done", zap.String("call", call), zap.String("path", u.Path))
	return nil
}

type accountResponse struct {
	ID      string      `json:"id"`
	Balance json.Number `json:"balance"`
	Nonce   uint64      `json:"nonce"`
	Kind    string      `json:"kind"`
}

// Account fetches the current state of an account. A missing account
// reports transaction.ErrAccountNotFound.
func (c *Client) Account(ctx context.Context, address string) (*transaction.Account, error) {
	var resp accountResponse
	err := c.get(ctx, "account", &resp, nil, "accounts", address)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("account %s: %w", address, transaction.ErrAccountNotFound)
	}
	if err != nil {
		return nil, err
	}
	balance, err := parseBalance(resp.Balance)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", address, err)
	}
	kind := transaction.AccountKind(resp.Kind)
	if kind == "" {
		kind = transaction.AccountBasic
	}
	return &transaction.Account{
		ID:      resp.ID,
		Balance: balance,
		Nonce:   resp.Nonce,
		Kind:    kind,
	}, nil
}

// parseBalance handles balances beyond the uint64 range; the node
// emits them as plain JSON numbers.
func parseBalance(n json.Number) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(n.String(), 10)
	if !ok {
		return nil, fmt.Errorf("balance %q is not an integer", n)
	}
	out, overflow := uint256.FromBig(b)
	if overflow || b.Sign() < 0 {
		return nil, fmt.Errorf("balance %q out of range", n)
	}
	return out, nil
}

// NextNonce asks the node for the next usable nonce of an account
// under the given strategy. The node reports 1 for accounts it has
// never seen.
func (c *Client) NextNonce(ctx context.Context, address string, strategy transaction.NonceStrategy) (uint64, error) {
	var resp struct {
		NextNonce uint64 `json:"next_nonce"`
	}
	query := url.Values{}
	if strategy != "" {
		query.Set("strategy", string(strategy))
	}
	err := c.get(ctx, "next_nonce", &resp, query, "accounts", address, "next-nonce")
	if errors.Is(err, errNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.NextNonce, nil
}

// Height returns the current key-block height.
func (c *Client) Height(ctx context.Context) (uint64, error) {
	var resp struct {
		Height uint64 `json:"height"`
	}
	if err := c.get(ctx, "height", &resp, nil, "key-blocks", "current", "height"); err != nil {
		return 0, err
	}
	return resp.Height, nil
}

type statusResponse struct {
	NetworkID      string `json:"network_id"`
	TopBlockHeight uint64 `json:"top_block_height"`
	Protocols      []struct {
		Version           uint64 `json:"version"`
		EffectiveAtHeight uint64 `json:"effective_at_height"`
	} `json:"protocols"`
}

// ProtocolInfo reads the node status and resolves the consensus
// protocol in effect at the current top height.
func (c *Client) ProtocolInfo(ctx context.Context) (*transaction.ProtocolInfo, error) {
	var resp statusResponse
	if err := c.get(ctx, "status", &resp, nil, "status"); err != nil {
		return nil, err
	}
	var (
		protocol uint64
		bestAt   uint64
		found    bool
	)
	for _, p := range resp.Protocols {
		if p.EffectiveAtHeight > resp.TopBlockHeight {
			continue
		}
		if !found || p.EffectiveAtHeight >= bestAt {
			protocol, bestAt, found = p.Version, p.EffectiveAtHeight, true
		}
	}
	if !found {
		return nil, fmt.Errorf("node status lists no protocol effective at height %d", resp.TopBlockHeight)
	}
	return &transaction.ProtocolInfo{
		NetworkID:         resp.NetworkID,
		ConsensusProtocol: protocol,
	}, nil
}

// GasPrices returns the node's recent gas price observations.
func (c *Client) GasPrices(ctx context.Context) ([]transaction.GasPriceSample, error) {
	var resp []struct {
		MinGasPrice uint64 `json:"min_gas_price"`
		Utilization uint8  `json:"utilization"`
		MinedBlocks uint64 `json:"mined_blocks"`
	}
	if err := c.get(ctx, "gas_prices", &resp, nil, "recent-gas-prices"); err != nil {
		return nil, err
	}
	out := make([]transaction.GasPriceSample, len(resp))
	for i, s := range resp {
		out[i] = transaction.GasPriceSample{
			MinGasPrice: s.MinGasPrice,
			Utilization: s.Utilization,
			MinedBlocks: s.MinedBlocks,
		}
	}
	return out, nil
}

// Contract fetches the on-chain state of a contract. A missing
// contract reports transaction.ErrContractNotFound.
func (c *Client) Contract(ctx context.Context, id string) (*transaction.Contract, error) {
	var resp struct {
		ID         string `json:"id"`
		OwnerID    string `json:"owner_id"`
		Active     bool   `json:"active"`
		VMVersion  uint16 `json:"vm_version"`
		ABIVersion uint16 `json:"abi_version"`
	}
	err := c.get(ctx, "contract", &resp, nil, "contracts", id)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("contract %s: %w", id, transaction.ErrContractNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &transaction.Contract{
		ID:         resp.ID,
		OwnerID:    resp.OwnerID,
		Active:     resp.Active,
		VMVersion:  resp.VMVersion,
		ABIVersion: resp.ABIVersion,
	}, nil
}

var _ transaction.ChainQuery = (*Client)(nil)
