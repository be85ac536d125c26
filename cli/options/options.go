// Package options contains the flags and helpers the commands share.
package options

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/chainclient"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/config"
)

// NodeEndpointFlag is the name of the flag carrying the node address.
const NodeEndpointFlag = "node"

// DefaultTimeout is the timeout used for operations against a node
// when the user does not ask for another one.
const DefaultTimeout = 10 * time.Second

var errNoEndpoint = errors.New("no node endpoint given, use --node, --config-file or a built-in network flag")

// Network is a set of flags for selecting one of the built-in or
// configured networks.
var Network = []cli.Flag{
	cli.BoolFlag{Name: "mainnet, m", Usage: "Use mainnet network configuration (if --config-file option is not specified)"},
	cli.BoolFlag{Name: "testnet, t", Usage: "Use testnet network configuration (if --config-file option is not specified)"},
	cli.StringFlag{Name: "config-file", Usage: "Path to a network configuration file"},
}

// Node is a set of flags used for node connections (endpoint and
// timeout).
var Node = []cli.Flag{
	cli.StringFlag{
		Name:  NodeEndpointFlag + ", n",
		Usage: "Node address",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
}

// GetTimeoutContext returns a context deadline-bound per the timeout
// flag.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	dur := ctx.Duration("timeout")
	if dur == 0 {
		dur = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), dur)
}

// GetConfig resolves the network configuration from the flags, in
// order: explicit config file, built-in network flags, then mainnet.
func GetConfig(ctx *cli.Context) (config.Config, error) {
	if path := ctx.String("config-file"); path != "" {
		return config.Load(path)
	}
	if ctx.Bool("testnet") {
		return config.TestNet(), nil
	}
	return config.MainNet(), nil
}

// GetChainClient returns a node client plus the resolved network
// configuration for the given context.
func GetChainClient(ctx *cli.Context) (*chainclient.Client, config.Config, cli.ExitCoder) {
	cfg, err := GetConfig(ctx)
	if err != nil {
		return nil, config.Config{}, cli.NewExitError(err, 1)
	}
	endpoint := ctx.String(NodeEndpointFlag)
	if endpoint == "" {
		endpoint = cfg.Network.NodeEndpoint
	}
	if endpoint == "" {
		return nil, config.Config{}, cli.NewExitError(errNoEndpoint, 1)
	}
	c, err := chainclient.New(endpoint, chainclient.Options{
		DialTimeout:    cfg.Client.DialTimeout,
		RequestTimeout: cfg.Client.RequestTimeout,
	})
	if err != nil {
		return nil, config.Config{}, cli.NewExitError(err, 1)
	}
	return c, cfg, nil
}
