// Package tx implements the transaction commands: building, decoding,
// hashing, signing and pre-validating encoded transactions.
package tx

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/holiman/uint256"
	"github.com/urfave/cli"

	"github.com/Lildeebo2002/aepp-sdk-go/cli/options"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/keys"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/transaction"
	"github.com/Lildeebo2002/aepp-sdk-go/pkg/verify"
)

// NewCommands returns the 'tx' command.
func NewCommands() []cli.Command {
	buildSpendFlags := append([]cli.Flag{
		cli.StringFlag{Name: "sender", Usage: "Sender account address (ak_...)"},
		cli.StringFlag{Name: "recipient", Usage: "Recipient address (ak_..., nm_..., ct_... or ok_...)"},
		cli.StringFlag{Name: "amount", Usage: "Amount to transfer, in aettos"},
		cli.BoolFlag{Name: "ae", Usage: "Read --amount and --fee as AE instead of aettos"},
		cli.StringFlag{Name: "fee", Usage: "Fee in aettos (computed when omitted)"},
		cli.Uint64Flag{Name: "nonce", Usage: "Sender nonce (resolved from the node when omitted)"},
		cli.Int64Flag{Name: "ttl", Usage: "Blocks until expiry, 0 for no expiry"},
		cli.StringFlag{Name: "payload", Usage: "Optional payload bytes"},
	}, append(options.Node, options.Network...)...)
	verifyFlags := append(append([]cli.Flag{}, options.Node...), options.Network...)
	signFlags := []cli.Flag{
		cli.StringFlag{Name: "key", Usage: "Signing key, hex-encoded"},
		cli.StringFlag{Name: "network-id", Value: "ae_mainnet", Usage: "Network id to bind the signature to"},
		cli.BoolFlag{Name: "inner", Usage: "Sign as a transaction to be wrapped by a fee payer"},
	}
	return []cli.Command{{
		Name:  "tx",
		Usage: "Build, inspect and pre-validate transactions",
		Subcommands: []cli.Command{
			{
				Name:      "build-spend",
				Usage:     "Build an unsigned spend transaction",
				UsageText: "tx build-spend --sender <ak_...> --recipient <addr> --amount <n> [--fee <n>] [--nonce <n>] [--ttl <n>]",
				Action:    buildSpend,
				Flags:     buildSpendFlags,
			},
			{
				Name:      "unpack",
				Usage:     "Decode an encoded transaction into its fields",
				UsageText: "tx unpack <tx_...>",
				Action:    unpack,
			},
			{
				Name:      "hash",
				Usage:     "Print the hash id of an encoded transaction",
				UsageText: "tx hash <tx_...>",
				Action:    hashTx,
			},
			{
				Name:      "sign",
				Usage:     "Wrap an encoded transaction into a signed one",
				UsageText: "tx sign <tx_...> --key <hex> [--network-id <id>] [--inner]",
				Action:    signTx,
				Flags:     signFlags,
			},
			{
				Name:      "verify",
				Usage:     "Pre-validate an encoded transaction against chain state",
				UsageText: "tx verify <tx_...> [--node <addr>]",
				Action:    verifyTx,
				Flags:     verifyFlags,
			},
		},
	}}
}

func buildSpend(ctx *cli.Context) error {
	sender := ctx.String("sender")
	recipient := ctx.String("recipient")
	if sender == "" || recipient == "" {
		return cli.NewExitError("both --sender and --recipient are required", 1)
	}
	denom := transaction.Aettos
	if ctx.Bool("ae") {
		denom = transaction.AE
	}
	amount, err := parseAmount(ctx.String("amount"), denom)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid --amount: %w", err), 1)
	}

	fields := transaction.Fields{
		"senderId":    sender,
		"recipientId": recipient,
		"amount":      amount,
	}
	if p := ctx.String("payload"); p != "" {
		fields["payload"] = []byte(p)
	}

	req := transaction.ParamsRequest{
		SenderID: sender,
		Nonce:    ctx.Uint64("nonce"),
		TTL:      ctx.Int64("ttl"),
	}
	if f := ctx.String("fee"); f != "" {
		fee, err := parseAmount(f, denom)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid --fee: %w", err), 1)
		}
		req.Fee = fee
	}

	c, _, exitErr := options.GetChainClient(ctx)
	if exitErr != nil {
		return exitErr
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	params, err := transaction.PrepareParams(gctx, transaction.SpendTx, req, fields, nil, c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	for _, w := range params.Warnings {
		fmt.Fprintln(ctx.App.ErrWriter, "warning:", w)
	}
	fields["nonce"] = params.Nonce
	fields["ttl"] = params.TTL
	fields["fee"] = params.Fee

	built, err := transaction.Build(transaction.SpendTx, fields, nil)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, built.Encoded)
	return nil
}

func unpack(ctx *cli.Context) error {
	encoded, err := txArg(ctx)
	if err != nil {
		return err
	}
	raw, _, err := transaction.Unpack(encoded, 0)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	w := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 4, ' ', 0)
	fmt.Fprintf(w, "type:\t%s\n", raw.Type)
	fmt.Fprintf(w, "version:\t%d\n", raw.Version)
	names := make([]string, 0, len(raw.Fields))
	for name := range raw.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s:\t%s\n", name, formatValue(raw.Fields[name]))
	}
	return w.Flush()
}

func hashTx(ctx *cli.Context) error {
	encoded, err := txArg(ctx)
	if err != nil {
		return err
	}
	_, rlpBytes, err := transaction.Unpack(encoded, 0)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, transaction.Hash(rlpBytes))
	return nil
}

func signTx(ctx *cli.Context) error {
	encoded, err := txArg(ctx)
	if err != nil {
		return err
	}
	keyHex := ctx.String("key")
	if keyHex == "" {
		return cli.NewExitError("--key is required", 1)
	}
	priv, err := keys.PrivateKeyFromHex(keyHex)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	_, rlpBytes, err := transaction.Unpack(encoded, 0)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	signed, err := transaction.Sign(priv, ctx.String("network-id"), rlpBytes, ctx.Bool("inner"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, signed.Encoded)
	return nil
}

func verifyTx(ctx *cli.Context) error {
	encoded, err := txArg(ctx)
	if err != nil {
		return err
	}
	c, _, exitErr := options.GetChainClient(ctx)
	if exitErr != nil {
		return exitErr
	}
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	findings, err := verify.Transaction(gctx, encoded, c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if len(findings) == 0 {
		fmt.Fprintln(ctx.App.Writer, "OK: no problems found")
		return nil
	}
	for _, f := range findings {
		fmt.Fprintf(ctx.App.Writer, "%s (%s): %s\n", f.Reason, strings.Join(f.Fields, ","), f.Message)
	}
	return cli.NewExitError(fmt.Sprintf("%d problem(s) found", len(findings)), 1)
}

func txArg(ctx *cli.Context) (string, error) {
	args := ctx.Args()
	if len(args) == 0 {
		return "", cli.NewExitError("transaction string is missing", 1)
	}
	return args[0], nil
}

func parseAmount(s string, denom transaction.Denomination) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	return denom.ToAettos(n)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case []byte:
		return fmt.Sprintf("%x", val)
	case [][]byte:
		parts := make([]string, len(val))
		for i, b := range val {
			parts[i] = fmt.Sprintf("%x", b)
		}
		return strings.Join(parts, ", ")
	case transaction.CtVersion:
		return fmt.Sprintf("vm %d / abi %d", val.VMVersion, val.ABIVersion)
	default:
		return fmt.Sprint(v)
	}
}
