// Package key implements the keypair commands.
package key

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli"

	"github.com/Lildeebo2002/aepp-sdk-go/pkg/crypto/keys"
)

// NewCommands returns the 'key' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:  "key",
		Usage: "Manage keypairs",
		Subcommands: []cli.Command{
			{
				Name:   "generate",
				Usage:  "Generate a new keypair and print its address",
				Action: generate,
				Flags: []cli.Flag{
					cli.BoolFlag{Name: "show-secret", Usage: "Also print the secret key, hex-encoded"},
				},
			},
			{
				Name:      "address",
				Usage:     "Print the address of a secret key",
				UsageText: "key address <hex>",
				Action:    address,
			},
		},
	}}
}

func generate(ctx *cli.Context) error {
	priv, err := keys.Generate()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, "address:", priv.Address())
	if ctx.Bool("show-secret") {
		fmt.Fprintln(ctx.App.Writer, "secret:", hex.EncodeToString(priv.Bytes()))
	}
	return nil
}

func address(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) == 0 {
		return cli.NewExitError("secret key is missing", 1)
	}
	priv, err := keys.PrivateKeyFromHex(args[0])
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, priv.Address())
	return nil
}
