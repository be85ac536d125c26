package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/urfave/cli"

	"github.com/Lildeebo2002/aepp-sdk-go/cli/key"
	"github.com/Lildeebo2002/aepp-sdk-go/cli/tx"
)

// Version of the tool, set at build time.
var Version = "dev"

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "aepp-sdk\nVersion: %s\nGoVersion: %s\n",
		Version,
		runtime.Version(),
	)
}

// New creates an [cli.App] instance with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "aepp-sdk"
	ctl.Version = Version
	ctl.Usage = "Transaction tooling for æternity-style chains"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, tx.NewCommands()...)
	ctl.Commands = append(ctl.Commands, key.NewCommands()...)
	return ctl
}
