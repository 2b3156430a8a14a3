// ====================================
// File: cmd/txpipe/main.go
// ====================================
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "txpipe",
		Usage:   "Fee-aware Solana transaction submission",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Commands: []*cli.Command{
			transferCommand(),
			estimateCommand(),
			balanceCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML/JSON config file",
				EnvVars: []string{"SOLANA_TXPIPE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "rpc-url",
				Usage: "Override the RPC endpoint from config",
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Base58 encoded fee payer private key",
				EnvVars: []string{"SOLANA_TXPIPE_PRIVATE_KEY"},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
