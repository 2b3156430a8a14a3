package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/export"
	"github.com/rovshanmuradov/solana-txpipe/internal/transaction"
)

func transferFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "to",
			Usage:    "Recipient address",
			Required: true,
		},
		&cli.Uint64Flag{
			Name:     "lamports",
			Usage:    "Amount to transfer in lamports",
			Required: true,
		},
	}
}

func transferCommand() *cli.Command {
	flags := append(transferFlags(),
		&cli.BoolFlag{
			Name:  "priority-fees",
			Usage: "Estimate and attach compute budget instructions",
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output the receipt as JSON",
		},
		&cli.StringFlag{
			Name:  "export-dir",
			Usage: "Write the submission receipt to this directory",
		},
		&cli.StringFlag{
			Name:  "export-format",
			Value: string(export.FormatJSON),
			Usage: "Receipt export format (json or csv)",
		},
	)
	return &cli.Command{
		Name:  "transfer",
		Usage: "Send SOL through the submission pipeline",
		Flags: flags,
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			payer, err := rt.wallet(c)
			if err != nil {
				return err
			}
			req, err := transferRequest(c, payer.PublicKey)
			if err != nil {
				return err
			}
			req.NeedsPriorityFees = c.Bool("priority-fees")
			req.Options = rt.cfg.SubmitOptions()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if balance, err := rt.client.GetBalance(ctx, payer.PublicKey, req.Options.Commitment); err == nil {
				rt.log.WithWallet(payer.String()).Info("Payer balance",
					zap.Uint64("lamports", balance),
					zap.Uint64("transfer", c.Uint64("lamports")))
			}

			end := rt.log.TrackPerformance("transfer")
			defer end()

			receipt, err := rt.pipeline.SendDetailed(ctx, req, payer)
			if dir := c.String("export-dir"); dir != "" && receipt != nil {
				if exportErr := exportReceipt(rt, receipt, dir, c.String("export-format")); exportErr != nil {
					rt.log.LogError("Receipt export failed", exportErr)
				}
			}
			if err != nil {
				rt.log.WithWallet(payer.String()).Error("Transfer failed", zap.Error(err))
				return err
			}

			rt.log.WithTransaction(receipt.Signature.String()).Info("Transfer confirmed",
				zap.Int("attempts", len(receipt.Attempts)))

			if c.Bool("json") {
				return json.NewEncoder(os.Stdout).Encode(receipt)
			}
			fmt.Printf("✓ Transaction confirmed\n")
			fmt.Printf("  Signature: %s\n", receipt.Signature)
			fmt.Printf("  Attempts:  %d\n", len(receipt.Attempts))
			if receipt.Status != nil {
				fmt.Printf("  Status:    %s (slot %d)\n", receipt.Status.Status, receipt.Status.Slot)
			}
			return nil
		},
	}
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate the priority fee and compute units for a transfer",
		Flags: transferFlags(),
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			payer, err := rt.wallet(c)
			if err != nil {
				return err
			}
			req, err := transferRequest(c, payer.PublicKey)
			if err != nil {
				return err
			}
			req.Options = rt.cfg.SubmitOptions()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			draft, err := rt.pipeline.Prepare(ctx, req)
			if err != nil {
				return err
			}
			fee, units, err := rt.pipeline.Estimate(ctx, draft)
			if err != nil {
				return err
			}

			fmt.Printf("Priority fee:  %d micro-lamports/CU\n", fee)
			fmt.Printf("Compute units: %d\n", units)
			return nil
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the balance of an address (defaults to the fee payer)",
		ArgsUsage: "[ADDRESS]",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			var address solana.PublicKey
			if c.NArg() > 0 {
				address, err = solana.PublicKeyFromBase58(c.Args().Get(0))
				if err != nil {
					return fmt.Errorf("invalid address: %w", err)
				}
			} else {
				payer, err := rt.wallet(c)
				if err != nil {
					return err
				}
				address = payer.PublicKey
			}

			commitment := rt.cfg.SubmitOptions().Commitment
			lamports, err := rt.client.GetBalance(c.Context, address, commitment)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d lamports (%.9f SOL)\n", address, lamports, float64(lamports)/float64(solana.LAMPORTS_PER_SOL))
			return nil
		},
	}
}

func exportReceipt(rt *runtime, receipt *transaction.Receipt, dir, format string) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}
	path, err := export.NewReceiptExporter(rt.log.Logger).ExportReceipts(
		[]*transaction.Receipt{receipt},
		export.ExportOptions{Format: f, OutputDir: dir},
	)
	if err != nil {
		return err
	}
	fmt.Printf("  Receipt:   %s\n", path)
	return nil
}

func transferRequest(c *cli.Context, payer solana.PublicKey) (transaction.Request, error) {
	to, err := solana.PublicKeyFromBase58(c.String("to"))
	if err != nil {
		return transaction.Request{}, fmt.Errorf("invalid recipient: %w", err)
	}
	ix, err := transaction.NewInstruction(
		system.NewTransferInstruction(c.Uint64("lamports"), payer, to).Build(),
	)
	if err != nil {
		return transaction.Request{}, err
	}
	return transaction.Request{
		Payer:        payer,
		Instructions: []transaction.Instruction{ix},
	}, nil
}
