package transaction

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
)

// Draft is an unsigned transaction: fee payer, lifetime reference and an
// ordered instruction list. Values are immutable; every change yields a new Draft.
type Draft struct {
	payer        solana.PublicKey
	checkpoint   blockchain.Checkpoint
	instructions []Instruction
}

// Assemble creates a Draft. It fails fast when the payer or the lifetime
// reference is missing or there are no instructions.
func Assemble(payer solana.PublicKey, checkpoint blockchain.Checkpoint, instructions []Instruction) (Draft, error) {
	d := Draft{
		payer:        payer,
		checkpoint:   checkpoint,
		instructions: slices.Clone(instructions),
	}
	if err := d.Validate(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// AppendBudgetInstructions returns a copy of d with "set compute unit price"
// and "set compute unit limit" appended after the existing instructions.
// Budget instructions go at the tail of the list.
// TODO: move them to the head once head placement is verified against the cluster runtime.
func AppendBudgetInstructions(d Draft, fee FeeEstimate, units ComputeUnitEstimate) Draft {
	return d.withInstructions(SetComputeUnitPrice(fee), SetComputeUnitLimit(units))
}

// Validate checks the invariants required before signing.
func (d Draft) Validate() error {
	if d.payer.IsZero() {
		return ErrMissingPayer
	}
	if d.checkpoint.IsZero() {
		return ErrInvalidBlockhash
	}
	if len(d.instructions) == 0 {
		return fmt.Errorf("%w: no instructions", ErrInvalidInstruction)
	}
	return nil
}

// Payer returns the fee payer.
func (d Draft) Payer() solana.PublicKey { return d.payer }

// Checkpoint returns the lifetime reference.
func (d Draft) Checkpoint() blockchain.Checkpoint { return d.checkpoint }

// Instructions returns a copy of the instruction list.
func (d Draft) Instructions() []Instruction { return slices.Clone(d.instructions) }

// Len returns the number of instructions.
func (d Draft) Len() int { return len(d.instructions) }

// HasKind reports whether any instruction carries the given tag.
func (d Draft) HasKind(kind InstructionKind) bool {
	return slices.ContainsFunc(d.instructions, func(ix Instruction) bool {
		return ix.kind == kind
	})
}

// WritableAccounts returns the deduplicated writable accounts referenced by
// the instructions, sorted by key bytes.
func (d Draft) WritableAccounts() solana.PublicKeySlice {
	seen := make(map[solana.PublicKey]struct{})
	var out solana.PublicKeySlice
	for _, ix := range d.instructions {
		for _, meta := range ix.accounts {
			if !meta.IsWritable {
				continue
			}
			if _, ok := seen[meta.PublicKey]; ok {
				continue
			}
			seen[meta.PublicKey] = struct{}{}
			out = append(out, meta.PublicKey)
		}
	}
	slices.SortFunc(out, func(a, b solana.PublicKey) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}

func (d Draft) withInstructions(extra ...Instruction) Draft {
	instructions := make([]Instruction, 0, len(d.instructions)+len(extra))
	instructions = append(instructions, d.instructions...)
	instructions = append(instructions, extra...)
	return Draft{
		payer:        d.payer,
		checkpoint:   d.checkpoint,
		instructions: instructions,
	}
}

// Transaction compiles the draft into an unsigned solana-go transaction.
func (d Draft) Transaction() (*solana.Transaction, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	instructions := make([]solana.Instruction, len(d.instructions))
	for i, ix := range d.instructions {
		instructions[i] = ix
	}
	tx, err := solana.NewTransaction(
		instructions,
		d.checkpoint.Blockhash,
		solana.TransactionPayer(d.payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx, nil
}
