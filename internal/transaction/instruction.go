package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// InstructionKind tags an instruction so that budget-control instructions
// can be recognised without decoding their payload.
type InstructionKind uint8

const (
	KindProgram InstructionKind = iota
	KindSetComputeUnitPrice
	KindSetComputeUnitLimit
)

func (k InstructionKind) String() string {
	switch k {
	case KindProgram:
		return "program"
	case KindSetComputeUnitPrice:
		return "set_compute_unit_price"
	case KindSetComputeUnitLimit:
		return "set_compute_unit_limit"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Instruction is an immutable unit of work. It implements solana.Instruction.
type Instruction struct {
	kind      InstructionKind
	programID solana.PublicKey
	accounts  []solana.AccountMeta
	data      []byte
}

var _ solana.Instruction = Instruction{}

// NewInstruction snapshots any solana-go instruction. Compute-budget price
// and limit instructions keep their kind so a draft can detect them.
func NewInstruction(ix solana.Instruction) (Instruction, error) {
	if ix == nil {
		return Instruction{}, ErrInvalidInstruction
	}
	data, err := ix.Data()
	if err != nil {
		return Instruction{}, fmt.Errorf("%w: encode data: %v", ErrInvalidInstruction, err)
	}
	programID := ix.ProgramID()
	return newInstruction(classify(programID, data), programID, ix.Accounts(), data), nil
}

// classify reads the compute-budget discriminator byte.
func classify(programID solana.PublicKey, data []byte) InstructionKind {
	if !programID.Equals(solana.ComputeBudget) || len(data) == 0 {
		return KindProgram
	}
	switch data[0] {
	case computebudget.Instruction_SetComputeUnitPrice:
		return KindSetComputeUnitPrice
	case computebudget.Instruction_SetComputeUnitLimit:
		return KindSetComputeUnitLimit
	default:
		return KindProgram
	}
}

// MustInstruction is NewInstruction that panics on error.
func MustInstruction(ix solana.Instruction) Instruction {
	out, err := NewInstruction(ix)
	if err != nil {
		panic(err)
	}
	return out
}

func newInstruction(kind InstructionKind, programID solana.PublicKey, metas []*solana.AccountMeta, data []byte) Instruction {
	accounts := make([]solana.AccountMeta, 0, len(metas))
	for _, meta := range metas {
		if meta != nil {
			accounts = append(accounts, *meta)
		}
	}
	return Instruction{
		kind:      kind,
		programID: programID,
		accounts:  accounts,
		data:      append([]byte(nil), data...),
	}
}

// SetComputeUnitPrice builds the compute-budget instruction that sets the priority fee.
func SetComputeUnitPrice(fee FeeEstimate) Instruction {
	return budgetInstruction(KindSetComputeUnitPrice,
		computebudget.NewSetComputeUnitPriceInstruction(uint64(fee)).Build())
}

// SetComputeUnitLimit builds the compute-budget instruction that caps compute units.
func SetComputeUnitLimit(units ComputeUnitEstimate) Instruction {
	return budgetInstruction(KindSetComputeUnitLimit,
		computebudget.NewSetComputeUnitLimitInstruction(uint32(units)).Build())
}

// budgetInstruction panics on encode failure: both layouts are fixed-size
// integers and cannot fail to encode.
func budgetInstruction(kind InstructionKind, ix solana.Instruction) Instruction {
	data, err := ix.Data()
	if err != nil {
		panic(fmt.Sprintf("encode %s: %v", kind, err))
	}
	return newInstruction(kind, ix.ProgramID(), ix.Accounts(), data)
}

// Kind returns the instruction tag.
func (ix Instruction) Kind() InstructionKind { return ix.kind }

// ProgramID implements solana.Instruction.
func (ix Instruction) ProgramID() solana.PublicKey { return ix.programID }

// Accounts implements solana.Instruction. It returns fresh copies.
func (ix Instruction) Accounts() []*solana.AccountMeta {
	out := make([]*solana.AccountMeta, len(ix.accounts))
	for i := range ix.accounts {
		meta := ix.accounts[i]
		out[i] = &meta
	}
	return out
}

// Data implements solana.Instruction.
func (ix Instruction) Data() ([]byte, error) {
	return append([]byte(nil), ix.data...), nil
}
