// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Checkpoint is the lifetime reference of a transaction: a recent blockhash
// together with the last block height at which the network still accepts it.
type Checkpoint struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	Slot                 uint64
}

// IsZero reports whether the checkpoint carries no blockhash.
func (c Checkpoint) IsZero() bool {
	return c.Blockhash.IsZero()
}

// ExpiredAt reports whether the checkpoint is no longer valid at the given block height.
// A zero LastValidBlockHeight means the validity window is unknown.
func (c Checkpoint) ExpiredAt(blockHeight uint64) bool {
	return c.LastValidBlockHeight != 0 && blockHeight > c.LastValidBlockHeight
}

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SimulationResult представляет результат симуляции транзакции.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed *uint64
}

// SignatureStatus is the network's view of a sent transaction.
type SignatureStatus struct {
	Slot               uint64
	Confirmations      *uint64
	ConfirmationStatus rpc.ConfirmationStatusType
	Err                interface{}
}

// CheckpointSource returns the latest lifetime reference.
type CheckpointSource interface {
	GetLatestCheckpoint(ctx context.Context, commitment rpc.CommitmentType) (Checkpoint, error)
}

// BlockHeightReader answers the current block height, used for expiry detection.
type BlockHeightReader interface {
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
}

// Simulator executes a transaction without committing it.
type Simulator interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error)
}

// FeeSampler returns recent prioritization fee observations and,
// for providers that support it, a provider-native estimate.
type FeeSampler interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]uint64, error)
	GetPriorityFeeEstimate(ctx context.Context, accounts solana.PublicKeySlice) (uint64, error)
}

// Sender transmits signed transaction bytes.
type Sender interface {
	SendRawTransaction(ctx context.Context, raw []byte, opts TransactionOptions) (solana.Signature, error)
}

// StatusReader reads the status of a sent transaction. A nil status with a nil
// error means the network has not seen the signature yet.
type StatusReader interface {
	GetSignatureStatus(ctx context.Context, signature solana.Signature) (*SignatureStatus, error)
}

// BalanceReader answers confirmed balances.
type BalanceReader interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	CheckpointSource
	BlockHeightReader
	Simulator
	FeeSampler
	Sender
	StatusReader
	BalanceReader
}
