package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
)

// DefaultPollInterval is the signature status polling period.
const DefaultPollInterval = 500 * time.Millisecond

// Monitor waits for a sent transaction to reach a commitment level, to be
// rejected, or for its lifetime reference to expire.
type Monitor struct {
	statuses     blockchain.StatusReader
	heights      blockchain.BlockHeightReader
	logger       *zap.Logger
	pollInterval time.Duration
}

func NewMonitor(statuses blockchain.StatusReader, heights blockchain.BlockHeightReader, logger *zap.Logger, pollInterval time.Duration) *Monitor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Monitor{
		statuses:     statuses,
		heights:      heights,
		logger:       logger.Named("tx-monitor"),
		pollInterval: pollInterval,
	}
}

// AwaitConfirmation polls until signature reaches commitment. It returns
// ErrSimulationRejected when the transaction failed on chain and
// ErrLifetimeExpired when the network passed the checkpoint's last valid
// block height without seeing it. Read errors are logged and polling
// continues; the caller's context bounds the wait.
func (m *Monitor) AwaitConfirmation(
	ctx context.Context,
	signature solana.Signature,
	checkpoint blockchain.Checkpoint,
	commitment rpc.CommitmentType,
) (*Status, error) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		status, done, err := m.check(ctx, signature, checkpoint, commitment)
		if done {
			return status, err
		}
		if err != nil {
			m.logger.Warn("Confirmation check failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// check runs one poll. done is false while the wait must continue.
func (m *Monitor) check(
	ctx context.Context,
	signature solana.Signature,
	checkpoint blockchain.Checkpoint,
	commitment rpc.CommitmentType,
) (*Status, bool, error) {
	const op = "await confirmation"

	status, err := m.statuses.GetSignatureStatus(ctx, signature)
	if err != nil {
		if ctx.Err() != nil {
			return nil, true, ctx.Err()
		}
		return nil, false, err
	}

	if status != nil {
		return settle(signature, status, commitment)
	}

	expired, err := m.expired(ctx, checkpoint, commitment)
	if err != nil {
		if ctx.Err() != nil {
			return nil, true, ctx.Err()
		}
		return nil, false, err
	}
	if !expired {
		return nil, false, nil
	}

	// The previous read may have lagged behind a landing at or before the last valid height.
	status, err = m.statuses.GetSignatureStatus(ctx, signature)
	if err != nil {
		if ctx.Err() != nil {
			return nil, true, ctx.Err()
		}
		return nil, false, err
	}
	if status != nil {
		return settle(signature, status, commitment)
	}
	return nil, true, newError(ErrLifetimeExpired, op,
		fmt.Errorf("block height passed %d", checkpoint.LastValidBlockHeight))
}

// settle maps a seen status onto a poll result.
func settle(signature solana.Signature, status *blockchain.SignatureStatus, commitment rpc.CommitmentType) (*Status, bool, error) {
	if status.Err != nil {
		return nil, true, newError(ErrSimulationRejected, "await confirmation", &SimulationError{Cause: status.Err})
	}
	if confirmationRank(status.ConfirmationStatus) >= commitmentRank(commitment) {
		return toStatus(signature, status), true, nil
	}
	// Landed but not yet at the requested commitment; it can no longer expire.
	return nil, false, nil
}

// expired reports whether the network has moved past the checkpoint.
func (m *Monitor) expired(ctx context.Context, checkpoint blockchain.Checkpoint, commitment rpc.CommitmentType) (bool, error) {
	if checkpoint.LastValidBlockHeight == 0 {
		return false, nil
	}
	height, err := m.heights.GetBlockHeight(ctx, commitment)
	if err != nil {
		return false, err
	}
	return checkpoint.ExpiredAt(height), nil
}

func toStatus(signature solana.Signature, status *blockchain.SignatureStatus) *Status {
	txStatus := &Status{
		Signature: signature.String(),
		Status:    string(status.ConfirmationStatus),
		Slot:      status.Slot,
		Timestamp: time.Now(),
	}
	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}
	return txStatus
}
