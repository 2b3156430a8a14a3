package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain/solbc"
	rpcerrors "github.com/rovshanmuradov/solana-txpipe/internal/blockchain/solbc/rpc"
)

// DefaultRetryDelay is the initial pause between client-side resends.
const DefaultRetryDelay = 500 * time.Millisecond

// Config tunes the Manager's timing.
type Config struct {
	RetryDelay   time.Duration
	PollInterval time.Duration
}

// Client is what the Manager needs from the network.
type Client interface {
	blockchain.Sender
	blockchain.StatusReader
	blockchain.BlockHeightReader
}

// Manager signs a draft once and drives send/confirm until the transaction
// reaches the requested commitment, fails terminally, or times out.
type Manager struct {
	client    Client
	logger    *zap.Logger
	config    Config
	validator *Validator
	monitor   *Monitor
	analyzer  *solbc.ErrorAnalyzer
	metrics   *Metrics
}

// NewManager creates a Manager. metrics may be nil.
func NewManager(client Client, logger *zap.Logger, config Config, metrics *Metrics) *Manager {
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	return &Manager{
		client:    client,
		logger:    logger.Named("tx-manager"),
		config:    config,
		validator: NewValidator(logger),
		monitor:   NewMonitor(client, client, logger, config.PollInterval),
		analyzer:  solbc.NewErrorAnalyzer(logger),
		metrics:   metrics,
	}
}

// Submit signs and sends d and returns its signature once confirmed.
func (tm *Manager) Submit(ctx context.Context, d Draft, signer Signer, opts SubmitOptions) (solana.Signature, error) {
	receipt, err := tm.SubmitDetailed(ctx, d, signer, opts)
	if err != nil {
		return solana.Signature{}, err
	}
	return receipt.Signature, nil
}

// SubmitDetailed is Submit returning every attempt and the final status.
//
// The draft is signed exactly once. Retries resend the same bytes, so a
// duplicate delivery is deduplicated by the network instead of executing twice.
func (tm *Manager) SubmitDetailed(ctx context.Context, d Draft, signer Signer, opts SubmitOptions) (*Receipt, error) {
	const op = "submit"
	defer tm.metrics.TrackTransaction(time.Now())
	opts = opts.withDefaults()

	if err := ctx.Err(); err != nil {
		tm.metrics.recordSubmission(OutcomeCancelled)
		return nil, newError(ErrCancelled, op, err)
	}

	tx, raw, err := tm.signDraft(d, signer)
	if err != nil {
		tm.metrics.recordSubmission(OutcomeRejected)
		return nil, err
	}

	signature := tx.Signatures[0]
	logger := tm.logger.With(zap.String("signature", signature.String()))
	receipt := &Receipt{Signature: signature}

	confirmCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var (
		lastErr     error
		maybeLanded bool
	)
	operation := func() (*Status, error) {
		attempt := Attempt{
			Number:        len(receipt.Attempts) + 1,
			Signature:     signature,
			Commitment:    opts.Commitment,
			SkipPreflight: opts.SkipPreflight,
			StartedAt:     time.Now(),
		}
		status, err := tm.sendAndConfirm(confirmCtx, raw, signature, d.Checkpoint(), opts, &maybeLanded)
		attempt.Err = err
		attempt.Outcome = outcomeOf(ctx, confirmCtx, err)
		receipt.Attempts = append(receipt.Attempts, attempt)
		tm.metrics.recordAttempt(attempt.Outcome)

		if err == nil {
			return status, nil
		}
		lastErr = err
		if attempt.Outcome == OutcomeTransient {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = tm.config.RetryDelay
	policy.MaxInterval = tm.config.RetryDelay * 10

	notify := func(err error, next time.Duration) {
		logger.Warn("Retrying transaction send",
			zap.Int("attempt", len(receipt.Attempts)),
			zap.Duration("backoff", next),
			zap.Error(err))
	}

	status, err := backoff.Retry(confirmCtx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(opts.MaxClientSideRetries+1),
		backoff.WithMaxElapsedTime(opts.Timeout),
		backoff.WithNotify(notify))
	if err == nil {
		receipt.Status = status
		tm.metrics.recordSubmission(OutcomeConfirmed)
		logger.Info("Transaction confirmed",
			zap.String("commitment", string(opts.Commitment)),
			zap.Int("attempts", len(receipt.Attempts)))
		return receipt, nil
	}

	failure := tm.failure(ctx, confirmCtx, receipt, lastErr, err, maybeLanded)
	tm.metrics.recordSubmission(outcomeOf(ctx, confirmCtx, failure))
	logger.Error("Transaction submission failed", zap.Error(failure))
	return receipt, failure
}

// signDraft builds, signs and validates d and returns the wire bytes.
func (tm *Manager) signDraft(d Draft, signer Signer) (*solana.Transaction, []byte, error) {
	tx, err := d.Transaction()
	if err != nil {
		return nil, nil, fmt.Errorf("build transaction: %w", err)
	}
	if err := signTransaction(tx, signer); err != nil {
		return nil, nil, err
	}
	if err := tm.validator.ValidateTransaction(tx); err != nil {
		tm.logger.Error("Transaction validation failed", zap.Error(err))
		return nil, nil, err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("encode transaction: %w", err)
	}
	return tx, raw, nil
}

// sendAndConfirm performs one send of raw followed by the confirmation wait.
func (tm *Manager) sendAndConfirm(
	ctx context.Context,
	raw []byte,
	signature solana.Signature,
	checkpoint blockchain.Checkpoint,
	opts SubmitOptions,
	maybeLanded *bool,
) (*Status, error) {
	sent, err := tm.client.SendRawTransaction(ctx, raw, blockchain.TransactionOptions{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.Commitment,
	})
	switch {
	case err == nil:
	case rpcerrors.IsAlreadyProcessed(err):
		// An earlier send of these bytes landed; wait for it like a fresh send.
		tm.logger.Info("Transaction already processed by the network",
			zap.String("signature", signature.String()))
		sent = signature
	default:
		return nil, tm.classifySendError(ctx, err, checkpoint, opts.Commitment, maybeLanded)
	}
	*maybeLanded = true
	if sent != signature {
		tm.logger.Warn("Node returned a different signature",
			zap.String("expected", signature.String()),
			zap.String("returned", sent.String()))
	}

	return tm.monitor.AwaitConfirmation(ctx, signature, checkpoint, opts.Commitment)
}

func (tm *Manager) classifySendError(
	ctx context.Context,
	err error,
	checkpoint blockchain.Checkpoint,
	commitment rpc.CommitmentType,
	maybeLanded *bool,
) error {
	const op = "send transaction"
	switch {
	case ctx.Err() != nil:
		*maybeLanded = true
		return ctx.Err()
	case rpcerrors.IsBlockhashNotFound(err):
		expired, heightErr := tm.monitor.expired(ctx, checkpoint, commitment)
		if heightErr == nil && expired {
			return newError(ErrLifetimeExpired, op, err)
		}
		return newError(ErrTransportTransient, op, err)
	case rpcerrors.IsPreflightFailure(err):
		analysis := tm.analyzer.AnalyzeRPCError(err)
		tm.logger.Warn("Preflight rejected transaction",
			zap.String("analysis", tm.analyzer.FormatErrorAnalysis(analysis)))
		return newError(ErrSimulationRejected, op, &SimulationError{
			Cause:  analysis.InstructionError,
			Logs:   analysis.Logs,
			Anchor: analysis.Anchor,
		})
	case rpcerrors.IsRetryableError(err):
		*maybeLanded = true
		return newError(ErrTransportTransient, op, err)
	default:
		return newError(ErrSendRejected, op, err)
	}
}

// failure builds the error returned by SubmitDetailed.
func (tm *Manager) failure(ctx, confirmCtx context.Context, receipt *Receipt, lastErr, retryErr error, maybeLanded bool) error {
	out := &Error{
		Op:          "submit",
		Signature:   receipt.Signature,
		Attempts:    len(receipt.Attempts),
		MaybeLanded: maybeLanded,
	}
	var last *Error
	hasKind := errors.As(lastErr, &last)
	switch {
	case ctx.Err() != nil:
		out.Kind, out.Err = ErrCancelled, ctx.Err()
	case hasKind && last.Kind != ErrTransportTransient:
		out.Kind, out.Err = last.Kind, last.Err
	case confirmCtx.Err() != nil:
		out.Kind = ErrTransportTransient
		out.Err = fmt.Errorf("%w after %d attempts: %v", ErrConfirmationTimeout, len(receipt.Attempts), lastErr)
	case hasKind:
		out.Kind, out.Err = ErrTransportTransient, last.Err
	case lastErr != nil:
		out.Kind, out.Err = ErrTransportTransient, lastErr
	default:
		out.Kind, out.Err = ErrTransportTransient, retryErr
	}
	return out
}

// outcomeOf maps an attempt error onto an Outcome.
func outcomeOf(ctx, confirmCtx context.Context, err error) Outcome {
	if err == nil {
		return OutcomeConfirmed
	}
	if ctx.Err() != nil {
		return OutcomeCancelled
	}
	if confirmCtx.Err() != nil || errors.Is(err, ErrConfirmationTimeout) {
		return OutcomeTimeout
	}
	switch kindOf(err) {
	case ErrTransportTransient:
		return OutcomeTransient
	case ErrLifetimeExpired:
		return OutcomeExpired
	case ErrCancelled:
		return OutcomeCancelled
	default:
		return OutcomeRejected
	}
}
