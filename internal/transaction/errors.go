package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain/solbc"
)

// Failure kinds. Every error returned by the estimators, and by the Manager
// once a transaction is signed, matches exactly one of them with errors.Is.
// Checkpoint, assembly and signing failures are returned without a kind.
var (
	ErrEstimationFailure  = errors.New("estimation failure")
	ErrSimulationRejected = errors.New("simulation rejected")
	ErrLifetimeExpired    = errors.New("transaction lifetime expired")
	ErrTransportTransient = errors.New("transient transport failure")
	ErrCancelled          = errors.New("submission cancelled")
	ErrSendRejected       = errors.New("transaction rejected by node")
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrMissingPayer        = errors.New("transaction has no fee payer")
	ErrMissingSigner       = errors.New("signer cannot sign for required key")
)

// Error carries a failure kind together with its underlying cause.
type Error struct {
	Kind      error
	Op        string
	Signature solana.Signature
	Attempts  int
	// MaybeLanded is set when at least one send may have reached the network.
	MaybeLanded bool
	Err         error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if !e.Signature.IsZero() {
		msg += fmt.Sprintf(" (signature %s, attempts %d, maybe landed %t)", e.Signature, e.Attempts, e.MaybeLanded)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// kindOf returns the failure kind carried by err, or nil.
func kindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// estimationError maps a failed estimator call onto Cancelled or EstimationFailure.
func estimationError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return newError(ErrCancelled, op, err)
	}
	return newError(ErrEstimationFailure, op, err)
}

// SimulationError is a program-level rejection: the instructions would fail on chain.
type SimulationError struct {
	Cause  interface{}
	Logs   []string
	Anchor *solbc.AnchorError
}

func (e *SimulationError) Error() string {
	if e.Anchor != nil {
		return fmt.Sprintf("program error %s (%d): %s", e.Anchor.Name, e.Anchor.Code, e.Anchor.Msg)
	}
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("program error: %v", e.Cause)
	case len(e.Logs) > 0:
		return "program error: " + e.Logs[0]
	default:
		return "program error"
	}
}
