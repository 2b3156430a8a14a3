package transaction

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FeeEstimate is a priority fee in micro-lamports per compute unit.
type FeeEstimate uint64

// ComputeUnitEstimate is a compute-unit limit that already includes the safety margin.
type ComputeUnitEstimate uint32

// DefaultTimeout bounds the send/confirm phase of a submission.
const DefaultTimeout = 60 * time.Second

// SubmitOptions controls one Submit call. Cancellation is carried by the
// context passed to Submit.
type SubmitOptions struct {
	Commitment           rpc.CommitmentType
	SkipPreflight        bool
	MaxClientSideRetries uint
	Timeout              time.Duration
}

// DefaultSubmitOptions returns confirmed commitment, preflight on, no retries.
func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{
		Commitment: rpc.CommitmentConfirmed,
		Timeout:    DefaultTimeout,
	}
}

func (o SubmitOptions) withDefaults() SubmitOptions {
	if o.Commitment == "" {
		o.Commitment = rpc.CommitmentConfirmed
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Outcome of a single send attempt.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeTransient Outcome = "transient"
	OutcomeExpired   Outcome = "expired"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimeout   Outcome = "timeout"
)

// Attempt records one transmission of the signed bytes. Attempts of the same
// Submit call share the signature.
type Attempt struct {
	Number        int                `json:"number"`
	Signature     solana.Signature   `json:"signature"`
	Commitment    rpc.CommitmentType `json:"commitment"`
	SkipPreflight bool               `json:"skip_preflight"`
	StartedAt     time.Time          `json:"started_at"`
	Outcome       Outcome            `json:"outcome"`
	Err           error              `json:"-"`
}

// Status is the final observed state of a confirmed transaction.
type Status struct {
	Signature     string    `json:"signature"`
	Status        string    `json:"status"`
	Confirmations uint64    `json:"confirmations"`
	Slot          uint64    `json:"slot"`
	Timestamp     time.Time `json:"timestamp"`
}

// Receipt is the full report of a Submit call.
type Receipt struct {
	Signature solana.Signature `json:"signature"`
	Attempts  []Attempt        `json:"attempts"`
	Status    *Status          `json:"status,omitempty"`
}

// commitmentRank orders commitment levels: processed < confirmed < finalized.
func commitmentRank(c rpc.CommitmentType) int {
	switch c {
	case rpc.CommitmentProcessed:
		return 1
	case rpc.CommitmentConfirmed:
		return 2
	case rpc.CommitmentFinalized:
		return 3
	default:
		return 2
	}
}

func confirmationRank(s rpc.ConfirmationStatusType) int {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	default:
		return 0
	}
}
