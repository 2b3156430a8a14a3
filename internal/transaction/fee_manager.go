package transaction

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
)

// FeeEstimator produces a priority fee for a draft, either from the
// provider's own estimate or from the median of recent fee samples.
type FeeEstimator struct {
	sampler blockchain.FeeSampler
	logger  *zap.Logger
	metrics *Metrics
}

// NewFeeEstimator creates a FeeEstimator. metrics may be nil.
func NewFeeEstimator(sampler blockchain.FeeSampler, logger *zap.Logger, metrics *Metrics) *FeeEstimator {
	return &FeeEstimator{
		sampler: sampler,
		logger:  logger.Named("fee-estimator"),
		metrics: metrics,
	}
}

// EstimateFee returns the priority fee for the writable accounts of d.
// Failures of the network calls are returned, never replaced by a default.
func (e *FeeEstimator) EstimateFee(ctx context.Context, d Draft, supportsNativeEstimate bool) (fee FeeEstimate, err error) {
	const op = "estimate fee"
	start := time.Now()
	defer func() { e.metrics.trackEstimate("fee", start, err) }()

	if d.Len() == 0 {
		return 0, newError(ErrEstimationFailure, op, errors.New("draft has no instructions"))
	}
	accounts := d.WritableAccounts()

	if supportsNativeEstimate {
		estimate, err := e.sampler.GetPriorityFeeEstimate(ctx, accounts)
		if err != nil {
			return 0, estimationError(ctx, op, err)
		}
		fee = FeeEstimate(estimate)
		e.logger.Debug("Provider fee estimate",
			zap.Int("accounts", len(accounts)),
			zap.Uint64("micro_lamports", uint64(fee)))
		e.metrics.recordFee(fee)
		return fee, nil
	}

	samples, err := e.sampler.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		return 0, estimationError(ctx, op, err)
	}
	fee = medianFee(samples)
	e.logger.Debug("Median fee estimate",
		zap.Int("accounts", len(accounts)),
		zap.Int("samples", len(samples)),
		zap.Uint64("micro_lamports", uint64(fee)))
	e.metrics.recordFee(fee)
	return fee, nil
}

// medianFee drops zero samples, sorts the rest and returns the element at
// index n/2. No non-zero samples yields 0.
func medianFee(samples []uint64) FeeEstimate {
	paid := make([]uint64, 0, len(samples))
	for _, fee := range samples {
		if fee > 0 {
			paid = append(paid, fee)
		}
	}
	if len(paid) == 0 {
		return 0
	}
	slices.Sort(paid)
	return FeeEstimate(paid[len(paid)/2])
}
