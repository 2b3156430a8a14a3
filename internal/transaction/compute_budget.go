package transaction

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain/solbc"
	rpcerrors "github.com/rovshanmuradov/solana-txpipe/internal/blockchain/solbc/rpc"
)

// ComputeUnitMarginPercent is added on top of simulated consumption.
const ComputeUnitMarginPercent = 10

// ComputeEstimator simulates a draft to size its compute-unit limit.
type ComputeEstimator struct {
	simulator blockchain.Simulator
	analyzer  *solbc.ErrorAnalyzer
	logger    *zap.Logger
	metrics   *Metrics
}

// NewComputeEstimator creates a ComputeEstimator. metrics may be nil.
func NewComputeEstimator(simulator blockchain.Simulator, logger *zap.Logger, metrics *Metrics) *ComputeEstimator {
	return &ComputeEstimator{
		simulator: simulator,
		analyzer:  solbc.NewErrorAnalyzer(logger),
		logger:    logger.Named("compute-estimator"),
		metrics:   metrics,
	}
}

// EstimateComputeUnits simulates d and returns consumed units plus the margin,
// rounded up. A draft without a compute-unit price instruction is simulated
// with a zero-price one appended, since the runtime meters differently without it.
func (e *ComputeEstimator) EstimateComputeUnits(ctx context.Context, d Draft) (units ComputeUnitEstimate, err error) {
	const op = "estimate compute units"
	start := time.Now()
	defer func() { e.metrics.trackEstimate("compute", start, err) }()

	simDraft := d
	if !d.HasKind(KindSetComputeUnitPrice) {
		simDraft = d.withInstructions(SetComputeUnitPrice(0))
	}

	tx, err := simDraft.Transaction()
	if err != nil {
		return 0, newError(ErrEstimationFailure, op, err)
	}
	// The node rejects a message whose signature count does not match the header.
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	result, err := e.simulator.SimulateTransaction(ctx, tx)
	if err != nil {
		return 0, estimationError(ctx, op, err)
	}
	if result.Err != nil {
		simErr := &SimulationError{
			Cause:  result.Err,
			Logs:   result.Logs,
			Anchor: e.analyzer.AnalyzeLogs(result.Logs),
		}
		e.logger.Warn("Simulation rejected transaction",
			zap.Any("err", result.Err),
			zap.Strings("logs", result.Logs))
		return 0, newError(ErrSimulationRejected, op, simErr)
	}
	if result.UnitsConsumed == nil {
		return 0, newError(ErrEstimationFailure, op,
			fmt.Errorf("%w: simulation returned no units consumed", rpcerrors.ErrInvalidResponse))
	}

	raw := *result.UnitsConsumed
	withMargin, ok := addComputeMargin(raw)
	if !ok {
		return 0, newError(ErrEstimationFailure, op,
			fmt.Errorf("compute units %d exceed the limit range", raw))
	}
	units = ComputeUnitEstimate(withMargin)

	e.logger.Debug("Compute units estimated",
		zap.Uint64("simulated", raw),
		zap.Uint32("limit", uint32(units)))
	e.metrics.recordComputeUnits(units)
	return units, nil
}

// addComputeMargin returns ceil(raw * (100+margin) / 100) and whether it fits a uint32.
func addComputeMargin(raw uint64) (uint64, bool) {
	const factor = 100 + ComputeUnitMarginPercent
	if raw > (math.MaxUint64-99)/factor {
		return 0, false
	}
	v := (raw*factor + 99) / 100
	if v > math.MaxUint32 {
		return 0, false
	}
	return v, true
}
