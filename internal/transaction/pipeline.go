package transaction

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
)

// PipelineConfig is the explicit configuration of a Pipeline.
type PipelineConfig struct {
	// SupportsNativeFeeEstimate selects the provider's getPriorityFeeEstimate
	// over the median of recent prioritization fees.
	SupportsNativeFeeEstimate bool
	Manager                   Config
}

// Request describes one logical transaction.
type Request struct {
	Payer             solana.PublicKey
	Instructions      []Instruction
	NeedsPriorityFees bool
	Options           SubmitOptions
}

// Pipeline assembles, costs, signs, sends and confirms transactions.
type Pipeline struct {
	checkpoints blockchain.CheckpointSource
	fees        *FeeEstimator
	compute     *ComputeEstimator
	manager     *Manager
	config      PipelineConfig
	logger      *zap.Logger
}

// NewPipeline wires every stage to client. metrics may be nil.
func NewPipeline(client blockchain.Client, config PipelineConfig, logger *zap.Logger, metrics *Metrics) *Pipeline {
	return &Pipeline{
		checkpoints: client,
		fees:        NewFeeEstimator(client, logger, metrics),
		compute:     NewComputeEstimator(client, logger, metrics),
		manager:     NewManager(client, logger, config.Manager, metrics),
		config:      config,
		logger:      logger.Named("tx-pipeline"),
	}
}

// Send runs the whole pipeline and returns the confirmed signature.
func (p *Pipeline) Send(ctx context.Context, req Request, signer Signer) (solana.Signature, error) {
	receipt, err := p.SendDetailed(ctx, req, signer)
	if err != nil {
		return solana.Signature{}, err
	}
	return receipt.Signature, nil
}

// SendDetailed is Send returning the submission receipt.
func (p *Pipeline) SendDetailed(ctx context.Context, req Request, signer Signer) (*Receipt, error) {
	draft, err := p.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.manager.SubmitDetailed(ctx, draft, signer, req.Options)
}

// Prepare fetches a checkpoint, assembles the draft and, when priority fees
// are needed, appends the budget instructions sized for that exact draft.
func (p *Pipeline) Prepare(ctx context.Context, req Request) (Draft, error) {
	const op = "prepare"
	opts := req.Options.withDefaults()

	checkpoint, err := p.checkpoints.GetLatestCheckpoint(ctx, opts.Commitment)
	if err != nil {
		if ctx.Err() != nil {
			return Draft{}, newError(ErrCancelled, op, err)
		}
		return Draft{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	draft, err := Assemble(req.Payer, checkpoint, req.Instructions)
	if err != nil {
		return Draft{}, fmt.Errorf("assemble: %w", err)
	}
	if !req.NeedsPriorityFees {
		return draft, nil
	}

	fee, units, err := p.Estimate(ctx, draft)
	if err != nil {
		return Draft{}, err
	}
	p.logger.Debug("Budget instructions sized",
		zap.Uint64("fee_micro_lamports", uint64(fee)),
		zap.Uint32("compute_units", uint32(units)))
	return AppendBudgetInstructions(draft, fee, units), nil
}

// Estimate runs the fee and compute-unit estimators concurrently on the same
// draft. The first failure cancels the other call.
func (p *Pipeline) Estimate(ctx context.Context, d Draft) (FeeEstimate, ComputeUnitEstimate, error) {
	var (
		fee   FeeEstimate
		units ComputeUnitEstimate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fee, err = p.fees.EstimateFee(gctx, d, p.config.SupportsNativeFeeEstimate)
		return err
	})
	g.Go(func() error {
		var err error
		units, err = p.compute.EstimateComputeUnits(gctx, d)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return 0, 0, newError(ErrCancelled, "estimate", ctx.Err())
		}
		return 0, 0, err
	}
	return fee, units, nil
}

// FeeEstimator returns the pipeline's fee estimator.
func (p *Pipeline) FeeEstimator() *FeeEstimator { return p.fees }

// ComputeEstimator returns the pipeline's compute-unit estimator.
func (p *Pipeline) ComputeEstimator() *ComputeEstimator { return p.compute }

// Manager returns the pipeline's submission manager.
func (p *Pipeline) Manager() *Manager { return p.manager }
