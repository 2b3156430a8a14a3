package transaction

import (
	"context"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
)

func TestAddComputeMargin(t *testing.T) {
	tests := []struct {
		raw    uint64
		want   uint64
		wantOK bool
	}{
		{raw: 0, want: 0, wantOK: true},
		{raw: 1, want: 2, wantOK: true},
		{raw: 1_000, want: 1_100, wantOK: true},
		{raw: 1_001, want: 1_102, wantOK: true},
		{raw: 200_000, want: 220_000, wantOK: true},
		{raw: math.MaxUint32, wantOK: false},
		{raw: math.MaxUint64, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := addComputeMargin(tt.raw)
		assert.Equal(t, tt.wantOK, ok, "raw=%d", tt.raw)
		if tt.wantOK {
			assert.Equal(t, tt.want, got, "raw=%d", tt.raw)
		}
	}
}

func simulatedUnits(units uint64) func(context.Context, *solana.Transaction) (*blockchain.SimulationResult, error) {
	return func(context.Context, *solana.Transaction) (*blockchain.SimulationResult, error) {
		return &blockchain.SimulationResult{UnitsConsumed: &units}, nil
	}
}

func TestEstimateComputeUnits_AppliesMargin(t *testing.T) {
	client := newFakeClient()
	client.simulate = simulatedUnits(1_001)
	signer := newCountingSigner(t)
	d := testDraft(t, client, signer.PublicKey())

	units, err := NewComputeEstimator(client, zap.NewNop(), nil).EstimateComputeUnits(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, ComputeUnitEstimate(1_102), units)
}

func TestEstimateComputeUnits_PricePlaceholder(t *testing.T) {
	client := newFakeClient()
	signer := newCountingSigner(t)
	d := testDraft(t, client, signer.PublicKey())
	estimator := NewComputeEstimator(client, zap.NewNop(), nil)

	_, err := estimator.EstimateComputeUnits(context.Background(), d)
	require.NoError(t, err)

	withPrice := d.withInstructions(SetComputeUnitPrice(77))
	_, err = estimator.EstimateComputeUnits(context.Background(), withPrice)
	require.NoError(t, err)

	sims := client.simulations()
	require.Len(t, sims, 2)
	assert.Len(t, sims[0].Message.Instructions, 2, "placeholder appended")
	assert.Len(t, sims[1].Message.Instructions, 2, "existing price instruction kept, nothing added")
	assert.Len(t, sims[0].Signatures, 1)
	assert.Equal(t, 1, d.Len(), "draft is not modified")
}

func TestEstimateComputeUnits_CallerSuppliedPrice(t *testing.T) {
	client := newFakeClient()
	signer := newCountingSigner(t)
	price := MustInstruction(computebudget.NewSetComputeUnitPriceInstruction(250).Build())
	d, err := Assemble(signer.PublicKey(), client.checkpoint,
		[]Instruction{price, transferInstruction(t, signer.PublicKey())})
	require.NoError(t, err)
	require.True(t, d.HasKind(KindSetComputeUnitPrice))

	_, err = NewComputeEstimator(client, zap.NewNop(), nil).EstimateComputeUnits(context.Background(), d)
	require.NoError(t, err)

	sims := client.simulations()
	require.Len(t, sims, 1)
	assert.Len(t, sims[0].Message.Instructions, 2, "draft simulated unmodified")
}

func TestEstimateComputeUnits_Rejected(t *testing.T) {
	client := newFakeClient()
	client.simulate = func(context.Context, *solana.Transaction) (*blockchain.SimulationResult, error) {
		return &blockchain.SimulationResult{
			Err: map[string]interface{}{"InstructionError": []interface{}{0, "InvalidAccountData"}},
			Logs: []string{
				"Program log: AnchorError occurred. Error Code: ConstraintSeeds. Error Number: 2006. Error Message: A seeds constraint was violated.",
			},
		}, nil
	}
	signer := newCountingSigner(t)

	_, err := NewComputeEstimator(client, zap.NewNop(), nil).
		EstimateComputeUnits(context.Background(), testDraft(t, client, signer.PublicKey()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSimulationRejected)

	var simErr *SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Len(t, simErr.Logs, 1)
}

func TestEstimateComputeUnits_MissingUnits(t *testing.T) {
	client := newFakeClient()
	client.simulate = func(context.Context, *solana.Transaction) (*blockchain.SimulationResult, error) {
		return &blockchain.SimulationResult{}, nil
	}
	signer := newCountingSigner(t)

	_, err := NewComputeEstimator(client, zap.NewNop(), nil).
		EstimateComputeUnits(context.Background(), testDraft(t, client, signer.PublicKey()))
	assert.ErrorIs(t, err, ErrEstimationFailure)
}

func TestEstimateComputeUnits_Overflow(t *testing.T) {
	client := newFakeClient()
	client.simulate = simulatedUnits(math.MaxUint32)
	signer := newCountingSigner(t)

	_, err := NewComputeEstimator(client, zap.NewNop(), nil).
		EstimateComputeUnits(context.Background(), testDraft(t, client, signer.PublicKey()))
	assert.ErrorIs(t, err, ErrEstimationFailure)
}
