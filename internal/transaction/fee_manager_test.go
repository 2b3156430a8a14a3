package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockFeeSampler struct {
	mock.Mock
}

func (m *MockFeeSampler) GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]uint64, error) {
	args := m.Called(ctx, accounts)
	fees, _ := args.Get(0).([]uint64)
	return fees, args.Error(1)
}

func (m *MockFeeSampler) GetPriorityFeeEstimate(ctx context.Context, accounts solana.PublicKeySlice) (uint64, error) {
	args := m.Called(ctx, accounts)
	return args.Get(0).(uint64), args.Error(1)
}

func TestMedianFee(t *testing.T) {
	tests := []struct {
		name    string
		samples []uint64
		want    FeeEstimate
	}{
		{name: "even count takes index n/2", samples: []uint64{5, 1, 9, 3}, want: 5},
		{name: "odd count", samples: []uint64{7, 2, 4}, want: 4},
		{name: "zeros dropped", samples: []uint64{0, 10, 0, 20, 30}, want: 20},
		{name: "all zero", samples: []uint64{0, 0, 0}, want: 0},
		{name: "empty", samples: nil, want: 0},
		{name: "single", samples: []uint64{11}, want: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, medianFee(tt.samples))
		})
	}
}

func TestEstimateFee_Median(t *testing.T) {
	signer := newCountingSigner(t)
	d := testDraft(t, newFakeClient(), signer.PublicKey())

	sampler := new(MockFeeSampler)
	sampler.On("GetRecentPrioritizationFees", mock.Anything, d.WritableAccounts()).
		Return([]uint64{5, 1, 9, 3}, nil).Once()

	fee, err := NewFeeEstimator(sampler, zap.NewNop(), nil).EstimateFee(context.Background(), d, false)
	require.NoError(t, err)
	assert.Equal(t, FeeEstimate(5), fee)
	sampler.AssertExpectations(t)
	sampler.AssertNotCalled(t, "GetPriorityFeeEstimate", mock.Anything, mock.Anything)
}

func TestEstimateFee_Native(t *testing.T) {
	signer := newCountingSigner(t)
	d := testDraft(t, newFakeClient(), signer.PublicKey())

	sampler := new(MockFeeSampler)
	sampler.On("GetPriorityFeeEstimate", mock.Anything, mock.Anything).Return(uint64(12_345), nil).Once()

	fee, err := NewFeeEstimator(sampler, zap.NewNop(), nil).EstimateFee(context.Background(), d, true)
	require.NoError(t, err)
	assert.Equal(t, FeeEstimate(12_345), fee)
	sampler.AssertNotCalled(t, "GetRecentPrioritizationFees", mock.Anything, mock.Anything)
}

func TestEstimateFee_ErrorsAreSurfaced(t *testing.T) {
	signer := newCountingSigner(t)
	d := testDraft(t, newFakeClient(), signer.PublicKey())
	boom := errors.New("boom")

	sampler := new(MockFeeSampler)
	sampler.On("GetRecentPrioritizationFees", mock.Anything, mock.Anything).Return(nil, boom)
	sampler.On("GetPriorityFeeEstimate", mock.Anything, mock.Anything).Return(uint64(0), boom)
	estimator := NewFeeEstimator(sampler, zap.NewNop(), nil)

	for _, native := range []bool{false, true} {
		fee, err := estimator.EstimateFee(context.Background(), d, native)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEstimationFailure)
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, fee)
	}
}

func TestEstimateFee_Cancelled(t *testing.T) {
	signer := newCountingSigner(t)
	d := testDraft(t, newFakeClient(), signer.PublicKey())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sampler := new(MockFeeSampler)
	sampler.On("GetRecentPrioritizationFees", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	_, err := NewFeeEstimator(sampler, zap.NewNop(), nil).EstimateFee(ctx, d, false)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NotErrorIs(t, err, ErrEstimationFailure)
}

func TestEstimateFee_EmptyDraft(t *testing.T) {
	sampler := new(MockFeeSampler)
	_, err := NewFeeEstimator(sampler, zap.NewNop(), nil).EstimateFee(context.Background(), Draft{}, false)
	assert.ErrorIs(t, err, ErrEstimationFailure)
	sampler.AssertNotCalled(t, "GetRecentPrioritizationFees", mock.Anything, mock.Anything)
}
