package transaction

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
)

// fakeClient is a scripted blockchain.Client.
type fakeClient struct {
	mu sync.Mutex

	checkpoint    blockchain.Checkpoint
	checkpointErr error

	height    uint64
	heightErr error

	simulate  func(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error)
	simulated []*solana.Transaction

	fees        []uint64
	feesErr     error
	feeCalls    int
	nativeFee   uint64
	nativeErr   error
	nativeCalls int

	// sendErrs[i] is returned by the i-th send; sends past the end succeed.
	sendErrs []error
	sent     [][]byte
	landed   bool

	// status is returned once a send has succeeded. nil means unseen.
	status   *blockchain.SignatureStatus
	onStatus func()
}

var _ blockchain.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		checkpoint: blockchain.Checkpoint{
			Blockhash:            solana.HashFromBytes(make32(7)),
			LastValidBlockHeight: 1_000,
		},
		height: 900,
		status: &blockchain.SignatureStatus{
			Slot:               42,
			ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		},
	}
}

func make32(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

func (f *fakeClient) GetLatestCheckpoint(ctx context.Context, _ rpc.CommitmentType) (blockchain.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkpoint, f.checkpointErr
}

func (f *fakeClient) GetBlockHeight(ctx context.Context, _ rpc.CommitmentType) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, f.heightErr
}

func (f *fakeClient) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	f.mu.Lock()
	f.simulated = append(f.simulated, tx)
	simulate := f.simulate
	f.mu.Unlock()
	if simulate == nil {
		units := uint64(1_000)
		return &blockchain.SimulationResult{UnitsConsumed: &units}, nil
	}
	return simulate(ctx, tx)
}

func (f *fakeClient) GetRecentPrioritizationFees(ctx context.Context, _ solana.PublicKeySlice) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeCalls++
	return f.fees, f.feesErr
}

func (f *fakeClient) GetPriorityFeeEstimate(ctx context.Context, _ solana.PublicKeySlice) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nativeCalls++
	return f.nativeFee, f.nativeErr
}

func (f *fakeClient) SendRawTransaction(ctx context.Context, raw []byte, _ blockchain.TransactionOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sent)
	f.sent = append(f.sent, append([]byte(nil), raw...))
	if n < len(f.sendErrs) && f.sendErrs[n] != nil {
		return solana.Signature{}, f.sendErrs[n]
	}
	f.landed = true
	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return solana.Signature{}, err
	}
	return tx.Signatures[0], nil
}

func (f *fakeClient) GetSignatureStatus(ctx context.Context, _ solana.Signature) (*blockchain.SignatureStatus, error) {
	f.mu.Lock()
	hook := f.onStatus
	landed, status := f.landed, f.status
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !landed {
		return nil, nil
	}
	return status, nil
}

func (f *fakeClient) GetBalance(ctx context.Context, _ solana.PublicKey, _ rpc.CommitmentType) (uint64, error) {
	return 0, nil
}

func (f *fakeClient) sends() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func (f *fakeClient) simulations() []*solana.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.simulated
}

// countingSigner signs with one key and counts Sign calls.
type countingSigner struct {
	mu    sync.Mutex
	key   solana.PrivateKey
	calls int
}

func newCountingSigner(t *testing.T) *countingSigner {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return &countingSigner{key: key}
}

func (s *countingSigner) Sign(key solana.PublicKey, message []byte) (solana.Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if !key.Equals(s.key.PublicKey()) {
		return solana.Signature{}, ErrMissingSigner
	}
	return s.key.Sign(message)
}

func (s *countingSigner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *countingSigner) PublicKey() solana.PublicKey { return s.key.PublicKey() }

func transferInstruction(t *testing.T, from solana.PublicKey) Instruction {
	t.Helper()
	to := solana.PublicKeyFromBytes(make32(9))
	return MustInstruction(system.NewTransferInstruction(1_000, from, to).Build())
}

func testDraft(t *testing.T, client *fakeClient, payer solana.PublicKey) Draft {
	t.Helper()
	d, err := Assemble(payer, client.checkpoint, []Instruction{transferInstruction(t, payer)})
	require.NoError(t, err)
	return d
}
