// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/blockchain"
	rpcerrors "github.com/rovshanmuradov/solana-txpipe/internal/blockchain/solbc/rpc"
)

// RPC is the subset of *rpc.Client used by the adapter.
type RPC interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)
	SimulateTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts *rpc.SimulateTransactionOpts) (*rpc.SimulateTransactionResponse, error)
	GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]rpc.PriorizationFeeResult, error)
	RPCCallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error
	SendRawTransactionWithOpts(ctx context.Context, transaction []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
}

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc    RPC
	url    string
	logger *zap.Logger
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return NewClientWithRPC(rpc.New(rpcURL), rpcURL, logger)
}

// NewClientWithRPC wraps an existing RPC implementation.
func NewClientWithRPC(r RPC, rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    r,
		url:    rpcURL,
		logger: logger.Named("solbc-client"),
	}
}

// GetLatestCheckpoint получает последний blockhash вместе с окном его действия.
func (c *Client) GetLatestCheckpoint(ctx context.Context, commitment rpc.CommitmentType) (blockchain.Checkpoint, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, commitment)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return blockchain.Checkpoint{}, rpcerrors.NewError(err, c.url, "getLatestBlockhash")
	}
	if result == nil || result.Value == nil {
		return blockchain.Checkpoint{}, rpcerrors.NewError(rpcerrors.ErrInvalidResponse, c.url, "getLatestBlockhash")
	}
	return blockchain.Checkpoint{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
		Slot:                 result.Context.Slot,
	}, nil
}

// GetBlockHeight returns the current block height at the given commitment.
func (c *Client) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	height, err := c.rpc.GetBlockHeight(ctx, commitment)
	if err != nil {
		c.logger.Debug("GetBlockHeight error", zap.Error(err))
		return 0, rpcerrors.NewError(err, c.url, "getBlockHeight")
	}
	return height, nil
}

// SimulateTransaction симулирует транзакцию и возвращает результат симуляции.
// Signatures are not verified and the node substitutes its own recent
// blockhash, so an unsigned draft can be costed.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*blockchain.SimulationResult, error) {
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:              false,
		Commitment:             rpc.CommitmentProcessed,
		ReplaceRecentBlockhash: true,
	})
	if err != nil {
		c.logger.Error("SimulateTransaction error", zap.Error(err))
		return nil, rpcerrors.NewError(err, c.url, "simulateTransaction")
	}
	if result == nil || result.Value == nil {
		return nil, rpcerrors.NewError(rpcerrors.ErrInvalidResponse, c.url, "simulateTransaction")
	}
	return &blockchain.SimulationResult{
		Err:           result.Value.Err,
		Logs:          result.Value.Logs,
		UnitsConsumed: result.Value.UnitsConsumed,
	}, nil
}

// GetRecentPrioritizationFees returns the per-slot fee observations for the accounts.
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, accounts solana.PublicKeySlice) ([]uint64, error) {
	result, err := c.rpc.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		c.logger.Error("GetRecentPrioritizationFees error", zap.Error(err))
		return nil, rpcerrors.NewError(err, c.url, "getRecentPrioritizationFees")
	}
	fees := make([]uint64, 0, len(result))
	for _, sample := range result {
		fees = append(fees, sample.PrioritizationFee)
	}
	return fees, nil
}

type priorityFeeEstimateResult struct {
	PriorityFeeEstimate float64 `json:"priorityFeeEstimate"`
}

// GetPriorityFeeEstimate asks the provider for its recommended fee for the
// account set (getPriorityFeeEstimate extension).
func (c *Client) GetPriorityFeeEstimate(ctx context.Context, accounts solana.PublicKeySlice) (uint64, error) {
	keys := make([]string, 0, len(accounts))
	for _, account := range accounts {
		keys = append(keys, account.String())
	}
	params := []interface{}{
		map[string]interface{}{
			"accountKeys": keys,
			"options": map[string]interface{}{
				"recommended": true,
			},
		},
	}

	var out priorityFeeEstimateResult
	if err := c.rpc.RPCCallForInto(ctx, &out, "getPriorityFeeEstimate", params); err != nil {
		c.logger.Error("GetPriorityFeeEstimate error", zap.Error(err))
		return 0, rpcerrors.NewError(err, c.url, "getPriorityFeeEstimate")
	}
	estimate := out.PriorityFeeEstimate
	if math.IsNaN(estimate) || math.IsInf(estimate, 0) || estimate < 0 || estimate > math.MaxUint64 {
		return 0, rpcerrors.NewError(
			fmt.Errorf("%w: priorityFeeEstimate=%v", rpcerrors.ErrInvalidResponse, estimate),
			c.url, "getPriorityFeeEstimate")
	}
	return uint64(math.Ceil(estimate)), nil
}

// SendRawTransaction отправляет подписанные байты транзакции.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Warn("SendRawTransaction error", zap.Error(err))
		return solana.Signature{}, rpcerrors.NewError(err, c.url, "sendTransaction")
	}
	return sig, nil
}

// GetSignatureStatus получает статус транзакции.
func (c *Client) GetSignatureStatus(ctx context.Context, signature solana.Signature) (*blockchain.SignatureStatus, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signature)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
		return nil, rpcerrors.NewError(err, c.url, "getSignatureStatuses")
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}
	status := result.Value[0]
	return &blockchain.SignatureStatus{
		Slot:               status.Slot,
		Confirmations:      status.Confirmations,
		ConfirmationStatus: status.ConfirmationStatus,
		Err:                status.Err,
	}, nil
}

// GetBalance получает баланс аккаунта.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, rpcerrors.NewError(err, c.url, "getBalance")
	}
	if result == nil {
		return 0, rpcerrors.NewError(rpcerrors.ErrInvalidResponse, c.url, "getBalance")
	}
	return result.Value, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
