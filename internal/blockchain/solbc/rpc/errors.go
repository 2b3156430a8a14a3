// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	// ErrRateLimit возникает при превышении лимита запросов
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrTimeout возникает при превышении времени ожидания
	ErrTimeout = errors.New("request timeout")

	// ErrInvalidResponse возникает при получении некорректного ответа
	ErrInvalidResponse = errors.New("invalid RPC response")

	// ErrConnectionFailed возникает при ошибке подключения
	ErrConnectionFailed = errors.New("connection failed")
)

// JSON-RPC error codes returned by Solana nodes.
const (
	codeBlockCleanedUp           = -32001
	codeSendTransactionPreflight = -32002
	codeNodeUnhealthy            = -32005
	codeServerBusy               = -32603
)

// Error представляет ошибку RPC с дополнительным контекстом
type Error struct {
	Err     error
	NodeURL string
	Method  string
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	return fmt.Sprintf("RPC error [%s] at %s: %v", e.Method, e.NodeURL, e.Err)
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError создает новую ошибку RPC
func NewError(err error, nodeURL, method string) error {
	return &Error{
		Err:     err,
		NodeURL: nodeURL,
		Method:  method,
	}
}

// IsRetryableError определяет, можно ли повторить операцию при данной ошибке.
// Caller cancellation is never retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// RPCError.Error() dumps pointer addresses, so only its message is inspected.
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case codeNodeUnhealthy, codeServerBusy, codeBlockCleanedUp:
			return true
		}
		return isTransientText(rpcErr.Message)
	}
	return isTransientText(err.Error())
}

// isTransientText проверяет текст ошибки на общие сетевые проблемы.
func isTransientText(msg string) bool {
	errStr := strings.ToLower(msg)
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "502 bad gateway") ||
		strings.Contains(errStr, "503 service unavailable")
}

// IsPreflightFailure reports whether sendTransaction was rejected by the node's
// preflight simulation.
func IsPreflightFailure(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == codeSendTransactionPreflight {
			return true
		}
		return strings.Contains(rpcErr.Message, "Transaction simulation failed")
	}
	return strings.Contains(err.Error(), "Transaction simulation failed")
}

// IsBlockhashNotFound reports whether the node did not recognise the
// transaction's blockhash. That happens both when the blockhash expired and
// when the node lags behind the one that produced it.
func IsBlockhashNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "BlockhashNotFound") ||
		strings.Contains(msg, "Blockhash not found")
}

// IsAlreadyProcessed reports whether the node refused a resend because the
// same signed transaction was already processed. The earlier send landed.
func IsAlreadyProcessed(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		msg = rpcErr.Message
	}
	return strings.Contains(msg, "already been processed") ||
		strings.Contains(msg, "AlreadyProcessed")
}
