// internal/chains/ethereum/rpc.go
package ethereum

import (
	"blockchain-service/internal/domain"
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Transport is the set of node operations the wallet relies on.
// Implementations do not retry; retrying is the poller's job.
type Transport interface {
	// Call executes a read-only call against the latest block
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// BalanceAt returns the native balance in wei
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)

	// PendingNonceAt returns the next nonce including pending transactions
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)

	// SendRawTransaction submits a signed, canonically encoded transaction
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)

	// TransactionReceipt returns the receipt, or nil when the transaction is not mined yet
	TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
}

// revertErrorCode is the JSON-RPC code geth-compatible nodes use for reverted calls
const revertErrorCode = 3

// NodeClient is a Transport over JSON-RPC/HTTP
type NodeClient struct {
	client *rpc.Client
	url    string
	logger *zap.Logger
}

// DialNode creates a JSON-RPC client for the node at url
func DialNode(ctx context.Context, url string, timeout time.Duration, logger *zap.Logger) (*NodeClient, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, domain.NewError(domain.ErrCommunication, "dial", url, err)
	}

	logger.Info("Ethereum node client created",
		zap.String("rpc", url),
		zap.Duration("timeout", timeout))

	return &NodeClient{
		client: client,
		url:    url,
		logger: logger,
	}, nil
}

// Close releases the underlying connection
func (c *NodeClient) Close() {
	c.client.Close()
}

// ChainID asks the node for its chain id
func (c *NodeClient) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.client.CallContext(ctx, &result, "eth_chainId"); err != nil {
		return nil, communicationError("eth_chainId", err)
	}
	return (*big.Int)(&result), nil
}

type callArgs struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}

// Call implements Transport
func (c *NodeClient) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var result hexutil.Bytes
	err := c.client.CallContext(ctx, &result, "eth_call", callArgs{To: to, Data: data}, "latest")
	if err != nil {
		if reason, ok := revertReason(err); ok {
			c.logger.Debug("eth_call reverted",
				zap.String("to", FormatAddress(to)),
				zap.String("reason", reason))
			return nil, domain.NewError(domain.ErrCallReverted, "eth_call", reason, nil)
		}
		return nil, communicationError("eth_call", err)
	}
	return result, nil
}

// BalanceAt implements Transport
func (c *NodeClient) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	var result hexutil.Big
	if err := c.client.CallContext(ctx, &result, "eth_getBalance", address, "latest"); err != nil {
		return nil, communicationError("eth_getBalance", err)
	}
	return (*big.Int)(&result), nil
}

// PendingNonceAt implements Transport
func (c *NodeClient) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	var result hexutil.Uint64
	if err := c.client.CallContext(ctx, &result, "eth_getTransactionCount", address, "pending"); err != nil {
		return 0, communicationError("eth_getTransactionCount", err)
	}
	return uint64(result), nil
}

// SendRawTransaction implements Transport
func (c *NodeClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var hash common.Hash
	err := c.client.CallContext(ctx, &hash, "eth_sendRawTransaction", hexutil.Encode(raw))
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return common.Hash{}, domain.NewError(domain.ErrTransactionRejected, "eth_sendRawTransaction", rpcErr.Error(), nil)
		}
		return common.Hash{}, communicationError("eth_sendRawTransaction", err)
	}
	return hash, nil
}

type rpcReceipt struct {
	TxHash      common.Hash     `json:"transactionHash"`
	Status      *hexutil.Uint64 `json:"status"`
	BlockNumber *hexutil.Big    `json:"blockNumber"`
	GasUsed     hexutil.Uint64  `json:"gasUsed"`
	Logs        []rpcLog        `json:"logs"`
}

type rpcLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

// TransactionReceipt implements Transport
func (c *NodeClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	var r *rpcReceipt
	if err := c.client.CallContext(ctx, &r, "eth_getTransactionReceipt", hash); err != nil {
		return nil, communicationError("eth_getTransactionReceipt", err)
	}
	if r == nil {
		return nil, nil
	}
	return r.toDomain(), nil
}

func (r *rpcReceipt) toDomain() *domain.Receipt {
	receipt := &domain.Receipt{
		TxHash:  r.TxHash,
		Status:  domain.ReceiptStatusSuccess,
		GasUsed: uint64(r.GasUsed),
		Logs:    make([]domain.Log, 0, len(r.Logs)),
	}
	// Pre-Byzantium receipts carry a state root instead of a status field.
	if r.Status != nil && uint64(*r.Status) == 0 {
		receipt.Status = domain.ReceiptStatusFailed
	}
	if r.BlockNumber != nil {
		receipt.BlockNumber = r.BlockNumber.ToInt().Uint64()
	}
	for _, l := range r.Logs {
		receipt.Logs = append(receipt.Logs, domain.Log{
			Address: l.Address,
			Topics:  l.Topics,
			Data:    l.Data,
		})
	}
	return receipt
}

// revertReason reports whether err is a node-reported execution revert and extracts its reason
func revertReason(err error) (string, bool) {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return "", false
	}
	if rpcErr.ErrorCode() != revertErrorCode && !strings.Contains(rpcErr.Error(), "execution reverted") {
		return "", false
	}

	reason := rpcErr.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if hexData, ok := dataErr.ErrorData().(string); ok {
			if raw, decErr := hexutil.Decode(hexData); decErr == nil {
				if unpacked, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					reason = unpacked
				}
			}
		}
	}
	return reason, true
}

func communicationError(op string, err error) error {
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return domain.NewError(domain.ErrCommunication, op, fmt.Sprintf("http status %d", httpErr.StatusCode), err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return domain.NewError(domain.ErrCommunication, op, fmt.Sprintf("rpc error %d", rpcErr.ErrorCode()), err)
	}
	return domain.NewError(domain.ErrCommunication, op, "", err)
}

// Disconnected is the Transport used when no node is configured.
// Every method fails with NotInitialized.
type Disconnected struct {
	Reason string
}

func (d Disconnected) err(op string) error {
	return domain.NewError(domain.ErrNotInitialized, op, "no node connection: "+d.Reason, nil)
}

func (d Disconnected) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return nil, d.err("call")
}

func (d Disconnected) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	return nil, d.err("balance_at")
}

func (d Disconnected) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	return 0, d.err("pending_nonce_at")
}

func (d Disconnected) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	return common.Hash{}, d.err("send_raw_transaction")
}

func (d Disconnected) TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	return nil, d.err("transaction_receipt")
}
