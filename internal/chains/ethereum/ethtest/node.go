// Package ethtest provides an in-memory node for exercising the wallet without a chain.
package ethtest

import (
	"blockchain-service/internal/domain"
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Method names used by Count
const (
	MethodCall    = "eth_call"
	MethodBalance = "eth_getBalance"
	MethodNonce   = "eth_getTransactionCount"
	MethodSend    = "eth_sendRawTransaction"
	MethodReceipt = "eth_getTransactionReceipt"
)

// Node is a fake Transport. It validates nonces of submitted transactions the way a
// real node would and mines them into receipts produced by OnSend.
type Node struct {
	ChainID *big.Int

	// CallFunc answers eth_call. Nil returns an empty result.
	CallFunc func(to common.Address, data []byte) ([]byte, error)

	// OnSend builds the receipt for an accepted transaction. Nil leaves it unmined.
	OnSend func(tx *types.Transaction) *domain.Receipt

	// SendErr, when set, rejects every submission with this error
	SendErr error

	// ReceiptErrs are returned, in order, by the first receipt lookups
	ReceiptErrs []error

	// PendingLookups is how many lookups report "not mined" before a receipt appears
	PendingLookups int

	mu       sync.Mutex
	balances map[common.Address]*big.Int
	pending  map[common.Address]uint64
	sent     []*types.Transaction
	receipts map[common.Hash]*domain.Receipt
	lookups  map[common.Hash]int
	counts   map[string]int
}

func NewNode(chainID int64) *Node {
	return &Node{
		ChainID:  big.NewInt(chainID),
		balances: make(map[common.Address]*big.Int),
		pending:  make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*domain.Receipt),
		lookups:  make(map[common.Hash]int),
		counts:   make(map[string]int),
	}
}

// SetBalance sets the native balance of address
func (n *Node) SetBalance(address common.Address, wei *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[address] = new(big.Int).Set(wei)
}

// SetPendingNonce sets the next nonce the node expects from address
func (n *Node) SetPendingNonce(address common.Address, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending[address] = nonce
}

// AddReceipt makes a receipt available for lookups
func (n *Node) AddReceipt(r *domain.Receipt) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receipts[r.TxHash] = r
}

// Count returns how many times method was invoked
func (n *Node) Count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[method]
}

// Sent returns the accepted transactions in submission order
func (n *Node) Sent() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*types.Transaction, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *Node) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	n.mu.Lock()
	n.counts[MethodCall]++
	fn := n.CallFunc
	n.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, nil
	}
	return fn(to, data)
}

func (n *Node) BalanceAt(ctx context.Context, address common.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[MethodBalance]++

	if b, ok := n.balances[address]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (n *Node) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[MethodNonce]++
	return n.pending[address], nil
}

func (n *Node) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[MethodSend]++

	if n.SendErr != nil {
		return common.Hash{}, n.SendErr
	}

	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, domain.NewError(domain.ErrTransactionRejected, "eth_sendRawTransaction", "rlp: malformed transaction", err)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(n.ChainID), tx)
	if err != nil {
		return common.Hash{}, domain.NewError(domain.ErrTransactionRejected, "eth_sendRawTransaction", "invalid sender", err)
	}

	expected := n.pending[sender]
	switch {
	case tx.Nonce() < expected:
		return common.Hash{}, domain.Errorf(domain.ErrTransactionRejected, "eth_sendRawTransaction",
			"nonce too low: next nonce %d, tx nonce %d", expected, tx.Nonce())
	case tx.Nonce() > expected:
		return common.Hash{}, domain.Errorf(domain.ErrTransactionRejected, "eth_sendRawTransaction",
			"nonce too high: next nonce %d, tx nonce %d", expected, tx.Nonce())
	}

	n.pending[sender] = expected + 1
	n.sent = append(n.sent, tx)

	if n.OnSend != nil {
		if r := n.OnSend(tx); r != nil {
			r.TxHash = tx.Hash()
			n.receipts[tx.Hash()] = r
		}
	}

	return tx.Hash(), nil
}

func (n *Node) TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counts[MethodReceipt]++

	if len(n.ReceiptErrs) > 0 {
		err := n.ReceiptErrs[0]
		n.ReceiptErrs = n.ReceiptErrs[1:]
		return nil, err
	}

	n.lookups[hash]++
	if n.lookups[hash] <= n.PendingLookups {
		return nil, nil
	}
	return n.receipts[hash], nil
}

// UintTopic left-pads v into a 32-byte topic
func UintTopic(v uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(v))
}

// Word left-pads v into a 32-byte ABI word
func Word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

// Selector returns the first 4 bytes of calldata as a hex string for dispatching in CallFunc
func Selector(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	return fmt.Sprintf("%x", data[:4])
}
