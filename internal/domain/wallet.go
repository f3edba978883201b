// internal/domain/wallet.go
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// ReceiptStatus is the execution outcome recorded in a receipt
type ReceiptStatus string

const (
	ReceiptStatusSuccess ReceiptStatus = "success"
	ReceiptStatusFailed  ReceiptStatus = "failed"
)

// Receipt is the node-produced record of a mined transaction
type Receipt struct {
	TxHash      common.Hash
	Status      ReceiptStatus
	BlockNumber uint64
	GasUsed     uint64
	Logs        []Log
}

// Succeeded reports whether the transaction executed without reverting
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccess
}

// Log is a single event emitted during execution.
// Topics[0] is the event signature hash, further topics are indexed parameters.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// GasPolicy is the fixed gas price and limit applied to every submission
type GasPolicy struct {
	GasPrice *big.Int
	GasLimit uint64
}

// Contracts holds the contract addresses the wallet talks to. Nil means not configured.
type Contracts struct {
	Token               *common.Address
	DividendDistributor *common.Address
	STO                 *common.Address
}

// TransactionRequest is an unsigned transaction, owned by the signer until submitted
type TransactionRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasPrice *big.Int
	GasLimit uint64
	Nonce    uint64
	ChainID  *big.Int
}

// Submission is the result of handing a signed transaction to the node
type Submission struct {
	TxHash common.Hash
	Nonce  uint64
}

// NativeBalance is the wallet's native coin balance in wei and in ether
type NativeBalance struct {
	Address string
	Wei     *big.Int
	Ether   decimal.Decimal
}
