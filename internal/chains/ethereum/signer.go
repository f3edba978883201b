// internal/chains/ethereum/signer.go
package ethereum

import (
	"blockchain-service/internal/domain"
	"blockchain-service/internal/metrics"
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// signTransaction signs a request with EIP-155 replay protection bound to its chain id
func signTransaction(req *domain.TransactionRequest, privateKey *ecdsa.PrivateKey) (*types.Transaction, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    req.Nonce,
		To:       &req.To,
		Value:    value,
		Gas:      req.GasLimit,
		GasPrice: req.GasPrice,
		Data:     req.Data,
	})

	signer := types.NewEIP155Signer(req.ChainID)
	signedTx, err := types.SignTx(tx, signer, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return signedTx, nil
}

// recoverSigner recovers the sender address from a signed transaction
func recoverSigner(tx *types.Transaction, chainID *big.Int) (common.Address, error) {
	sender, err := types.Sender(types.NewEIP155Signer(chainID), tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover sender: %w", err)
	}
	return sender, nil
}

// Submitter signs transactions with the wallet key and hands them to the node.
// Submissions from the wallet address are serialized through the NonceLocker.
type Submitter struct {
	wallet    *WalletContext
	transport Transport
	locker    NonceLocker
	logger    *zap.Logger

	mu        sync.Mutex
	nextNonce uint64
	tracked   bool
}

func NewSubmitter(wallet *WalletContext, transport Transport, locker NonceLocker, logger *zap.Logger) *Submitter {
	if locker == nil {
		locker = NewLocalNonceLocker()
	}
	return &Submitter{
		wallet:    wallet,
		transport: transport,
		locker:    locker,
		logger:    logger,
	}
}

// Submit signs call against contract and submits it. It returns once the node has
// accepted the transaction; it does not wait for it to be mined.
func (s *Submitter) Submit(ctx context.Context, contract common.Address, call FunctionCall, value *big.Int, gas domain.GasPolicy) (*domain.Submission, error) {
	key, err := s.wallet.privateKey()
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	if err := ValidateAmount(value); err != nil {
		return nil, err
	}
	if err := ValidateAmount(gas.GasPrice); err != nil {
		return nil, err
	}
	from := s.wallet.address

	unlock, err := s.locker.Lock(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire nonce lock: %w", err)
	}
	defer unlock()

	start := time.Now()

	nonce, err := s.resolveNonce(ctx, from)
	if err != nil {
		metrics.TransactionsSubmitted.WithLabelValues("nonce_error").Inc()
		return nil, err
	}

	req := &domain.TransactionRequest{
		To:       contract,
		Data:     call.Data(),
		Value:    value,
		GasPrice: gas.GasPrice,
		GasLimit: gas.GasLimit,
		Nonce:    nonce,
		ChainID:  s.wallet.ChainID(),
	}

	signedTx, err := signTransaction(req, key)
	if err != nil {
		return nil, err
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, domain.NewError(domain.ErrEncoding, "submit", "encode signed transaction", err)
	}

	nodeHash, err := s.transport.SendRawTransaction(ctx, raw)
	if err != nil {
		s.forgetNonce()
		metrics.TransactionsSubmitted.WithLabelValues("rejected").Inc()
		s.logger.Error("Transaction submission failed",
			zap.String("from", FormatAddress(from)),
			zap.String("to", FormatAddress(contract)),
			zap.Uint64("nonce", nonce),
			zap.Error(err))
		return nil, err
	}

	txHash := signedTx.Hash()
	if nodeHash != (common.Hash{}) && nodeHash != txHash {
		s.logger.Warn("Node reported a different transaction hash",
			zap.String("tx_hash", txHash.Hex()),
			zap.String("node_hash", nodeHash.Hex()))
	}

	s.advanceNonce(nonce + 1)
	metrics.TransactionsSubmitted.WithLabelValues("accepted").Inc()
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("Transaction submitted",
		zap.String("tx_hash", txHash.Hex()),
		zap.String("to", FormatAddress(contract)),
		zap.Uint64("nonce", nonce),
		zap.String("gas_price", gas.GasPrice.String()),
		zap.Uint64("gas_limit", gas.GasLimit))

	return &domain.Submission{TxHash: txHash, Nonce: nonce}, nil
}

// resolveNonce returns the node's pending nonce, which is authoritative under the lock.
// Nodes queue transactions with future nonces without error, so a locally tracked
// value ahead of the node would leave a gap that is never mined. When the node falls
// behind the last nonce we used, a pooled transaction was dropped and we resync.
func (s *Submitter) resolveNonce(ctx context.Context, from common.Address) (uint64, error) {
	pending, err := s.transport.PendingNonceAt(ctx, from)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracked && s.nextNonce > pending {
		metrics.NonceResyncs.Inc()
		s.logger.Warn("Node pending nonce behind last submission, resyncing",
			zap.String("from", FormatAddress(from)),
			zap.Uint64("local_next", s.nextNonce),
			zap.Uint64("node_pending", pending))
		s.tracked = false
		s.nextNonce = 0
	}
	return pending, nil
}

func (s *Submitter) advanceNonce(next uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextNonce = next
	s.tracked = true
}

// forgetNonce drops local tracking so the next submission resyncs from the node
func (s *Submitter) forgetNonce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracked {
		metrics.NonceResyncs.Inc()
	}
	s.tracked = false
	s.nextNonce = 0
}
