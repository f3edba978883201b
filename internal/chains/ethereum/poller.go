// internal/chains/ethereum/poller.go
package ethereum

import (
	"blockchain-service/internal/domain"
	"blockchain-service/internal/metrics"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// RetryPolicy bounds how long the poller waits for a receipt
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultRetryPolicy waits up to 60s: 30 attempts, 2s apart
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 30, Interval: 2 * time.Second}

// Validate rejects policies that could never find a receipt
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.Interval < 0 {
		return fmt.Errorf("poll interval must not be negative, got %s", p.Interval)
	}
	return nil
}

var errReceiptPending = errors.New("receipt not available yet")

// ReceiptPoller waits for submitted transactions to be mined.
// Each Wait runs on the caller's goroutine and holds no shared lock, so
// concurrent waits do not queue behind each other.
type ReceiptPoller struct {
	transport Transport
	policy    RetryPolicy
	logger    *zap.Logger
}

func NewReceiptPoller(transport Transport, policy RetryPolicy, logger *zap.Logger) (*ReceiptPoller, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid receipt retry policy: %w", err)
	}
	return &ReceiptPoller{
		transport: transport,
		policy:    policy,
		logger:    logger,
	}, nil
}

// Policy returns the poller's default policy
func (p *ReceiptPoller) Policy() RetryPolicy {
	return p.policy
}

// Wait polls with the poller's default policy
func (p *ReceiptPoller) Wait(ctx context.Context, txHash common.Hash) (*domain.Receipt, error) {
	return p.WaitWithPolicy(ctx, txHash, p.policy)
}

// WaitWithPolicy polls for the receipt of txHash. A found receipt is returned as is,
// whatever its status. Lookup errors consume an attempt and polling continues.
// Running out of attempts yields ErrTransactionNotFound; a done ctx yields ErrWaitCancelled.
func (p *ReceiptPoller) WaitWithPolicy(ctx context.Context, txHash common.Hash, policy RetryPolicy) (*domain.Receipt, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid receipt retry policy: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.ReceiptWaitDuration.Observe(time.Since(start).Seconds())
	}()

	var (
		receipt  *domain.Receipt
		attempts int
	)

	operation := func() error {
		attempts++
		r, err := p.transport.TransactionReceipt(ctx, txHash)
		if err != nil {
			metrics.ReceiptPollAttempts.WithLabelValues("error").Inc()
			p.logger.Warn("Receipt lookup failed, retrying",
				zap.String("tx_hash", txHash.Hex()),
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", policy.MaxAttempts),
				zap.Error(err))
			return err
		}
		if r == nil {
			metrics.ReceiptPollAttempts.WithLabelValues("pending").Inc()
			p.logger.Debug("Waiting for transaction receipt",
				zap.String("tx_hash", txHash.Hex()),
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", policy.MaxAttempts))
			return errReceiptPending
		}
		metrics.ReceiptPollAttempts.WithLabelValues("found").Inc()
		receipt = r
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), uint64(policy.MaxAttempts-1)),
		ctx,
	)

	err := backoff.Retry(operation, b)
	if receipt != nil {
		p.logger.Info("Transaction receipt found",
			zap.String("tx_hash", txHash.Hex()),
			zap.String("status", string(receipt.Status)),
			zap.Int("attempts", attempts))
		return receipt, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, domain.NewError(domain.ErrWaitCancelled, "wait_receipt", txHash.Hex(), ctxErr)
	}

	p.logger.Error("Transaction receipt not found",
		zap.String("tx_hash", txHash.Hex()),
		zap.Int("attempts", attempts),
		zap.Error(err))

	return nil, domain.Errorf(domain.ErrTransactionNotFound, "wait_receipt",
		"%s: no receipt after %d attempts", txHash.Hex(), attempts)
}
