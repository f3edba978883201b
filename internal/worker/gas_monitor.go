// internal/worker/gas_monitor.go
package worker

import (
	"blockchain-service/internal/domain"
	"blockchain-service/internal/metrics"
	"context"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BalanceReader is the part of the wallet the monitor needs
type BalanceReader interface {
	GetNativeBalance(ctx context.Context) (*domain.NativeBalance, error)
}

// GasMonitor watches the wallet's native balance, which pays for every submission,
// and warns when it drops below the threshold.
type GasMonitor struct {
	wallet    BalanceReader
	interval  time.Duration
	threshold *big.Int
	logger    *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	last *domain.NativeBalance
}

func NewGasMonitor(wallet BalanceReader, interval time.Duration, threshold *big.Int, logger *zap.Logger) *GasMonitor {
	return &GasMonitor{
		wallet:    wallet,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start checks once immediately, then every interval, until Stop or ctx is done
func (gm *GasMonitor) Start(ctx context.Context) {
	gm.logger.Info("Starting gas monitor worker",
		zap.Duration("interval", gm.interval),
		zap.String("threshold_wei", gm.threshold.String()))

	ticker := time.NewTicker(gm.interval)
	defer ticker.Stop()

	gm.check(ctx)

	for {
		select {
		case <-ticker.C:
			gm.check(ctx)

		case <-gm.stopChan:
			gm.logger.Info("Stopping gas monitor worker")
			return

		case <-ctx.Done():
			gm.logger.Info("Context cancelled, stopping gas monitor")
			return
		}
	}
}

// Stop stops the gas monitor. Safe to call more than once.
func (gm *GasMonitor) Stop() {
	gm.stopOnce.Do(func() { close(gm.stopChan) })
}

// Last returns the most recent successful reading, or nil
func (gm *GasMonitor) Last() *domain.NativeBalance {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	return gm.last
}

func (gm *GasMonitor) check(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, gm.interval)
	defer cancel()

	balance, err := gm.wallet.GetNativeBalance(checkCtx)
	if err != nil {
		gm.logger.Error("Failed to read native balance", zap.Error(err))
		return
	}

	gm.mu.Lock()
	gm.last = balance
	gm.mu.Unlock()

	wei, _ := new(big.Float).SetInt(balance.Wei).Float64()
	metrics.NativeBalanceWei.Set(wei)

	if balance.Wei.Cmp(gm.threshold) < 0 {
		metrics.GasBalanceLow.Set(1)
		gm.logger.Warn("Wallet gas balance below threshold",
			zap.String("address", balance.Address),
			zap.String("balance_ether", balance.Ether.String()),
			zap.String("threshold_wei", gm.threshold.String()))
		return
	}

	metrics.GasBalanceLow.Set(0)
	gm.logger.Debug("Wallet gas balance ok",
		zap.String("address", balance.Address),
		zap.String("balance_ether", balance.Ether.String()))
}
