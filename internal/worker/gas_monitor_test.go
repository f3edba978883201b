package worker

import (
	"blockchain-service/internal/domain"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubBalance struct {
	mu    sync.Mutex
	wei   *big.Int
	err   error
	calls int
}

func (s *stubBalance) GetNativeBalance(ctx context.Context) (*domain.NativeBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.NativeBalance{
		Address: "0x00000000000000000000000000000000000000aa",
		Wei:     s.wei,
		Ether:   decimal.NewFromBigInt(s.wei, -18),
	}, nil
}

func (s *stubBalance) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestGasMonitorWarnsBelowThreshold(t *testing.T) {
	logger, logs := observedLogger()
	stub := &stubBalance{wei: big.NewInt(1_000)}
	gm := NewGasMonitor(stub, time.Hour, big.NewInt(5_000), logger)

	gm.check(context.Background())

	warnings := logs.FilterMessage("Wallet gas balance below threshold").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)

	require.NotNil(t, gm.Last())
	assert.Equal(t, int64(1_000), gm.Last().Wei.Int64())
}

func TestGasMonitorQuietAboveThreshold(t *testing.T) {
	logger, logs := observedLogger()
	stub := &stubBalance{wei: big.NewInt(5_000)}
	gm := NewGasMonitor(stub, time.Hour, big.NewInt(5_000), logger)

	gm.check(context.Background())

	assert.Zero(t, logs.FilterMessage("Wallet gas balance below threshold").Len())
	assert.Equal(t, 1, logs.FilterMessage("Wallet gas balance ok").Len())
}

func TestGasMonitorReadFailureKeepsLastReading(t *testing.T) {
	logger, logs := observedLogger()
	stub := &stubBalance{wei: big.NewInt(9_000)}
	gm := NewGasMonitor(stub, time.Hour, big.NewInt(1), logger)

	gm.check(context.Background())
	stub.mu.Lock()
	stub.err = domain.NewError(domain.ErrCommunication, "balance_at", "node down", errors.New("dial tcp"))
	stub.mu.Unlock()
	gm.check(context.Background())

	assert.Equal(t, 1, logs.FilterMessage("Failed to read native balance").Len())
	require.NotNil(t, gm.Last())
	assert.Equal(t, int64(9_000), gm.Last().Wei.Int64())
}

func TestGasMonitorStartAndStop(t *testing.T) {
	logger, _ := observedLogger()
	stub := &stubBalance{wei: big.NewInt(1)}
	gm := NewGasMonitor(stub, 10*time.Millisecond, big.NewInt(0), logger)

	done := make(chan struct{})
	go func() {
		gm.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return stub.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)

	gm.Stop()
	gm.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestGasMonitorStopsOnContextCancel(t *testing.T) {
	logger, logs := observedLogger()
	stub := &stubBalance{wei: big.NewInt(1)}
	gm := NewGasMonitor(stub, time.Hour, big.NewInt(0), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gm.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return stub.Calls() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, 1, logs.FilterMessage("Context cancelled, stopping gas monitor").Len())
}
