package cache

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestLocker connects to the Redis at REDIS_TEST_ADDR, skipping when unset
func newTestLocker(t *testing.T, ttl time.Duration) *NonceLocker {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	l, err := NewNonceLocker(addr, os.Getenv("REDIS_TEST_PASSWORD"), 0, ttl, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func testAddress(t *testing.T) common.Address {
	// Unique per test so parallel runs against a shared Redis do not collide
	return common.BytesToAddress([]byte(t.Name() + time.Now().String()))
}

func TestLockKey(t *testing.T) {
	addr := common.HexToAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")
	assert.Equal(t, "nonce-lock:v1:0xabcdef0123456789abcdef0123456789abcdef01", LockKey(addr))
}

func TestNewNonceLockerUnreachable(t *testing.T) {
	_, err := NewNonceLocker("127.0.0.1:1", "", 0, time.Second, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestNonceLockerExcludes(t *testing.T) {
	l := newTestLocker(t, 10*time.Second)
	addr := testAddress(t)

	unlock, err := l.Lock(context.Background(), addr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, addr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	again, err := l.Lock(context.Background(), addr)
	require.NoError(t, err)
	again()
}

func TestNonceLockerExpires(t *testing.T) {
	l := newTestLocker(t, 300*time.Millisecond)
	addr := testAddress(t)

	_, err := l.Lock(context.Background(), addr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	unlock, err := l.Lock(ctx, addr)
	require.NoError(t, err, "abandoned lock must expire")
	unlock()
}

func TestNonceLockerSerializes(t *testing.T) {
	l := newTestLocker(t, 10*time.Second)
	addr := testAddress(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), addr)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}
