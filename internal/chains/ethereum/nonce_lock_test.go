package ethereum

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalNonceLockerExcludes(t *testing.T) {
	locker := NewLocalNonceLocker()
	addr := common.HexToAddress("0x01")

	unlock, err := locker.Lock(context.Background(), addr)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := locker.Lock(context.Background(), addr)
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock not acquired after release")
	}
}

func TestLocalNonceLockerPerAddress(t *testing.T) {
	locker := NewLocalNonceLocker()

	unlockA, err := locker.Lock(context.Background(), common.HexToAddress("0x0a"))
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlockB, err := locker.Lock(ctx, common.HexToAddress("0x0b"))
	require.NoError(t, err)
	unlockB()
}

func TestLocalNonceLockerContextDone(t *testing.T) {
	locker := NewLocalNonceLocker()
	addr := common.HexToAddress("0x01")

	unlock, err := locker.Lock(context.Background(), addr)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, addr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalNonceLockerDoubleUnlock(t *testing.T) {
	locker := NewLocalNonceLocker()
	addr := common.HexToAddress("0x01")

	unlock, err := locker.Lock(context.Background(), addr)
	require.NoError(t, err)
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	again, err := locker.Lock(ctx, addr)
	require.NoError(t, err)
	again()
}
