// internal/chains/ethereum/nonce_lock.go
package ethereum

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NonceLocker serializes transaction submissions per sending address.
// Every submission consumes the next nonce, so two submissions from the same
// address must never resolve their nonce concurrently.
type NonceLocker interface {
	// Lock blocks until the caller owns the lock for address or ctx is done.
	// The returned func releases the lock.
	Lock(ctx context.Context, address common.Address) (func(), error)
}

// LocalNonceLocker is an in-process NonceLocker, one slot per address
type LocalNonceLocker struct {
	mu    sync.Mutex
	slots map[common.Address]chan struct{}
}

func NewLocalNonceLocker() *LocalNonceLocker {
	return &LocalNonceLocker{
		slots: make(map[common.Address]chan struct{}),
	}
}

// Lock implements NonceLocker
func (l *LocalNonceLocker) Lock(ctx context.Context, address common.Address) (func(), error) {
	slot := l.slot(address)

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-slot })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *LocalNonceLocker) slot(address common.Address) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[address]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[address] = slot
	}
	return slot
}
