package memory

import (
	"context"
	"sync"
	"time"

	schedulingerrors "clinicslots/internal/scheduling/errors"
)

// keyedMutex hands out one exclusive section per key. Waiting is bounded by
// the context and by the per-call timeout.
type keyedMutex struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{slots: make(map[string]chan struct{})}
}

func (m *keyedMutex) slot(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.slots[key] = ch
	}
	return ch
}

func (m *keyedMutex) Lock(ctx context.Context, key string, timeout time.Duration) error {
	ch := m.slot(key)

	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return schedulingerrors.ErrLockTimeout
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return schedulingerrors.ErrLockTimeout
		}
		return ctx.Err()
	}
}

func (m *keyedMutex) Unlock(key string) {
	<-m.slot(key)
}
