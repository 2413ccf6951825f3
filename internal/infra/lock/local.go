package lock

import (
	"context"
	"sync"
	"time"

	"academy-booking/internal/pkg/errs"
	"academy-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// LocalLocker is the single-instance fallback used when Redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]chan struct{}
	wait time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		held: make(map[uuid.UUID]chan struct{}),
		wait: wait,
	}
}

func (l *LocalLocker) Lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	for {
		l.mu.Lock()
		released, busy := l.held[bookingID]
		if !busy {
			ch := make(chan struct{})
			l.held[bookingID] = ch
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, bookingID)
					l.mu.Unlock()
					close(ch)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, errs.Mark(errs.Newf("booking %s is locked", bookingID), shared.ErrLockNotAcquired)
		}
	}
}

var _ shared.BookingLocker = (*LocalLocker)(nil)
