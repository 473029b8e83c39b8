package scheduler

import (
	"context"
	"sync"
	"time"

	"newsroom/internal/ports"
)

// TickerDriver fires the daily cycle on a fixed interval.
type TickerDriver struct {
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
}

var _ ports.Scheduler = (*TickerDriver)(nil)

// NewTickerDriver builds a driver with the configured cadence.
func NewTickerDriver(interval time.Duration) *TickerDriver {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &TickerDriver{interval: interval}
}

// Start begins ticking; the job also fires once immediately.
func (t *TickerDriver) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	t.mu.Lock()
	if t.stop != nil {
		t.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case now := <-ticker.C:
				job(now)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine. Safe to call concurrently with a running
// job and more than once.
func (t *TickerDriver) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return nil
	}
	close(t.stop)
	t.stop = nil
	return nil
}
