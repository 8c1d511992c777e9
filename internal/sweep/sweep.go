// Package sweep runs a function on a fixed interval in a background
// goroutine until stopped.
package sweep

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Func performs one sweep pass and returns the number of entries removed.
type Func func(now time.Time) int

// Runner owns one background sweep goroutine.
type Runner struct {
	name     string
	interval time.Duration
	fn       Func
	now      func() time.Time
	logger   *zap.Logger

	stopCh   chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Start launches fn every interval. A non-positive interval returns a
// Runner that never runs; Stop is still safe to call.
func Start(name string, interval time.Duration, fn Func, now func() time.Time, logger *zap.Logger) *Runner {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		name:     name,
		interval: interval,
		fn:       fn,
		now:      now,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	if interval <= 0 || fn == nil {
		return r
	}

	r.wg.Add(1)
	go r.loop()
	return r
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runOnce()
		case <-r.stopCh:
			return
		}
	}
}

func (r *Runner) runOnce() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("sweep panicked", zap.String("sweep", r.name), zap.Any("panic", rec))
		}
	}()

	removed := r.fn(r.now())
	if removed > 0 {
		r.logger.Debug("sweep removed expired entries",
			zap.String("sweep", r.name),
			zap.Int("removed", removed),
		)
	}
}

// Stop signals the goroutine to exit and waits for it.
func (r *Runner) Stop() {
	if r == nil {
		return
	}
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}
