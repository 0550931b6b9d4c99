package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/fjstoneservices/site-api/pkg/logging"
)

// Background tracks long-running helper goroutines (window sweeps and the
// like) so shutdown can wait for them.
type Background struct {
	wg     sync.WaitGroup
	logger *logging.Logger
}

// NewBackground creates an empty goroutine group.
func NewBackground(logger *logging.Logger) *Background {
	if logger == nil {
		logger = logging.Default()
	}
	return &Background{logger: logger}
}

// Go runs fn until ctx is cancelled. A panic in fn is logged, not fatal.
func (b *Background) Go(ctx context.Context, name string, fn func(context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("background task panicked", "task", name, "panic", r)
			}
		}()
		b.logger.Debug("background task started", "task", name)
		fn(ctx)
		b.logger.Debug("background task stopped", "task", name)
	}()
}

// Wait blocks until every task returned or timeout elapsed. It reports
// whether all tasks finished.
func (b *Background) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		b.logger.Warn("background tasks did not stop in time", "timeout", timeout)
		return false
	}
}
