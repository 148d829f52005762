package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskRunner runs fire-and-forget work scheduled after a response has been
// sent. Failures are logged and dropped; nothing is retried and nothing is
// surfaced to a caller who already got their response.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}

const defaultTaskTimeout = 5 * time.Second

// BackgroundRunner executes tasks on their own goroutines, detached from
// the request context so a client disconnect after the response does not
// abandon the write.
type BackgroundRunner struct {
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewBackgroundRunner builds a runner with the given per-task timeout;
// zero means the default.
func NewBackgroundRunner(logger *zap.Logger, timeout time.Duration) *BackgroundRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return &BackgroundRunner{logger: logger, timeout: timeout}
}

func (r *BackgroundRunner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.logger.Error("background task failed",
				zap.String("task", name),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all scheduled tasks have finished; used on shutdown.
func (r *BackgroundRunner) Wait() {
	r.wg.Wait()
}
