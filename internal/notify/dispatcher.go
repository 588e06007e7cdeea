package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yukikurage/taskflow-api/internal/metrics"
)

const sendTimeout = 30 * time.Second

// Dispatcher runs notifications on a fixed pool of workers fed by a bounded queue.
// Enqueue never blocks; delivery has no retries and failures are only logged.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	workers  int

	queue chan Assignment
	wg    sync.WaitGroup
	mu    sync.RWMutex

	running bool
	closed  bool
}

func NewDispatcher(notifier Notifier, logger *slog.Logger, m *metrics.Metrics, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		workers:  workers,
		queue:    make(chan Assignment, queueSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.closed {
		return
	}
	d.running = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for a := range d.queue {
				d.deliver(a)
			}
		}()
	}
	d.logger.Info("notification dispatcher started", "workers", d.workers)
}

// Enqueue hands a off to the workers. It reports false when the queue is full or stopped.
func (d *Dispatcher) Enqueue(a Assignment) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(a, "dispatcher stopped")
		return false
	}

	select {
	case d.queue <- a:
		return true
	default:
		d.drop(a, "queue full")
		return false
	}
}

// Stop closes the queue and waits for queued notifications until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warn("timeout waiting for notifications to drain")
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(a Assignment) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notifier panicked", "task_id", a.TaskID, "panic", r)
			d.count(metrics.ResultFailed)
		}
	}()

	if err := d.notifier.NotifyAssignment(ctx, a); err != nil {
		d.logger.Error("failed to send assignment notification",
			"task_id", a.TaskID,
			"recipient", a.RecipientEmail,
			"error", err,
		)
		d.count(metrics.ResultFailed)
		return
	}
	d.logger.Info("assignment notification sent", "task_id", a.TaskID, "recipient", a.RecipientEmail)
	d.count(metrics.ResultSent)
}

func (d *Dispatcher) drop(a Assignment, reason string) {
	d.logger.Warn("dropping assignment notification", "task_id", a.TaskID, "reason", reason)
	d.count(metrics.ResultDropped)
}

func (d *Dispatcher) count(result string) {
	if d.metrics != nil {
		d.metrics.Notifications.WithLabelValues(result).Inc()
	}
}
