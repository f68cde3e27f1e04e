package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned by Dispatcher.Publish when the buffer is full.
var ErrQueueFull = errors.New("events: dispatch queue is full")

// DefaultQueueSize is the dispatcher buffer used when none is configured.
const DefaultQueueSize = 256

// publishTimeout bounds one delivery to the broker.
const publishTimeout = 5 * time.Second

// Dispatcher hands events to a background goroutine that forwards them to
// the wrapped Publisher, so a slow broker never holds up a review write.
// Events still queued at Close are delivered before the inner publisher
// is closed.
type Dispatcher struct {
	inner  Publisher
	logger *slog.Logger
	queue  chan ReviewEvent

	mu     sync.RWMutex
	closed bool

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

var _ Publisher = (*Dispatcher)(nil)

func NewDispatcher(inner Publisher, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Dispatcher{
		inner:  inner,
		logger: logger,
		queue:  make(chan ReviewEvent, size),
	}
}

// Start launches the delivery goroutine. Calling it again is a no-op.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.logger.Info("starting review event dispatcher", slog.Int("queueSize", cap(d.queue)))
		d.wg.Add(1)
		go d.run()
	})
}

// Publish queues event without waiting for the broker. It fails fast when
// the queue is full or the dispatcher is closed.
func (d *Dispatcher) Publish(ctx context.Context, event ReviewEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return errors.New("events: dispatcher is closed")
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for the queue to drain and closes the
// inner publisher.
func (d *Dispatcher) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()

		// A dispatcher that never started still owes its queued events.
		d.Start()
		d.wg.Wait()
		err = d.inner.Close()
	})
	return err
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := d.inner.Publish(ctx, event)
		cancel()
		if err != nil {
			d.logger.Error("delivering review event",
				slog.String("type", string(event.Type)),
				slog.Int64("reviewID", event.ReviewID),
				slog.String("error", err.Error()),
			)
		}
	}
}
