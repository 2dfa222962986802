// Package dispatch bridges synchronous callers (admin handlers, the status
// machine) and the message loop that owns the outbound send capability.
// Intents cross the boundary through a bounded queue consumed by a single
// goroutine, so per-recipient delivery order follows submission order and
// submitters never block past the enqueue.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/observability"
)

// ErrChannelUnavailable reports that the outbound channel is not running or
// its queue is full. Callers surface it instead of retrying indefinitely.
var ErrChannelUnavailable = errors.New("outbound channel unavailable")

// Sender is the outbound transport operation owned by the message loop.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Intent is one outbound message request. CorrelationID ties the delivery
// outcome back to the business operation that produced it (e.g. an order id).
type Intent struct {
	ChatID        int64
	Text          string
	CorrelationID string
}

// Result is the recorded outcome of one intent.
type Result struct {
	Intent      Intent
	Err         error
	CompletedAt time.Time
}

// Delivered reports whether the intent reached the transport successfully.
func (r Result) Delivered() bool {
	return r.Err == nil
}

// Future resolves exactly once with the intent's outcome. Safe for multiple
// waiters.
type Future struct {
	once sync.Once
	done chan struct{}
	res  Result
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(res Result) {
	f.once.Do(func() {
		f.res = res
		close(f.done)
	})
}

// Done is closed once the outcome is known.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks for the outcome or until ctx expires.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

type submission struct {
	intent Intent
	future *Future
}

// Options sizes the dispatcher.
type Options struct {
	QueueSize     int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Dispatcher is the sole crossing point between administrative contexts and
// the message loop. Safe for concurrent producers.
type Dispatcher struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	opts    Options

	mu      sync.Mutex
	running bool
	queue   chan submission
}

// New constructs a dispatcher. It fails fast until Run is started.
func New(logger *zap.Logger, metrics *observability.Metrics, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 250 * time.Millisecond
	}
	return &Dispatcher{
		logger:  logger,
		metrics: metrics,
		opts:    opts,
		queue:   make(chan submission, opts.QueueSize),
	}
}

// Dispatch submits one intent. It never blocks: when the consumer is not
// running or the queue is full the returned future is already resolved with
// ErrChannelUnavailable. Every submitted intent resolves to some outcome.
func (d *Dispatcher) Dispatch(intent Intent) *Future {
	if intent.CorrelationID == "" {
		intent.CorrelationID = uuid.NewString()
	}
	future := newFuture()

	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		d.settle(future, intent, ErrChannelUnavailable)
		return future
	}
	select {
	case d.queue <- submission{intent: intent, future: future}:
		d.mu.Unlock()
	default:
		d.mu.Unlock()
		d.settle(future, intent, ErrChannelUnavailable)
	}
	return future
}

// Broadcast submits each intent independently; one recipient's failure never
// aborts the rest.
func (d *Dispatcher) Broadcast(intents []Intent) *BroadcastHandle {
	handle := &BroadcastHandle{ID: uuid.NewString(), futures: make([]*Future, 0, len(intents))}
	for _, intent := range intents {
		handle.futures = append(handle.futures, d.Dispatch(intent))
	}
	return handle
}

// Run consumes the queue and performs sends on the caller's goroutine, which
// belongs to the message-loop context. It returns when ctx is cancelled,
// resolving anything still queued as undeliverable.
func (d *Dispatcher) Run(ctx context.Context, sender Sender) {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		d.drain()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case sub := <-d.queue:
			d.deliver(ctx, sender, sub)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sender Sender, sub submission) {
	var err error
	for attempt := 0; attempt < d.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				d.settle(sub.future, sub.intent, ErrChannelUnavailable)
				return
			case <-time.After(d.opts.RetryBackoff):
			}
		}
		if err = sender.Send(ctx, sub.intent.ChatID, sub.intent.Text); err == nil {
			break
		}
	}
	d.settle(sub.future, sub.intent, err)
}

func (d *Dispatcher) settle(future *Future, intent Intent, err error) {
	future.resolve(Result{Intent: intent, Err: err, CompletedAt: time.Now()})
	d.metrics.RecordDispatch(err == nil)
	if err != nil {
		d.logger.Warn("notification not delivered",
			zap.Int64("chat_id", intent.ChatID),
			zap.String("correlation_id", intent.CorrelationID),
			zap.Error(err))
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case sub := <-d.queue:
			d.settle(sub.future, sub.intent, ErrChannelUnavailable)
		default:
			return
		}
	}
}

// Tally summarizes a broadcast for the originating administrative caller.
type Tally struct {
	Total     int      `json:"total"`
	Delivered int      `json:"delivered"`
	Failed    int      `json:"failed"`
	Pending   int      `json:"pending"`
	Failures  []Result `json:"-"`
}

// BroadcastHandle exposes per-recipient outcomes of one broadcast.
type BroadcastHandle struct {
	ID      string
	futures []*Future
}

// Futures returns the per-recipient outcome futures.
func (h *BroadcastHandle) Futures() []*Future {
	return h.futures
}

// Wait gathers outcomes until all are settled or ctx expires; unresolved
// entries are counted as pending rather than failed.
func (h *BroadcastHandle) Wait(ctx context.Context) Tally {
	tally := Tally{Total: len(h.futures)}
	for _, future := range h.futures {
		// Settled futures count even after ctx has expired.
		select {
		case <-future.done:
		default:
			if _, err := future.Wait(ctx); err != nil {
				tally.Pending++
				continue
			}
		}
		res := future.res
		if res.Delivered() {
			tally.Delivered++
		} else {
			tally.Failed++
			tally.Failures = append(tally.Failures, res)
		}
	}
	return tally
}
