package bot

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/order-service/internal/dispatch"
	"github.com/spec-kit/order-service/internal/domain"
	"github.com/spec-kit/order-service/internal/intake"
)

// Loop consumes transport events and feeds them to the session manager.
// Events are sharded by chat ID so one user's messages apply in arrival
// order while different users progress in parallel. Replies flow through
// the dispatcher, which keeps them FIFO with notifications per recipient.
type Loop struct {
	transport  Transport
	manager    *intake.Manager
	dispatcher *dispatch.Dispatcher
	decoder    *Decoder
	logger     *zap.Logger
	shards     int
}

// NewLoop constructs the message loop.
func NewLoop(transport Transport, manager *intake.Manager, dispatcher *dispatch.Dispatcher, decoder *Decoder, logger *zap.Logger, shards int) *Loop {
	if shards <= 0 {
		shards = 4
	}
	return &Loop{
		transport:  transport,
		manager:    manager,
		dispatcher: dispatcher,
		decoder:    decoder,
		logger:     logger,
		shards:     shards,
	}
}

// Run blocks until ctx is cancelled. The dispatcher consumer shares this
// context: once it ends, replies and notifications fail fast instead of
// queueing into the void.
func (l *Loop) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		l.dispatcher.Run(ctx, l.transport)
	}()

	lanes := make([]chan Event, l.shards)
	for i := range lanes {
		lanes[i] = make(chan Event, 16)
	}
	for i := range lanes {
		wg.Add(1)
		go func(lane <-chan Event) {
			defer wg.Done()
			for ev := range lane {
				l.handle(ctx, ev)
			}
		}(lanes[i])
	}

	events := l.transport.Events()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			lanes[laneFor(ev.ChatID, l.shards)] <- ev
		}
	}

	for _, lane := range lanes {
		close(lane)
	}
	wg.Wait()
}

func (l *Loop) handle(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("message handler panicked", zap.Int64("chat_id", ev.ChatID), zap.Any("panic", r))
		}
	}()

	sig := l.decoder.Decode(ev)
	profile := domain.Profile{ChatID: ev.ChatID, FullName: ev.FullName, Username: ev.Username}
	reply := l.manager.Handle(ctx, profile, sig)
	if reply == "" {
		return
	}
	l.dispatcher.Dispatch(dispatch.Intent{ChatID: ev.ChatID, Text: reply})
}

func laneFor(chatID int64, shards int) int {
	lane := int(chatID % int64(shards))
	if lane < 0 {
		lane += shards
	}
	return lane
}
