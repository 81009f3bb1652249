package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TokenEvent describes a token issuance and is delivered to the audit
// collaborator off the request path.
type TokenEvent struct {
	TokenID   string
	UserID    string
	Username  string
	Domain    string
	Audience  string
	IP        string
	UserAgent string
	RequestID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// EventSink consumes token events. Delivery is best-effort; sink errors are
// the sink's own problem.
type EventSink func(ctx context.Context, ev TokenEvent)

// Notifier hands token events to a sink through a bounded channel drained by
// a single background goroutine. When the buffer is full the newest event is
// dropped and counted; a saturated audit pipeline must never block or fail a
// login.
type Notifier struct {
	ch      chan TokenEvent
	dropped atomic.Uint64
	onDrop  func()

	closeOnce sync.Once
	done      chan struct{}
}

// NewNotifier starts the drain goroutine. size bounds the in-flight buffer;
// onDrop, if non-nil, is called once per dropped event (typically a metrics
// counter).
func NewNotifier(size int, sink EventSink, onDrop func()) *Notifier {
	if size <= 0 {
		size = 256
	}
	n := &Notifier{
		ch:     make(chan TokenEvent, size),
		onDrop: onDrop,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(n.done)
		for ev := range n.ch {
			if sink != nil {
				sink(context.Background(), ev)
			}
		}
	}()
	return n
}

// Notify enqueues an event without blocking. Returns false when the event was
// dropped because the buffer is full.
func (n *Notifier) Notify(ev TokenEvent) bool {
	if n == nil {
		return false
	}
	select {
	case n.ch <- ev:
		return true
	default:
		n.dropped.Add(1)
		if n.onDrop != nil {
			n.onDrop()
		}
		return false
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (n *Notifier) Dropped() uint64 {
	if n == nil {
		return 0
	}
	return n.dropped.Load()
}

// Close stops accepting events and waits for the drain goroutine to finish
// delivering what was already queued.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	n.closeOnce.Do(func() {
		close(n.ch)
		<-n.done
	})
}
