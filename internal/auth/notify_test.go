package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNotifierDelivers(t *testing.T) {
	var (
		mu       sync.Mutex
		received []TokenEvent
	)
	done := make(chan struct{}, 1)
	n := NewNotifier(4, func(ctx context.Context, ev TokenEvent) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
		done <- struct{}{}
	}, nil)
	defer n.Close()

	if ok := n.Notify(TokenEvent{TokenID: "tok-1", Username: "alice"}); !ok {
		t.Fatal("event should be accepted")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sink was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].TokenID != "tok-1" {
		t.Fatalf("unexpected delivery: %v", received)
	}
}

func TestNotifierDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	var drops int
	n := NewNotifier(1, func(ctx context.Context, ev TokenEvent) {
		<-block
	}, func() { drops++ })

	// First event occupies the sink, second fills the buffer. Anything past
	// that is dropped without blocking.
	n.Notify(TokenEvent{TokenID: "a"})
	deadline := time.After(2 * time.Second)
	for n.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("notifier never dropped")
		default:
		}
		n.Notify(TokenEvent{TokenID: "b"})
	}

	if drops == 0 {
		t.Fatal("drop callback was not invoked")
	}
	close(block)
	n.Close()
}

func TestNotifierCloseDrains(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	n := NewNotifier(8, func(ctx context.Context, ev TokenEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)

	for i := 0; i < 5; i++ {
		n.Notify(TokenEvent{TokenID: "tok"})
	}
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 5 {
		t.Fatalf("expected 5 deliveries before close returned, got %d", count)
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	if n.Notify(TokenEvent{}) {
		t.Fatal("nil notifier should report a drop")
	}
	if n.Dropped() != 0 {
		t.Fatal("nil notifier has no counter")
	}
	n.Close()
}
