package events

import (
	"log/slog"
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBroker(slog.Default())

	sub := b.Subscribe("")
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Kind: KindResolve, Host: "app.acme.com", Outcome: "match"})

	select {
	case ev := <-sub.Ch:
		if ev.Kind != KindResolve || ev.Host != "app.acme.com" {
			t.Errorf("unexpected event %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Error("Publish should stamp a zero time")
		}
	case <-time.After(time.Second):
		t.Fatal("event never delivered")
	}
}

func TestKindFilter(t *testing.T) {
	b := NewBroker(slog.Default())

	askOnly := b.Subscribe(KindAsk)
	defer b.Unsubscribe(askOnly)

	b.Publish(&Event{Kind: KindDispatch, Host: "app.acme.com"})
	b.Publish(&Event{Kind: KindAsk, Host: "app.acme.com", Outcome: "allow"})

	select {
	case ev := <-askOnly.Ch:
		if ev.Kind != KindAsk {
			t.Errorf("filter leaked kind %q", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("matching event never delivered")
	}

	select {
	case ev := <-askOnly.Ch:
		t.Errorf("unexpected second event %+v", ev)
	default:
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	b := NewBroker(slog.Default())

	sub := b.Subscribe("")
	defer b.Unsubscribe(sub)

	// Overfill the subscriber buffer without draining; Publish must drop
	// rather than block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			b.Publish(&Event{Kind: KindResolve, Host: "app.acme.com"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(slog.Default())

	sub := b.Subscribe("")
	b.Unsubscribe(sub)

	if _, ok := <-sub.Ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0", n)
	}

	// Double unsubscribe is a no-op.
	b.Unsubscribe(sub)
}
