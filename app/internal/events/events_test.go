package events

import (
	"testing"
	"time"
)

func TestBroker_SubscribeReceives(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: TypeSample, Data: 1})

	select {
	case e := <-ch:
		if e.Type != TypeSample {
			t.Errorf("type = %s", e.Type)
		}
		if e.Time.IsZero() {
			t.Error("publish should stamp missing time")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroker_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	// second unsubscribe is a no-op
	b.Unsubscribe(ch)
	if b.Subscribers() != 0 {
		t.Errorf("subscribers = %d", b.Subscribers())
	}
}

func TestBroker_HooksRunInOrder(t *testing.T) {
	b := NewBroker()
	var seen []Type
	b.AddHook(func(e Event) { seen = append(seen, e.Type) })

	b.Publish(Event{Type: TypeSample})
	b.Publish(Event{Type: TypeGapDetected})
	b.Publish(Event{Type: TypePacketLoss})

	if len(seen) != 3 || seen[0] != TypeSample || seen[2] != TypePacketLoss {
		t.Errorf("unexpected hook order: %v", seen)
	}
}

func TestBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 250; i++ {
			b.Publish(Event{Type: TypeSample})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(ch) != cap(ch) {
		t.Errorf("expected full buffer, got %d/%d", len(ch), cap(ch))
	}
	if b.Dropped() != 150 {
		t.Errorf("expected 150 dropped, got %d", b.Dropped())
	}
}

func TestDiscard(t *testing.T) {
	Discard.Publish(Event{Type: TypeSample})
}
