package events

import (
	"testing"
	"time"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventLiveStarted)
	defer bus.Unsubscribe(EventLiveStarted, sub)

	bus.Publish(EventLiveStarted, Payload{"seller_id": "s1"})

	select {
	case payload := <-sub:
		if payload["seller_id"] != "s1" {
			t.Fatalf("unexpected payload %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventLiveOffline)
	defer bus.Unsubscribe(EventLiveOffline, sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			bus.Publish(EventLiveOffline, Payload{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if len(sub) != cap(sub) {
		t.Fatalf("expected subscriber buffer to be full, got %d/%d", len(sub), cap(sub))
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventLiveEnded)
	bus.Unsubscribe(EventLiveEnded, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected channel to be closed")
	}
	bus.Publish(EventLiveEnded, Payload{})
}
