package server

import (
	"context"
	"testing"
	"time"
)

func TestRealtimeDispatcherDeliversToSubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "user-1")
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{
		UserID:    "user-1",
		EventType: RealtimeEventFarmChanged,
		Timestamp: time.Now(),
	})

	select {
	case message := <-stream:
		if message.EventType != RealtimeEventFarmChanged {
			t.Fatalf("unexpected event %#v", message)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a delivered message")
	}
}

func TestRealtimeDispatcherIsolatesUsers(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "user-2")
	defer cleanup()

	dispatcher.Publish(RealtimeMessage{
		UserID:    "user-1",
		EventType: RealtimeEventFarmChanged,
		Timestamp: time.Now(),
	})

	select {
	case message := <-stream:
		t.Fatalf("message leaked across users: %#v", message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRealtimeDispatcherDropsWhenBufferFull(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, cleanup := dispatcher.Subscribe(ctx, "user-1")
	defer cleanup()

	// Publish must never block, even when nobody drains the stream.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			dispatcher.Publish(RealtimeMessage{
				UserID:    "user-1",
				EventType: RealtimeEventFarmChanged,
				Timestamp: time.Now(),
			})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}

func TestRealtimeDispatcherCleanupStopsDelivery(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, cleanup := dispatcher.Subscribe(ctx, "user-1")
	cleanup()

	dispatcher.Publish(RealtimeMessage{
		UserID:    "user-1",
		EventType: RealtimeEventFarmChanged,
		Timestamp: time.Now(),
	})

	select {
	case message := <-stream:
		t.Fatalf("unsubscribed stream received %#v", message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRealtimeDispatcherIgnoresAnonymousSubscriber(t *testing.T) {
	dispatcher := NewRealtimeDispatcher()

	stream, cleanup := dispatcher.Subscribe(context.Background(), "")
	defer cleanup()

	if _, open := <-stream; open {
		t.Fatal("anonymous subscription must return a closed stream")
	}
}
