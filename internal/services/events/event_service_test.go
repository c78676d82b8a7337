package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/marketsentry/marketsentry/internal/interfaces"
)

func TestSubscribeNilHandler(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	if err := svc.Subscribe(interfaces.EventIngestCompleted, nil); err == nil {
		t.Error("expected error for nil handler")
	}
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	received := make(chan interfaces.Event, 2)
	handler := func(ctx context.Context, event interfaces.Event) error {
		received <- event
		return nil
	}

	if err := svc.Subscribe(interfaces.EventSignalGenerated, handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := svc.Subscribe(interfaces.EventSignalGenerated, handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	event := interfaces.Event{Type: interfaces.EventSignalGenerated, Payload: "sig_1"}
	if err := svc.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case got := <-received:
			if got.Payload != "sig_1" {
				t.Errorf("unexpected payload %v", got.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for handler delivery")
		}
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())
	event := interfaces.Event{Type: interfaces.EventHaltChanged}
	if err := svc.Publish(context.Background(), event); err != nil {
		t.Errorf("publish without subscribers must be a no-op, got %v", err)
	}
}

func TestPublishHandlerErrorNotPropagated(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	done := make(chan struct{})
	handler := func(ctx context.Context, event interfaces.Event) error {
		close(done)
		return errors.New("handler failed")
	}
	if err := svc.Subscribe(interfaces.EventIngestCompleted, handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	event := interfaces.Event{Type: interfaces.EventIngestCompleted}
	if err := svc.Publish(context.Background(), event); err != nil {
		t.Errorf("handler errors must not propagate to the publisher, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestCloseDropsSubscribers(t *testing.T) {
	svc := NewService(arbor.NewLogger())

	received := make(chan struct{}, 1)
	svc.Subscribe(interfaces.EventHaltChanged, func(ctx context.Context, event interfaces.Event) error {
		received <- struct{}{}
		return nil
	})

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	svc.Publish(context.Background(), interfaces.Event{Type: interfaces.EventHaltChanged})
	select {
	case <-received:
		t.Error("expected no delivery after close")
	case <-time.After(50 * time.Millisecond):
	}
}
