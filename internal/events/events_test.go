package events

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	payload := BookingEventPayload{BookingID: 4, Client: "Mario", Status: "waiting"}
	if err := bus.PublishJSON(EventBookingCreated, payload); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}

	var decoded BookingEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.Client != "Mario" || decoded.BookingID != 4 {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusWildcard(t *testing.T) {
	bus := NewEventBus()
	var types []string

	bus.Subscribe(Wildcard, func(e *Event) error { types = append(types, e.Type); return nil })

	_ = bus.PublishJSON(EventBookingDeleted, nil)
	_ = bus.PublishJSON(EventSessionStarted, SessionEventPayload{Username: "salvatore"})

	if len(types) != 2 || types[0] != EventBookingDeleted || types[1] != EventSessionStarted {
		t.Errorf("unexpected wildcard deliveries: %v", types)
	}
}

func TestEventBusHandlerError(t *testing.T) {
	bus := NewEventBus()
	var secondCalled bool

	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { secondCalled = true; return nil })

	if err := bus.Publish(&Event{Type: "event"}); err == nil {
		t.Error("expected handler error to be returned")
	}
	if !secondCalled {
		t.Error("expected remaining handlers to run")
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	if err := bus.Publish(&Event{Type: "unknown"}); err != nil {
		t.Errorf("Publish failed: %v", err)
	}
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("nil bus should be a no-op: %v", err)
	}
}
