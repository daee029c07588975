package websocket

import (
	"context"
	"testing"
	"time"
)

// newTestClient builds a Client bypassing the HTTP upgrade, for exercising
// Hub's register/unregister/Publish plumbing without a real connection.
func newTestClient(topics ...Topic) *Client {
	return &Client{send: make(chan Message, sendBufferSize), topics: topics}
}

func TestHubPublishDeliversToSubscribedTopicOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	go h.Run(ctx)

	fleetWide := newTestClient(AllFleet())
	scoped := newTestClient(PlcTopic(3))
	h.Subscribe(fleetWide)
	h.Subscribe(scoped)

	waitForConnected(t, h, 2)

	h.PublishFleetEvent(3, Message{Type: MsgPlcStatus, Payload: map[string]any{"plc_id": uint32(3)}})

	assertReceives(t, fleetWide.send, "fleet")
	assertReceives(t, scoped.send, "fleet:3")

	// A client scoped to a different reactor must not see this event.
	other := newTestClient(PlcTopic(9))
	h.Subscribe(other)
	waitForConnected(t, h, 3)
	h.PublishFleetEvent(3, Message{Type: MsgPlcStatus})
	select {
	case msg := <-other.send:
		t.Fatalf("unexpected delivery to unrelated topic subscriber: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribeClosesSendChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	go h.Run(ctx)

	c := newTestClient(AllFleet())
	h.Subscribe(c)
	waitForConnected(t, h, 1)

	h.Unsubscribe(c)

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("send channel was not closed after Unsubscribe")
		}
	}
}

func waitForConnected(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		if h.ConnectedCount() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("ConnectedCount never reached %d", want)
		case <-time.After(time.Millisecond):
		}
	}
}

func assertReceives(t *testing.T, ch chan Message, wantTopic string) {
	t.Helper()
	select {
	case msg := <-ch:
		if msg.Topic != wantTopic {
			t.Fatalf("msg.Topic = %q, want %q", msg.Topic, wantTopic)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a message on topic %q, got none", wantTopic)
	}
}
