package websocket

import (
	"context"
	"sync"
)

// Hub is the central pub/sub broker for WebSocket clients. It maintains the
// registry of connected clients and routes published messages to all clients
// subscribed to a given Topic.
//
// # Design: single-writer event loop
//
// All mutations to the client registry (register, unregister) are serialised
// through a single goroutine — the Run loop — via channels. This eliminates
// the need for a mutex on the registry map and makes the data flow easy to
// reason about. Publish is the one exception: it holds a read-lock for the
// shortest possible time to copy the target set, then sends outside the lock
// to avoid blocking the event loop while waiting on slow client channels.
//
// Subscriptions are keyed by the typed Topic value rather than a bare
// string: cmd/supervisor's event relay and housekeep publish fleet-wide
// events on AllFleet() and,
// for a PLC-specific event, also on PlcTopic(plcID), so an operator console
// narrowed to one reactor never has to filter the firehose client-side.
type Hub struct {
	// clients is the set of connected clients (each client's topics live on
	// Client.topics). Keyed by pointer for O(1) register/unregister.
	clients map[*Client]struct{}

	// topics maps each Topic to the set of clients subscribed to it. Both
	// maps are always updated together to keep them in sync.
	topics map[Topic]map[*Client]struct{}

	// mu protects clients and topics, which Publish and the count accessors
	// read from outside the Run goroutine. All writes happen inside Run,
	// which takes the write lock for each one.
	mu sync.RWMutex

	// register receives clients that have just completed the WebSocket
	// upgrade and are ready to receive messages.
	register chan *Client

	// unregister receives clients that have disconnected or encountered a
	// write error. The hub removes them from all topic subscriptions.
	unregister chan *Client

	// stopped is closed when the hub's Run loop exits, signalling that no
	// further messages will be delivered.
	stopped chan struct{}
}

// NewHub creates an idle Hub. Call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		topics:     make(map[Topic]map[*Client]struct{}),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's event loop. It must be called exactly once, in its own
// goroutine. It exits when ctx is cancelled (via server graceful shutdown).
//
//	go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			for _, topic := range client.topics {
				if h.topics[topic] == nil {
					h.topics[topic] = make(map[*Client]struct{})
				}
				h.topics[topic][client] = struct{}{}
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for _, topic := range client.topics {
					delete(h.topics[topic], client)
					if len(h.topics[topic]) == 0 {
						delete(h.topics, topic)
					}
				}
				// Signal the client's writePump to drain and exit.
				close(client.send)
			}
			h.mu.Unlock()

		case <-ctx.Done():
			// Close all connected clients on shutdown.
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
			}
			h.clients = make(map[*Client]struct{})
			h.topics = make(map[Topic]map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Publish sends msg to every client subscribed to topic. It is safe to call
// from any goroutine (cmd/supervisor's event relay loop, the housekeeper's
// sweep, an HTTP handler). Clients whose send buffer is full are
// disconnected to prevent backpressure from a slow consumer blocking other
// subscribers of the same topic.
//
// msg.Topic is set to topic.String() here so callers never have to keep the
// Topic value and its wire rendering in sync by hand.
func (h *Hub) Publish(topic Topic, msg Message) {
	msg.Topic = topic.String()

	h.mu.RLock()
	targets := h.topics[topic]
	// Copy the target set before releasing the lock so we don't hold it
	// while sending — channel sends can block if a buffer is full.
	var clients []*Client
	for c := range targets {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
			// Message queued successfully.
		default:
			// Client send buffer is full — it is too slow to keep up.
			// Disconnect it so it does not stall other subscribers.
			h.unregister <- c
		}
	}
}

// PublishFleetEvent publishes msg on AllFleet() and, when plcID identifies
// a specific reactor (i.e. the event isn't already fleet-wide, like
// fleet.snapshot), also on PlcTopic(plcID) — a console subscribed to one
// reactor sees its events without needing the firehose subscription.
func (h *Hub) PublishFleetEvent(plcID uint32, msg Message) {
	h.Publish(AllFleet(), msg)
	h.Publish(PlcTopic(plcID), msg)
}

// Subscribe registers client with the hub and adds it to all its topics.
// Called by the HTTP upgrade handler after the client is initialised.
func (h *Hub) Subscribe(client *Client) {
	h.register <- client
}

// Unsubscribe removes client from the hub and all its topic subscriptions.
// Called by the client's readPump when the connection closes.
func (h *Hub) Unsubscribe(client *Client) {
	h.unregister <- client
}

// ConnectedCount returns the current number of connected WebSocket clients.
// Intended for metrics and health endpoints.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients currently subscribed to
// topic.
func (h *Hub) SubscriberCount(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
