// Package engine fans decoded powerbase events out to consumers and hosts
// the decode-and-dispatch step between the transport and the hub.
package engine

import "context"

// Hub broadcasts events to any number of subscribers. Slow subscribers
// drop events rather than stalling the pipeline.
type Hub struct {
	broadcast  chan Event
	register   chan chan Event
	unregister chan chan Event
	clients    map[chan Event]struct{}
	clientBuf  int
}

type Option func(*Hub)

func WithBroadcastBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.broadcast = make(chan Event, size)
		}
	}
}

func WithClientBuffer(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.clientBuf = size
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		broadcast:  make(chan Event, 256),
		register:   make(chan chan Event),
		unregister: make(chan chan Event),
		clients:    make(map[chan Event]struct{}),
		clientBuf:  100,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for ch := range h.clients {
				close(ch)
			}
			return
		case ch := <-h.register:
			h.clients[ch] = struct{}{}
		case ch := <-h.unregister:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case event := <-h.broadcast:
			for ch := range h.clients {
				select {
				case ch <- event:
				default:
				}
			}
		}
	}
}

func (h *Hub) Subscribe() chan Event {
	return h.SubscribeWithBuffer(h.clientBuf)
}

func (h *Hub) SubscribeWithBuffer(size int) chan Event {
	if size <= 0 {
		size = h.clientBuf
	}
	ch := make(chan Event, size)
	h.register <- ch
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.unregister <- ch
}

func (h *Hub) Publish(event Event) {
	h.broadcast <- event
}
