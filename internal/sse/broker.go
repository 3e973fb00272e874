// Package sse implements a Server-Sent Events broker that mirrors the
// simulated device to attached browsers.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	clientBuffer = 64
	keepAlive    = 15 * time.Second
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	n    int
	full bool
}

// Broker fans events out to connected clients. One goroutine owns the
// client set and the screen throttle; everything else talks to it through
// the inbound channels.
type Broker struct {
	screenMin time.Duration

	join   chan chan []byte
	leave  chan chan []byte
	events chan Event
	frames chan frame
	count  chan chan int

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewBroker creates a broker that emits at most one partial screen.updated
// event per screenThrottle.
func NewBroker(screenThrottle time.Duration) *Broker {
	if screenThrottle <= 0 {
		screenThrottle = 250 * time.Millisecond
	}
	b := &Broker{
		screenMin: screenThrottle,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		events:    make(chan Event, 256),
		frames:    make(chan frame, 256),
		count:     make(chan chan int),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go b.loop()
	return b
}

func encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload)), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastScreen time.Time

	send := func(ev Event) {
		msg, err := encode(ev)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default: // slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.done:
			for ch := range clients {
				close(ch)
			}
			return
		case ch := <-b.join:
			clients[ch] = struct{}{}
		case ch := <-b.leave:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}
		case ev := <-b.events:
			send(ev)
		case f := <-b.frames:
			now := time.Now()
			if !f.full && now.Sub(lastScreen) < b.screenMin {
				continue
			}
			lastScreen = now
			send(Event{Type: "screen.updated", Data: map[string]any{"frame": f.n, "full": f.full}})
		case reply := <-b.count:
			reply <- len(clients)
		}
	}
}

// deliver hands v to the loop unless the broker has stopped.
func deliver[T any](b *Broker, ch chan T, v T) bool {
	select {
	case <-b.stopped:
		return false
	default:
	}
	select {
	case ch <- v:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes every client channel. It is idempotent.
func (b *Broker) Close() {
	b.stopOnce.Do(func() { close(b.done) })
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed by cancel or
// by Close; cancel is safe to call more than once.
func (b *Broker) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, clientBuffer)
	if !deliver(b, b.join, ch) {
		close(ch)
		return ch, func() {}
	}
	var once sync.Once
	return ch, func() { once.Do(func() { deliver(b, b.leave, ch) }) }
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	reply := make(chan int, 1)
	if !deliver(b, b.count, reply) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(ev Event) { deliver(b, b.events, ev) }

// PublishState broadcasts a state.updated event carrying v.
func (b *Broker) PublishState(v any) { b.Publish(Event{Type: "state.updated", Data: v}) }

// PublishNoteEvent broadcasts note.<kind> for a store mutation. Unknown
// kinds are ignored.
func (b *Broker) PublishNoteEvent(kind, filename string) {
	switch kind {
	case "created", "saved", "renamed", "deleted":
		b.Publish(Event{Type: "note." + kind, Data: map[string]string{"filename": filename}})
	}
}

// PublishFrame announces that the panel received frame number n. Partial
// refreshes are throttled; full refreshes always go out.
func (b *Broker) PublishFrame(n int, full bool) { deliver(b, b.frames, frame{n: n, full: full}) }

// ServeHTTP streams events to one client (GET /api/events) until it
// disconnects. Idle streams get a comment line every 15s so proxies keep
// them open.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	msgs, cancel := b.Subscribe()
	defer cancel()

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		var msg []byte
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			msg = []byte(": ping\n\n")
		case m, ok := <-msgs:
			if !ok {
				return
			}
			msg = m
		}
		if _, err := w.Write(msg); err != nil {
			return
		}
		flusher.Flush()
	}
}
