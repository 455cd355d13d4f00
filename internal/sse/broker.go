// Package sse implements a Server-Sent Events broker that tells renderers
// which list positions changed.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/jotlist/internal/notestore"
	"github.com/starford/jotlist/internal/selection"
)

// Event type names sent on the stream.
const (
	TypeInserted = "note.inserted"
	TypeRemoved  = "note.removed"
	TypeChanged  = "note.changed"
	TypeMoved    = "note.moved"
	TypeReloaded = "list.reloaded"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set. Public methods talk to
// it through channels, so no mutexes are required.
type Broker struct {
	keepalive time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new broker. keepalive is the interval between comment
// pings on idle streams; zero or negative disables pings.
func NewBroker(keepalive time.Duration) *Broker {
	b := &Broker{
		keepalive:     keepalive,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// historySize bounds the frames kept for Last-Event-ID replay. It must not
// exceed the client buffer so a replay never blocks.
const historySize = 64

type subscription struct {
	ch    chan []byte
	after string
}

type frame struct {
	id  string
	raw []byte
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]frame, 0, historySize)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		id := ulid.Make().String()
		raw := []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", id, event.Type, payload))

		if len(history) == historySize {
			history = append(history[:0], history[1:]...)
		}
		history = append(history, frame{id: id, raw: raw})

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			if sub.after != "" {
				// ULIDs sort by time, so newer frames compare greater.
				for _, f := range history {
					if f.id > sub.after {
						sub.ch <- f.raw
					}
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeAfter("")
}

// SubscribeAfter adds a new client and first replays the buffered events
// newer than lastID, the id of the last event the client saw. Events older
// than the buffer are lost; the client should reload the list.
func (b *Broker) SubscribeAfter(lastID string) chan []byte {
	ch := make(chan []byte, historySize)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, after: lastID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishMutation forwards a committed store mutation.
func (b *Broker) PublishMutation(m notestore.Mutation) {
	switch m.Kind {
	case notestore.KindInserted:
		b.Publish(Event{Type: TypeInserted, Data: map[string]int{"position": m.Position}})
	case notestore.KindRemoved:
		b.Publish(Event{Type: TypeRemoved, Data: map[string]int{"position": m.Position}})
	case notestore.KindChanged:
		b.Publish(Event{Type: TypeChanged, Data: map[string]int{"position": m.Position}})
	case notestore.KindMoved:
		b.Publish(Event{Type: TypeMoved, Data: map[string]int{"position": m.Position, "to": m.To}})
	}
}

// PublishSelection forwards a selection-mode change.
func (b *Broker) PublishSelection(ev selection.Event) {
	if ev.Kind == selection.EventChanged {
		b.Publish(Event{Type: string(ev.Kind), Data: map[string]any{"position": ev.Position, "selected": ev.Selected}})
		return
	}
	b.Publish(Event{Type: string(ev.Kind), Data: map[string]any{}})
}

// PublishReloaded tells renderers the document was rewritten outside this
// process and the whole list must be re-read.
func (b *Broker) PublishReloaded() {
	b.Publish(Event{Type: TypeReloaded, Data: map[string]any{}})
}

// ServeHTTP is the SSE endpoint handler (GET /events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeAfter(r.Header.Get("Last-Event-ID"))
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepalive > 0 {
		ticker := time.NewTicker(b.keepalive)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
