// Package hub fans chart updates and vote pulses out to every open page.
//
// Nothing a caller does here waits on a page. Every client has its own send
// queue drained by its own writer goroutine; a client whose queue is full is
// dropped. Chart frames are coalesced so only the latest one is delivered.
package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/maaaruch/memory-tribunal/internal/chart"
	"github.com/maaaruch/memory-tribunal/internal/domain"
)

const (
	sendQueueSize = 16
	broadcastSize = 64
)

type Message struct {
	Type   string        `json:"type"`
	Chart  *chart.Frame  `json:"chart,omitempty"`
	Option domain.Option `json:"option,omitempty"`
}

type registration struct {
	client Client
	hello  func() []byte
}

type peer struct {
	client Client
	send   chan []byte
}

// Hub owns the set of clients from a single goroutine started by Run.
type Hub struct {
	peers      map[Client]*peer
	broadcast  chan []byte
	register   chan registration
	unregister chan Client
	done       chan struct{}

	chartMu    sync.Mutex
	chartMsg   []byte
	chartReady chan struct{}
}

func New() *Hub {
	return &Hub{
		peers:      make(map[Client]*peer),
		broadcast:  make(chan []byte, broadcastSize),
		register:   make(chan registration),
		unregister: make(chan Client),
		done:       make(chan struct{}),
		chartReady: make(chan struct{}, 1),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.peers {
			h.drop(client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case r := <-h.register:
			p := &peer{client: r.client, send: make(chan []byte, sendQueueSize)}
			if r.hello != nil {
				if msg := r.hello(); msg != nil {
					p.send <- msg
				}
			}
			h.peers[r.client] = p
			go h.writePump(p)

		case client := <-h.unregister:
			h.drop(client)

		case <-h.chartReady:
			h.chartMu.Lock()
			msg := h.chartMsg
			h.chartMu.Unlock()
			h.deliver(msg)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) deliver(message []byte) {
	for client, p := range h.peers {
		select {
		case p.send <- message:
		default:
			log.Println("hub: client too slow, dropping")
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client Client) {
	if p, ok := h.peers[client]; ok {
		delete(h.peers, client)
		close(p.send)
		// unblocks a writer stuck on this client
		p.client.Close()
	}
}

// writePump is the only writer of p.client. It closes the client once the
// hub closes p.send.
func (h *Hub) writePump(p *peer) {
	defer p.client.Close()

	for msg := range p.send {
		if err := p.client.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Println("hub write:", err)
			h.Unregister(p.client)
			for range p.send {
			}
			return
		}
	}
}

// Register adds client. hello, if set, is evaluated on the hub goroutine
// and queued before any broadcast reaches the client.
func (h *Hub) Register(client Client, hello func() []byte) {
	select {
	case h.register <- registration{client: client, hello: hello}:
	case <-h.done:
		client.Close()
	}
}

func (h *Hub) Unregister(client Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every client. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("hub: broadcast queue full, dropping message")
	}
}

// Draw implements chart.Target. Frames not yet delivered are replaced by
// newer ones.
func (h *Hub) Draw(f chart.Frame) error {
	b, err := ChartMessage(f)
	if err != nil {
		return err
	}

	h.chartMu.Lock()
	h.chartMsg = b
	h.chartMu.Unlock()

	select {
	case h.chartReady <- struct{}{}:
	default:
	}
	return nil
}

// Voted sends a pulse so pages can flash the button that was used.
func (h *Hub) Voted(_ context.Context, o domain.Option, _ domain.Tally) {
	b, err := json.Marshal(Message{Type: "pulse", Option: o})
	if err != nil {
		log.Println("hub pulse:", err)
		return
	}
	h.Broadcast(b)
}

func ChartMessage(f chart.Frame) ([]byte, error) {
	return json.Marshal(Message{Type: "chart", Chart: &f})
}
