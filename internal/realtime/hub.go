package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"docgate/internal/logging"
)

// ErrHubClosed is returned by Publish after Shutdown.
var ErrHubClosed = errors.New("realtime hub closed")

// Hub tracks connected clients and fans events out to them. Only the Run loop
// mutates the client set; the mutex guards readers such as ClientCount.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	log        *logging.Logger
}

var _ Notifier = (*Hub)(nil)

// NewHub creates a hub. Call Run in its own goroutine before serving clients.
func NewHub(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        log,
	}
}

// Publish queues ev for every connected client.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run is the hub's event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Info("realtime client registered", logging.Fields{"remote_addr": c.addr, "clients": n})

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				c.writePump()
			}()
			go func() {
				defer h.wg.Done()
				c.readPump()
			}()

		case c := <-h.unregister:
			h.remove(c, "disconnected")

		case msg := <-h.broadcast:
			for _, c := range h.snapshot() {
				select {
				case c.send <- msg:
				default:
					h.remove(c, "send buffer full")
				}
			}
		}
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// remove drops c and closes its send channel, which makes writePump hang up.
func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(c.send)
	h.log.Info("realtime client removed", logging.Fields{"remote_addr": c.addr, "reason": reason, "clients": n})
}

func (h *Hub) closeAll() {
	clients := h.snapshot()
	for _, c := range clients {
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Warn("realtime close failed", logging.Fields{"remote_addr": c.addr, "error": err})
		}
	}
	h.mu.Lock()
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()
	h.log.Info("realtime hub closed connections", logging.Fields{"clients": len(clients)})
}

// Shutdown stops Run, closes every connection and waits for the client
// goroutines, giving up after timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
