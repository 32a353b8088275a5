package notify

import (
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Client is one connected notification subscriber.
type Client struct {
	mu          sync.Mutex
	ID          string
	Owner       string
	ConnectedAt time.Time
	LastSeenAt  time.Time
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
}

// enqueue hands data to the client's writer without blocking. It
// reports false when the buffer is full or the client is gone.
func (c *Client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// wants reports whether messages for owner are delivered to c. A
// client subscribed without an owner receives everything.
func (c *Client) wants(owner string) bool {
	return c.Owner == "" || c.Owner == owner
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.LastSeenAt = now
	c.mu.Unlock()
}

func (c *Client) lastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LastSeenAt
}

// ClientStore is a concurrent-safe registry of connected clients.
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientStore creates an empty ClientStore.
func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]*Client)}
}

// AddIfUnder registers c unless the store already holds limit clients.
// A limit of zero or less means unbounded.
func (s *ClientStore) AddIfUnder(c *Client, limit int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 && len(s.clients) >= limit {
		return false
	}
	s.clients[c.ID] = c
	return true
}

// Remove deletes a client from the store.
func (s *ClientStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

// Len returns the number of connected clients.
func (s *ClientStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ForOwner returns the clients subscribed to owner's messages.
func (s *ClientStore) ForOwner(owner string) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Client
	for _, c := range s.clients {
		if c.wants(owner) {
			out = append(out, c)
		}
	}
	return out
}

// Range iterates over all clients until fn returns false.
func (s *ClientStore) Range(fn func(id string, c *Client) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, c := range s.clients {
		if !fn(id, c) {
			return
		}
	}
}
