package socketio

import (
	"sync"
)

// ClientLimiter caps the number of concurrently connected clients. When a
// new connection exceeds the cap, the oldest connection is evicted rather
// than the new one refused, so a stale browser tab never locks out a fresh
// one.
type ClientLimiter struct {
	mu  sync.Mutex
	max int
	// client IDs in connection order, oldest first
	order []string
}

// NewClientLimiter creates a limiter allowing up to max concurrent clients.
func NewClientLimiter(max int) *ClientLimiter {
	return &ClientLimiter{max: max}
}

// Add registers a new connection and returns the ID of the client evicted to
// make room, or "" when there was room.
func (cl *ClientLimiter) Add(clientID string) (evictedID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for _, id := range cl.order {
		if id == clientID {
			return ""
		}
	}

	cl.order = append(cl.order, clientID)
	if len(cl.order) > cl.max {
		evictedID = cl.order[0]
		cl.order = cl.order[1:]
	}
	return evictedID
}

// Remove unregisters a connection when a client disconnects.
func (cl *ClientLimiter) Remove(clientID string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	for i, id := range cl.order {
		if id == clientID {
			cl.order = append(cl.order[:i], cl.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of tracked clients.
func (cl *ClientLimiter) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.order)
}
