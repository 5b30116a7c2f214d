package core

import (
	"sync"
	"time"
)

const defaultClientBuffer = 64

// Close reasons reported by Client.CloseReason.
const (
	CloseReasonLeft       = "left"
	CloseReasonSlow       = "slow consumer"
	CloseReasonSuperseded = "superseded by a newer connection"
	CloseReasonRoomClosed = "room closed"
)

// Client is one live connection as seen by the core layer.
// Only the owning room actor sends on the event channel; the transport drains Events.
type Client struct {
	ID     string
	UserID string
	Name   string
	Events <-chan *Event

	events chan *Event
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	reason    string
}

// NewClient constructs a client with a bounded outbound buffer.
func NewClient(id, userID, name string, buffer int) *Client {
	if name == "" {
		name = userID
	}
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	events := make(chan *Event, buffer)
	return &Client{
		ID:     id,
		UserID: userID,
		Name:   name,
		Events: events,
		events: events,
		done:   make(chan struct{}),
	}
}

// Done is closed once the client has been disconnected by either side.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the client as disconnected. Only the first call has an effect.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.done)
	})
}

// CloseReason returns why the client was closed, or "" while it is live.
func (c *Client) CloseReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// send enqueues an event. It never blocks longer than timeout and reports false when the
// client is gone or cannot keep up.
func (c *Client) send(ev *Event, timeout time.Duration) bool {
	if c.closed() {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	case <-timer.C:
		return false
	}
}
