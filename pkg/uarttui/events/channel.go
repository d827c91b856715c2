package events

import (
	"sync"
	"sync/atomic"

	"github.com/txn2/uartdbg/pkg/uartmetrics"
)

const DefaultChannelSize = 4096

// Channel carries panel events from any number of producers to the
// single presentation consumer. It holds at most its capacity; once
// full, the oldest queued event is discarded to make room.
// Events from one producer keep their order.
type Channel struct {
	mu    sync.Mutex
	buf   []Event
	head  int
	count int

	dropped atomic.Uint64
}

// NewChannel creates a channel holding up to size events
func NewChannel(size int) *Channel {
	if size <= 0 {
		size = DefaultChannelSize
	}
	return &Channel{buf: make([]Event, size)}
}

// Publish queues e without blocking
func (c *Channel) Publish(e Event) {
	c.mu.Lock()
	if c.count == len(c.buf) {
		c.buf[c.head] = Event{}
		c.head = (c.head + 1) % len(c.buf)
		c.count--
		c.dropped.Add(1)
		uartmetrics.RecordPanelEventDropped()
	}
	c.buf[(c.head+c.count)%len(c.buf)] = e
	c.count++
	c.mu.Unlock()

	uartmetrics.RecordPanelEvent(e.Type.String())
}

// TryRecv pops the oldest event, if any
func (c *Channel) TryRecv() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count == 0 {
		return Event{}, false
	}
	e := c.buf[c.head]
	c.buf[c.head] = Event{}
	c.head = (c.head + 1) % len(c.buf)
	c.count--
	return e, true
}

// Len is the number of queued events
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *Channel) Cap() int {
	return len(c.buf)
}

// Dropped counts events discarded because the channel was full
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}
