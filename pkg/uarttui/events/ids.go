package events

import "sync/atomic"

// IDAllocator hands out panel ids starting at 0. It is safe for
// concurrent use without further locking.
type IDAllocator struct {
	next atomic.Uint64
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh id, strictly greater than every earlier one
func (a *IDAllocator) Next() PanelID {
	return PanelID(a.next.Add(1) - 1)
}
