package state

import (
	"github.com/txn2/uartdbg/pkg/uarttui/events"
)

const DefaultMaxPerTick = 4096

// EventSource is the consumer side of the panel channel
type EventSource interface {
	TryRecv() (events.Event, bool)
}

// Drain applies queued events to reg without blocking. It stops when
// the source is empty or max events were applied; max <= 0 means no
// cap. It returns the number of events taken.
func Drain(src EventSource, reg *Registry, max int) int {
	n := 0
	for max <= 0 || n < max {
		e, ok := src.TryRecv()
		if !ok {
			break
		}
		reg.Apply(e)
		n++
	}
	return n
}
