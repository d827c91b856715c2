package state

import (
	"time"

	"github.com/txn2/uartdbg/pkg/uarttui/events"
)

// PanelSnapshot is an immutable copy of one panel
type PanelSnapshot struct {
	ID      events.PanelID
	Name    string
	Text    string
	Created time.Time
	Updated time.Time
}

// Snapshot is the registry state as of one presentation tick
type Snapshot struct {
	Panels     []PanelSnapshot
	LinkLost   bool
	LinkError  string
	LinkLostAt time.Time
	Applied    uint64
	Ignored    uint64
	Published  time.Time
}

// Find returns the panel with the given id
func (s *Snapshot) Find(id events.PanelID) (PanelSnapshot, bool) {
	for _, p := range s.Panels {
		if p.ID == id {
			return p, true
		}
	}
	return PanelSnapshot{}, false
}
