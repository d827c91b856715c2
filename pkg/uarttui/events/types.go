package events

import (
	"time"
)

// PanelID identifies a script created panel. IDs are never reused.
type PanelID uint64

// EventType represents the type of panel event
type EventType int

const (
	// Panel lifecycle events
	PanelCreate EventType = iota
	PanelAppend
	PanelClose

	// Link status events
	LinkLost
	LinkUp
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case PanelCreate:
		return "create"
	case PanelAppend:
		return "append"
	case PanelClose:
		return "close"
	case LinkLost:
		return "link_lost"
	case LinkUp:
		return "link_up"
	default:
		return "unknown"
	}
}

// Event is one message on the panel channel
type Event struct {
	Type      EventType
	Timestamp time.Time

	ID   PanelID
	Name string // PanelCreate
	Text string // PanelAppend

	Err error // LinkLost
}

func NewCreateEvent(id PanelID, name string) Event {
	return Event{Type: PanelCreate, Timestamp: time.Now(), ID: id, Name: name}
}

func NewAppendEvent(id PanelID, text string) Event {
	return Event{Type: PanelAppend, Timestamp: time.Now(), ID: id, Text: text}
}

func NewCloseEvent(id PanelID) Event {
	return Event{Type: PanelClose, Timestamp: time.Now(), ID: id}
}

func NewLinkLostEvent(err error) Event {
	return Event{Type: LinkLost, Timestamp: time.Now(), Err: err}
}

// NewLinkUpEvent clears an earlier LinkLost once a connect succeeds
func NewLinkUpEvent() Event {
	return Event{Type: LinkUp, Timestamp: time.Now()}
}
