package uartscript

import (
	"github.com/txn2/uartdbg/pkg/uarttui/events"
)

// Host is everything a script can do outside its interpreter
type Host interface {
	// CreatePanel allocates an id, announces the panel and returns the id
	CreatePanel(name string) events.PanelID
	// AppendPanel announces text for a panel. Unknown ids are not
	// checked here.
	AppendPanel(id events.PanelID, text string)
}

// ChannelHost publishes panel events onto a Channel
type ChannelHost struct {
	ids *events.IDAllocator
	ch  *events.Channel
}

func NewChannelHost(ids *events.IDAllocator, ch *events.Channel) *ChannelHost {
	return &ChannelHost{ids: ids, ch: ch}
}

func (h *ChannelHost) CreatePanel(name string) events.PanelID {
	id := h.ids.Next()
	h.ch.Publish(events.NewCreateEvent(id, name))
	return id
}

func (h *ChannelHost) AppendPanel(id events.PanelID, text string) {
	h.ch.Publish(events.NewAppendEvent(id, text))
}

var _ Host = (*ChannelHost)(nil)
