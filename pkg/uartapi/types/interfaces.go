package types

import (
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlog"
	"github.com/txn2/uartdbg/pkg/uartrx"
	"github.com/txn2/uartdbg/pkg/uartscript"
	"github.com/txn2/uartdbg/pkg/uartsession"
	"github.com/txn2/uartdbg/pkg/uarttui/state"
)

// LinkController opens and closes the serial link
type LinkController interface {
	Connect(cfg uartcfg.Connection) error
	Disconnect()
	Info() uartsession.Info
	Buffer() *uartrx.Buffer
}

// Sender queues bytes for the device without waiting for the write
type Sender interface {
	Send(p []byte) error
}

// ScriptStarter queues a script run
type ScriptStarter interface {
	Start(s uartscript.Script) error
}

// PanelReader gives the last published panel state
type PanelReader interface {
	Snapshot() *state.Snapshot
}

// EventStats describes the panel event channel
type EventStats interface {
	Len() int
	Dropped() uint64
}

// LogReader returns the most recent log entries, oldest first
type LogReader interface {
	Last(n int) []uartlog.Entry
}

// PortLister enumerates serial ports
type PortLister func() ([]string, error)
