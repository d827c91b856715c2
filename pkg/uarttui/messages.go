package uarttui

import (
	"time"

	"github.com/sirupsen/logrus"
)

// tickMsg drives the periodic drain of the panel channel
type tickMsg time.Time

// LogEntryMsg represents a log message to display
type LogEntryMsg struct {
	Level   logrus.Level
	Message string
	Time    time.Time
	Fields  logrus.Fields
}

// ShutdownMsg signals the TUI to shut down
type ShutdownMsg struct{}

// linkResultMsg reports the outcome of a connect or disconnect
type linkResultMsg struct {
	connected bool
	desc      string
	err       error
}

// flashDoneMsg reports the end of a firmware upload
type flashDoneMsg struct {
	path   string
	blocks int
	err    error
}
