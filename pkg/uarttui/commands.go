package uarttui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartsession"
	"github.com/txn2/uartdbg/pkg/uarttx"
)

// tickCmd schedules the next drain
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ListenLogs creates a command that listens for log entries
func ListenLogs(logCh <-chan LogEntryMsg) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-logCh
		if !ok {
			return nil
		}
		return entry
	}
}

// ListenShutdown creates a command that listens for shutdown signal
func ListenShutdown(stopCh <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-stopCh
		return ShutdownMsg{}
	}
}

// SendLog creates a log entry message
func SendLog(level logrus.Level, message string) tea.Cmd {
	return func() tea.Msg {
		return LogEntryMsg{
			Level:   level,
			Message: message,
			Time:    time.Now(),
		}
	}
}

// connectCmd opens the device off the UI goroutine; Connect waits for
// a previous reader to exit.
func connectCmd(s *uartsession.Session, conn uartcfg.Connection) tea.Cmd {
	return func() tea.Msg {
		err := s.Connect(conn)
		return linkResultMsg{connected: err == nil, desc: conn.String(), err: err}
	}
}

func disconnectCmd(s *uartsession.Session) tea.Cmd {
	return func() tea.Msg {
		s.Disconnect()
		return linkResultMsg{connected: false}
	}
}

func flashCmd(ctx context.Context, u *uarttx.Uploader, path string) tea.Cmd {
	return func() tea.Msg {
		n, err := u.Upload(ctx, path)
		return flashDoneMsg{path: path, blocks: n, err: err}
	}
}
