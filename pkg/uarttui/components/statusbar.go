package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
)

// Stats is what the status bar shows
type Stats struct {
	Status        string // Connected, Disconnected or Lost
	LinkError     string
	RxBytes       uint64
	TxBytes       uint64
	RxRate        float64 // bytes per second
	TxRate        float64
	Panels        int
	DroppedEvents uint64
	Flashing      bool
	FlashBlocks   int
}

// StatusBarModel displays link and panel statistics
type StatusBarModel struct {
	stats Stats
	width int
}

// NewStatusBarModel creates a new status bar model
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{stats: Stats{Status: "Disconnected"}}
}

// Update handles messages for the status bar
func (m *StatusBarModel) Update(msg tea.Msg) (StatusBarModel, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
	}
	return *m, nil
}

func (m *StatusBarModel) UpdateStats(stats Stats) {
	m.stats = stats
}

// View renders the status bar
func (m *StatusBarModel) View() string {
	s := m.stats

	var status string
	switch s.Status {
	case "Connected":
		status = styles.StatusConnectedStyle.Render(s.Status)
	case "Lost":
		status = styles.StatusLostStyle.Render("Lost")
		if s.LinkError != "" {
			status += styles.StatusBarErrorStyle.Render(": " + s.LinkError)
		}
	default:
		status = styles.StatusDisconnectedStyle.Render(s.Status)
	}

	left := fmt.Sprintf(" %s | RX: %s%s | TX: %s%s | Panels: %d",
		status, humanize.Bytes(s.RxBytes), rate(s.RxRate), humanize.Bytes(s.TxBytes), rate(s.TxRate), s.Panels)
	if s.DroppedEvents > 0 {
		left += " | " + styles.StatusBarErrorStyle.Render(fmt.Sprintf("Dropped: %d", s.DroppedEvents))
	}
	if s.Flashing {
		left += fmt.Sprintf(" | Programming: %d blocks", s.FlashBlocks)
	}

	help := styles.StatusBarHelpStyle.Render("Press ? for help")

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if padding < 1 {
		padding = 1
	}
	spacer := lipgloss.NewStyle().Width(padding).Render("")

	return styles.StatusBarStyle.Render(left + spacer + help + " ")
}

func rate(bps float64) string {
	if bps < 1 {
		return ""
	}
	return " (" + humanize.Bytes(uint64(bps)) + "/s)"
}

func (m *StatusBarModel) SetWidth(width int) {
	m.width = width
}
