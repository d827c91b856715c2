package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
)

var helpItems = []struct {
	key  string
	desc string
}{
	{"Anywhere", ""},
	{"ctrl+o", "Connect / disconnect"},
	{"ctrl+t", "Toggle debug / terminal mode"},
	{"ctrl+l", "Clear received data"},
	{"ctrl+r", "Load and run a script"},
	{"ctrl+p", "Program device with a file"},
	{"F1", "Toggle help"},
	{"ctrl+c", "Quit"},
	{"", ""},
	{"Debug mode", ""},
	{"Enter", "Send the transmit line"},
	{"Tab", "Switch focus"},
	{"j / k", "Scroll or select"},
	{"J / K", "Scroll panel text"},
	{"x", "Close selected panel"},
	{"c", "Connect / disconnect"},
	{"?", "Toggle help"},
	{"q", "Quit"},
	{"", ""},
	{"Terminal mode", ""},
	{"keys", "Sent to the device as typed"},
	{"Enter", "Sends CR LF"},
	{"Tab", "Sends TAB"},
}

// HelpModel displays keyboard shortcuts
type HelpModel struct {
	visible bool
	width   int
	height  int
}

func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Update closes the modal on ?, q, esc or F1
func (m *HelpModel) Update(msg tea.Msg) (HelpModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if m.visible {
			switch msg.String() {
			case "?", "q", "esc", "f1":
				m.visible = false
			}
		}
	}
	return *m, nil
}

func (m *HelpModel) Toggle() {
	m.visible = !m.visible
}

func (m *HelpModel) IsVisible() bool {
	return m.visible
}

func (m *HelpModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the modal centered in the window
func (m *HelpModel) View() string {
	if !m.visible {
		return ""
	}

	lines := make([]string, 0, len(helpItems))
	for _, item := range helpItems {
		switch {
		case item.key == "" && item.desc == "":
			lines = append(lines, "")
		case item.desc == "":
			lines = append(lines, styles.HelpTitleStyle.Render(item.key))
		default:
			lines = append(lines, styles.HelpKeyStyle.Render(item.key)+styles.HelpDescStyle.Render(item.desc))
		}
	}
	modal := styles.HelpModalStyle.Render(strings.Join(lines, "\n"))

	return lipgloss.Place(max(m.width, lipgloss.Width(modal)), max(m.height, lipgloss.Height(modal)),
		lipgloss.Center, lipgloss.Center, modal)
}
