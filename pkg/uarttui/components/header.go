package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
)

// HeaderModel displays the title, the link and the display mode
type HeaderModel struct {
	version string
	width   int
	link    string
	mode    string
}

// NewHeaderModel creates a new header model
func NewHeaderModel(version string) HeaderModel {
	return HeaderModel{version: version}
}

// Update handles messages for the header
func (m *HeaderModel) Update(msg tea.Msg) (HeaderModel, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = wsm.Width
	}
	return *m, nil
}

// View renders the header
func (m *HeaderModel) View() string {
	title := styles.HeaderTitleStyle.Render("uartdbg")
	version := styles.HeaderVersionStyle.Render(" v" + m.version)

	left := fmt.Sprintf(" %s%s", title, version)
	if m.link != "" {
		left += " | " + styles.HeaderPortStyle.Render(m.link)
	}

	right := styles.HeaderHintStyle.Render(fmt.Sprintf("[%s] [ctrl+t: mode] [?: help]", m.mode))

	spacing := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 1
	if spacing < 1 {
		spacing = 1
	}
	return left + strings.Repeat(" ", spacing) + right
}

func (m *HeaderModel) SetWidth(width int) {
	m.width = width
}

// SetLink sets the connection description, empty when disconnected
func (m *HeaderModel) SetLink(link string) {
	m.link = link
}

func (m *HeaderModel) SetMode(mode string) {
	m.mode = mode
}
