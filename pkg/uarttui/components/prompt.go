package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
)

// PromptKind says what a submitted prompt value is used for
type PromptKind int

const (
	PromptNone PromptKind = iota
	PromptPort
	PromptScript
	PromptFirmware
)

var promptLabels = map[PromptKind]string{
	PromptPort:     "Serial port",
	PromptScript:   "Load script",
	PromptFirmware: "Program device with",
}

// PromptSubmitMsg carries an accepted prompt value
type PromptSubmitMsg struct {
	Kind  PromptKind
	Value string
}

// PromptModel is a one line modal input used to pick a port or a file
type PromptModel struct {
	input textinput.Model
	kind  PromptKind
	width int
}

func NewPromptModel() PromptModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4096
	return PromptModel{input: ti}
}

// Show opens the prompt with an initial value
func (m *PromptModel) Show(kind PromptKind, initial string) tea.Cmd {
	m.kind = kind
	m.input.SetValue(initial)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *PromptModel) Hide() {
	m.kind = PromptNone
	m.input.Blur()
	m.input.Reset()
}

func (m *PromptModel) IsVisible() bool {
	return m.kind != PromptNone
}

func (m *PromptModel) Kind() PromptKind {
	return m.kind
}

// Update edits the value; enter submits a non-empty value and esc cancels
func (m PromptModel) Update(msg tea.Msg) (PromptModel, tea.Cmd) {
	if m.kind == PromptNone {
		return m, nil
	}
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.Type {
		case tea.KeyEsc:
			m.Hide()
			return m, nil
		case tea.KeyEnter:
			value := strings.TrimSpace(m.input.Value())
			kind := m.kind
			m.Hide()
			if value == "" {
				return m, nil
			}
			return m, func() tea.Msg { return PromptSubmitMsg{Kind: kind, Value: value} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *PromptModel) SetWidth(width int) {
	m.width = width
	m.input.Width = max(width-len(promptLabels[PromptFirmware])-12, 10)
}

func (m PromptModel) View() string {
	if m.kind == PromptNone {
		return ""
	}
	label := styles.PromptLabelStyle.Render(promptLabels[m.kind] + ":")
	hint := styles.StatusBarHelpStyle.Render("  [enter] ok  [esc] cancel")
	return styles.PromptBorderStyle.Render(label + " " + m.input.View() + hint)
}
