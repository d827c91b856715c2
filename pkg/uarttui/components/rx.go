package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
)

// HexRowBytes is the number of bytes per hex view row
const HexRowBytes = 8

// Mode selects how received data is shown and how keys are handled
type Mode int

const (
	ModeDebug Mode = iota
	ModeTerminal
)

func (m Mode) String() string {
	if m == ModeTerminal {
		return "terminal"
	}
	return "debug"
}

// ParseMode maps a config value to a Mode, defaulting to debug
func ParseMode(s string) Mode {
	if strings.EqualFold(s, "terminal") {
		return ModeTerminal
	}
	return ModeDebug
}

// FormatHex renders raw bytes as rows of HexRowBytes bytes: the upper
// case hex pairs padded to a fixed column, then the printable ASCII with
// every non-graphic byte shown as '.'.
func FormatHex(raw []byte) string {
	var sb strings.Builder
	var hexCol strings.Builder
	for off := 0; off < len(raw); off += HexRowBytes {
		end := off + HexRowBytes
		if end > len(raw) {
			end = len(raw)
		}
		row := raw[off:end]

		hexCol.Reset()
		for _, b := range row {
			fmt.Fprintf(&hexCol, "%02X ", b)
		}

		if off > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%-24s  %s", hexCol.String(), printable(row))
	}
	return sb.String()
}

func printable(row []byte) string {
	out := make([]byte, len(row))
	for i, b := range row {
		if b > 0x20 && b < 0x7F {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// RxModel shows the receive buffer. Debug mode splits it into an ASCII
// and a hex view, terminal mode shows only the text.
type RxModel struct {
	text    viewport.Model
	hex     viewport.Model
	mode    Mode
	width   int
	height  int
	focused bool
	ready   bool

	gen      uint64
	content  string
	raw      []byte
	hexStale bool
}

func NewRxModel(mode Mode) RxModel {
	return RxModel{mode: mode}
}

// SetData replaces the shown content when the buffer generation moved
func (m *RxModel) SetData(text string, raw []byte, gen uint64) bool {
	if gen == m.gen && m.ready {
		return false
	}
	m.gen = gen
	m.content = text
	m.raw = raw
	m.hexStale = true
	m.refresh()
	return true
}

// Generation returns the buffer generation currently shown
func (m *RxModel) Generation() uint64 {
	return m.gen
}

// RebuildHex re-renders the hex view. It is deferred on resize.
func (m *RxModel) RebuildHex() {
	m.hexStale = true
	m.refresh()
}

func (m *RxModel) refresh() {
	if !m.ready {
		return
	}

	style := styles.RxTextStyle
	if m.mode == ModeTerminal {
		style = styles.TerminalTextStyle
	}
	follow := m.text.AtBottom()
	m.text.SetContent(style.Render(strings.ReplaceAll(m.content, "\r", "")))
	if follow {
		m.text.GotoBottom()
	}

	if m.mode == ModeDebug && m.hexStale {
		follow = m.hex.AtBottom()
		m.hex.SetContent(styles.HexBytesStyle.Render(FormatHex(m.raw)))
		if follow {
			m.hex.GotoBottom()
		}
		m.hexStale = false
	}
}

func (m *RxModel) SetMode(mode Mode) {
	if m.mode == mode {
		return
	}
	m.mode = mode
	m.hexStale = true
	m.layout()
	m.refresh()
}

func (m *RxModel) Mode() Mode {
	return m.mode
}

func (m *RxModel) SetFocus(focused bool) {
	m.focused = focused
}

// SetSize lays out the views; in debug mode the text view takes the
// left half and the hex view the right half.
func (m *RxModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if !m.ready {
		m.text = viewport.New(width, height)
		m.hex = viewport.New(width, height)
		m.text.MouseWheelEnabled = true
		m.hex.MouseWheelEnabled = true
		m.ready = true
	}
	m.layout()
	m.refresh()
}

func (m *RxModel) layout() {
	if !m.ready {
		return
	}
	if m.mode == ModeTerminal {
		m.text.Width = m.width
		m.text.Height = m.height
		return
	}
	left := m.width / 2
	m.text.Width = left
	m.text.Height = m.height
	m.hex.Width = m.width - left - 1
	m.hex.Height = m.height
}

// Update scrolls both views together when focused
func (m RxModel) Update(msg tea.Msg) (RxModel, tea.Cmd) {
	if !m.ready || !m.focused {
		return m, nil
	}
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	for _, vp := range []*viewport.Model{&m.text, &m.hex} {
		switch km.String() {
		case "j", "down":
			vp.LineDown(1)
		case "k", "up":
			vp.LineUp(1)
		case "g", "home":
			vp.GotoTop()
		case "G", "end":
			vp.GotoBottom()
		case "pgdown":
			vp.HalfViewDown()
		case "pgup":
			vp.HalfViewUp()
		}
	}
	return m, nil
}

func (m RxModel) View() string {
	if !m.ready {
		return ""
	}
	if m.mode == ModeTerminal {
		return m.text.View()
	}
	sep := styles.HexOffsetStyle.Render(strings.TrimRight(strings.Repeat("│\n", m.height), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, m.text.View(), sep, m.hex.View())
}
