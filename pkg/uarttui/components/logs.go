package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
)

const maxLogLines = 1000

// prefix is "[15:04:05][LEVEL] "
const logPrefixWidth = 18

// LogEntry is one line of the debug log, including script print output
type LogEntry struct {
	Time    time.Time
	Level   logrus.Level
	Message string
	Fields  logrus.Fields
}

// LogsModel is the scrollable debug log
type LogsModel struct {
	viewport viewport.Model
	logs     []LogEntry
	width    int
	height   int
	focused  bool
	ready    bool
}

func NewLogsModel() LogsModel {
	return LogsModel{
		logs: make([]LogEntry, 0, maxLogLines),
	}
}

// Update scrolls the log when focused
func (m LogsModel) Update(msg tea.Msg) (LogsModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}

	if km, ok := msg.(tea.KeyMsg); ok && m.focused {
		switch km.String() {
		case "j", "down":
			m.viewport.LineDown(1)
		case "k", "up":
			m.viewport.LineUp(1)
		case "g", "home":
			m.viewport.GotoTop()
		case "G", "end":
			m.viewport.GotoBottom()
		case "pgdown":
			m.viewport.HalfViewDown()
		case "pgup":
			m.viewport.HalfViewUp()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// AppendLog adds an entry and follows the tail unless the user scrolled up
func (m *LogsModel) AppendLog(entry LogEntry) {
	follow := !m.ready || m.viewport.AtBottom()

	m.logs = append(m.logs, entry)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}

	m.updateContent()
	if m.ready && follow {
		m.viewport.GotoBottom()
	}
}

// Len returns the number of retained entries
func (m *LogsModel) Len() int {
	return len(m.logs)
}

func (m *LogsModel) updateContent() {
	if !m.ready {
		return
	}

	lines := make([]string, 0, len(m.logs))
	for _, entry := range m.logs {
		lines = append(lines, m.formatLogEntry(entry))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

var levelStyles = map[logrus.Level]struct {
	label string
	style *lipgloss.Style
}{
	logrus.PanicLevel: {"PANIC", &styles.LogPanicStyle},
	logrus.FatalLevel: {"FATAL", &styles.LogFatalStyle},
	logrus.ErrorLevel: {"ERROR", &styles.LogErrorStyle},
	logrus.WarnLevel:  {"WARN", &styles.LogWarnStyle},
	logrus.InfoLevel:  {"INFO", &styles.LogInfoStyle},
	logrus.DebugLevel: {"DEBUG", &styles.LogDebugStyle},
	logrus.TraceLevel: {"TRACE", &styles.LogTraceStyle},
}

func (m *LogsModel) formatLogEntry(entry LogEntry) string {
	timestamp := styles.LogTimestampStyle.Render(entry.Time.Format("[15:04:05]"))

	ls, ok := levelStyles[entry.Level]
	if !ok {
		ls = levelStyles[logrus.InfoLevel]
	}
	level := ls.style.Render("[" + ls.label + "]")

	message := strings.TrimRight(entry.Message, "\r\n")
	if len(entry.Fields) > 0 {
		message += " " + formatFields(entry.Fields)
	}

	width := m.width - logPrefixWidth - 1
	if width < 20 {
		width = 20
	}
	return fmt.Sprintf("%s%s %s", timestamp, level, wrapText(message, width, logPrefixWidth))
}

// formatFields renders fields as sorted key=value pairs
func formatFields(fields logrus.Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

// wrapText breaks text at spaces where possible, indenting continuation lines
func wrapText(text string, width, indent int) string {
	runes := []rune(text)
	if width <= 0 || len(runes) <= width {
		return text
	}

	pad := strings.Repeat(" ", indent)
	var sb strings.Builder
	for len(runes) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
			sb.WriteString(pad)
		}
		if len(runes) <= width {
			sb.WriteString(string(runes))
			break
		}

		cut := width
		for i := width; i > width/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		sb.WriteString(string(runes[:cut]))

		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == ' ' {
			runes = runes[1:]
		}
	}
	return sb.String()
}

func (m LogsModel) View() string {
	if !m.ready {
		return ""
	}
	return m.viewport.View()
}

func (m *LogsModel) SetFocus(focused bool) {
	m.focused = focused
}

// SetSize creates the viewport on first use
func (m *LogsModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	if !m.ready {
		m.viewport = viewport.New(width, height)
		m.viewport.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height
	}
	m.updateContent()
}

// Clear removes all log entries
func (m *LogsModel) Clear() {
	m.logs = m.logs[:0]
	m.updateContent()
}
