package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/evertras/bubble-table/table"
	"github.com/txn2/uartdbg/pkg/uarttui/events"
	"github.com/txn2/uartdbg/pkg/uarttui/state"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
)

const (
	colKeyID      = "id"
	colKeyName    = "name"
	colKeySize    = "size"
	colKeyUpdated = "updated"
)

// listWidth is the width of the panel list, the text view gets the rest
const listWidth = 46

// ClosePanelMsg asks the root model to close a panel
type ClosePanelMsg struct {
	ID events.PanelID
}

// PanelsModel lists the script panels and shows the highlighted one
type PanelsModel struct {
	table   table.Model
	text    viewport.Model
	panels  []state.PanelSnapshot
	shownID events.PanelID
	shown   string
	width   int
	height  int
	focused bool
	ready   bool
}

func NewPanelsModel() PanelsModel {
	columns := []table.Column{
		table.NewColumn(colKeyID, "ID", 6),
		table.NewFlexColumn(colKeyName, "Name", 1),
		table.NewColumn(colKeySize, "Size", 9),
		table.NewColumn(colKeyUpdated, "Updated", 9),
	}

	return PanelsModel{
		table: table.New(columns).
			WithBaseStyle(lipgloss.NewStyle().Padding(0, 1)).
			BorderRounded().
			HeaderStyle(styles.TableHeaderStyle).
			HighlightStyle(styles.TableSelectedStyle).
			WithPageSize(5).
			WithFooterVisibility(false),
	}
}

// SetPanels replaces the listed panels, keeping the highlighted panel
// selected when it still exists.
func (m *PanelsModel) SetPanels(panels []state.PanelSnapshot) {
	selected, hadSelection := m.SelectedID()
	m.panels = panels

	rows := make([]table.Row, 0, len(panels))
	highlight := 0
	for i, p := range panels {
		if hadSelection && p.ID == selected {
			highlight = i
		}
		rows = append(rows, table.NewRow(table.RowData{
			colKeyID:      p.ID,
			colKeyName:    p.Name,
			colKeySize:    humanize.Bytes(uint64(len(p.Text))),
			colKeyUpdated: p.Updated.Format("15:04:05"),
		}))
	}
	m.table = m.table.WithRows(rows)
	if len(rows) > 0 {
		m.table = m.table.WithHighlightedRow(highlight)
	}
	m.showSelected()
}

// SelectedID returns the ID of the highlighted panel
func (m *PanelsModel) SelectedID() (events.PanelID, bool) {
	row := m.table.HighlightedRow()
	if row.Data == nil {
		return 0, false
	}
	id, ok := row.Data[colKeyID].(events.PanelID)
	return id, ok
}

func (m *PanelsModel) selected() (state.PanelSnapshot, bool) {
	id, ok := m.SelectedID()
	if !ok {
		return state.PanelSnapshot{}, false
	}
	for _, p := range m.panels {
		if p.ID == id {
			return p, true
		}
	}
	return state.PanelSnapshot{}, false
}

// showSelected loads the highlighted panel text into the viewport,
// following the tail while the same panel keeps growing
func (m *PanelsModel) showSelected() {
	if !m.ready {
		return
	}
	p, ok := m.selected()
	if !ok {
		m.shownID, m.shown = 0, ""
		m.text.SetContent("")
		return
	}
	if p.ID == m.shownID && p.Text == m.shown {
		return
	}

	follow := p.ID != m.shownID || m.text.AtBottom()
	m.shownID, m.shown = p.ID, p.Text
	m.text.SetContent(styles.PanelTextStyle.Render(strings.ReplaceAll(p.Text, "\r", "")))
	if follow {
		m.text.GotoBottom()
	}
}

// Update moves the selection; "x" requests closing the selected panel
func (m PanelsModel) Update(msg tea.Msg) (PanelsModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok || !m.focused {
		return m, nil
	}

	switch km.String() {
	case "x":
		if id, ok := m.SelectedID(); ok {
			return m, func() tea.Msg { return ClosePanelMsg{ID: id} }
		}
		return m, nil
	case "J", "shift+down":
		m.text.LineDown(1)
		return m, nil
	case "K", "shift+up":
		m.text.LineUp(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.showSelected()
	return m, cmd
}

func (m *PanelsModel) SetFocus(focused bool) {
	m.focused = focused
	m.table = m.table.Focused(focused)
}

func (m *PanelsModel) SetSize(width, height int) {
	m.width = width
	m.height = height

	// border and header take four rows
	m.table = m.table.WithPageSize(max(height-4, 1))

	textWidth := max(width-listWidth-1, 10)
	if !m.ready {
		m.text = viewport.New(textWidth, height)
		m.text.MouseWheelEnabled = true
		m.ready = true
	} else {
		m.text.Width = textWidth
		m.text.Height = height
	}
	m.table = m.table.WithTargetWidth(listWidth)
	m.shownID, m.shown = 0, ""
	m.showSelected()
}

// Len returns the number of listed panels
func (m *PanelsModel) Len() int {
	return len(m.panels)
}

func (m PanelsModel) View() string {
	if len(m.panels) == 0 {
		return styles.StatusBarHelpStyle.Render(" No panels. Scripts create them with new_window(name).")
	}
	if !m.ready {
		return m.table.View()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.table.View(), " ", m.text.View())
}

// String describes the selection for the status line
func (m *PanelsModel) String() string {
	p, ok := m.selected()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s (#%d)", p.Name, p.ID)
}
