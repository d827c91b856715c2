package uarttui

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"github.com/txn2/uartdbg/pkg/uartcfg"
	"github.com/txn2/uartdbg/pkg/uartlog"
	"github.com/txn2/uartdbg/pkg/uartmetrics"
	"github.com/txn2/uartdbg/pkg/uartpool"
	"github.com/txn2/uartdbg/pkg/uartscript"
	"github.com/txn2/uartdbg/pkg/uartsession"
	"github.com/txn2/uartdbg/pkg/uarttui/components"
	"github.com/txn2/uartdbg/pkg/uarttui/events"
	"github.com/txn2/uartdbg/pkg/uarttui/state"
	"github.com/txn2/uartdbg/pkg/uarttui/styles"
	"github.com/txn2/uartdbg/pkg/uarttx"
)

// Focus tracks which component has focus in debug mode
type Focus int

const (
	FocusTx Focus = iota
	FocusRx
	FocusPanels
	FocusLogs
)

// Options are the collaborators the UI drives
type Options struct {
	Version  string
	Config   *uartcfg.Config
	Session  *uartsession.Session
	Writer   *uarttx.Writer
	Uploader *uarttx.Uploader
	Runner   *uartscript.Runner
	Scripts  *uartpool.Pool
	Channel  *events.Channel
	Registry *state.Registry

	// ListPorts suggests a port when none is configured; may be nil
	ListPorts func() ([]string, error)
}

// Manager manages the TUI lifecycle
type Manager struct {
	program         *tea.Program
	model           *RootModel
	logCh           chan LogEntryMsg
	stopChan        chan struct{}
	doneChan        chan struct{}
	restoreLog      func()
	triggerShutdown func()
}

// RootModel is the main bubbletea model. It owns the panel registry:
// panel events are applied only from Update, on each tick.
type RootModel struct {
	// Components
	header    components.HeaderModel
	rx        components.RxModel
	panels    components.PanelsModel
	logs      components.LogsModel
	statusBar components.StatusBarModel
	help      components.HelpModel
	prompt    components.PromptModel
	txInput   textinput.Model

	// Collaborators
	ctx  context.Context
	opts Options
	cfg  *uartcfg.Config

	// State
	mode        components.Mode
	focus       Focus
	port        string
	connecting  bool
	flashing    bool
	flashBlocks atomic.Int64
	flashCancel context.CancelFunc
	quitting    bool
	rates       *uartmetrics.Throughput

	// Dimensions
	width        int
	height       int
	rxHeight     int
	panelsHeight int
	logsHeight   int

	logCh  <-chan LogEntryMsg
	stopCh <-chan struct{}
}

// New builds the manager. Logs of the standard logger are routed into
// the logs pane until Run returns.
func New(ctx context.Context, opts Options, triggerShutdown func()) *Manager {
	logCh := make(chan LogEntryMsg, 256)
	stopChan := make(chan struct{})

	m := &Manager{
		logCh:           logCh,
		stopChan:        stopChan,
		doneChan:        make(chan struct{}),
		triggerShutdown: triggerShutdown,
	}
	m.model = newRootModel(ctx, opts, logCh, stopChan)

	// terminal log output would corrupt the screen; file output is kept
	m.restoreLog = func() {}
	switch opts.Config.Logging.Output {
	case "", "stderr", "stdout":
		m.restoreLog = uartlog.Redirect(log.StandardLogger(), io.Discard)
	}
	log.AddHook(&tuiLogHook{logCh: logCh, stopCh: stopChan})

	return m
}

func newRootModel(ctx context.Context, opts Options, logCh <-chan LogEntryMsg, stopCh <-chan struct{}) *RootModel {
	styles.ApplyTheme(opts.Config.UI.Theme)

	ti := textinput.New()
	ti.Prompt = "tx> "
	ti.Placeholder = "text to send"
	ti.CharLimit = 4096

	m := &RootModel{
		header:    components.NewHeaderModel(opts.Version),
		rx:        components.NewRxModel(components.ParseMode(opts.Config.UI.Mode)),
		panels:    components.NewPanelsModel(),
		logs:      components.NewLogsModel(),
		statusBar: components.NewStatusBarModel(),
		help:      components.NewHelpModel(),
		prompt:    components.NewPromptModel(),
		txInput:   ti,
		ctx:       ctx,
		opts:      opts,
		cfg:       opts.Config,
		mode:      components.ParseMode(opts.Config.UI.Mode),
		port:      opts.Config.Port,
		rates:     uartmetrics.NewThroughput(int(time.Second / opts.Config.UI.Tick)),
		logCh:     logCh,
		stopCh:    stopCh,
	}
	m.header.SetMode(m.mode.String())
	m.setFocus(FocusTx)

	if opts.Uploader != nil {
		opts.Uploader.OnBlock = func(n int) {
			m.flashBlocks.Store(int64(n))
		}
	}
	return m
}

// Run blocks until the UI quits
func (m *Manager) Run() error {
	if os.Getenv("TERM") == "" {
		_ = os.Setenv("TERM", "xterm-256color")
	}

	m.program = tea.NewProgram(
		m.model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err := m.program.Run()

	m.model.cancelFlash()
	m.restoreLog()

	if m.triggerShutdown != nil {
		m.triggerShutdown()
	}

	close(m.doneChan)
	return err
}

// Stop stops the TUI application
func (m *Manager) Stop() {
	select {
	case <-m.stopChan:
		return
	default:
		close(m.stopChan)
	}

	m.restoreLog()

	if m.program != nil {
		m.program.Quit()
	}
}

// Done returns a channel that closes when TUI is stopped
func (m *Manager) Done() <-chan struct{} {
	return m.doneChan
}

// Init initializes the model
func (m *RootModel) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.cfg.UI.Tick),
		ListenLogs(m.logCh),
		ListenShutdown(m.stopCh),
		textinput.Blink,
		SendLog(log.InfoLevel, "uartdbg started. Press F1 for help, ctrl+c to quit."),
	}
	if m.port != "" {
		cmds = append(cmds, m.connect())
	}
	return tea.Batch(cmds...)
}

// Update handles all messages
func (m *RootModel) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	// a panic must not leave the terminal in raw mode
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("TUI Update panic recovered: %v", r)
			model = m
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSizeMsg(msg)
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case tickMsg:
		m.handleTick()
		return m, tickCmd(m.cfg.UI.Tick)
	case LogEntryMsg:
		m.logs.AppendLog(components.LogEntry{Time: msg.Time, Level: msg.Level, Message: msg.Message, Fields: msg.Fields})
		return m, ListenLogs(m.logCh)
	case ShutdownMsg:
		m.quitting = true
		return m, tea.Quit
	case linkResultMsg:
		return m, m.handleLinkResult(msg)
	case flashDoneMsg:
		return m, m.handleFlashDone(msg)
	case components.PromptSubmitMsg:
		return m, m.handlePromptSubmit(msg)
	case components.ClosePanelMsg:
		m.closePanel(msg.ID)
	}

	return m, nil
}

// handleTick applies pending panel events and refreshes the views from
// the session. Bytes received since the last tick become visible here.
func (m *RootModel) handleTick() {
	if m.opts.Channel != nil && m.opts.Registry != nil {
		if n := state.Drain(m.opts.Channel, m.opts.Registry, m.cfg.UI.MaxEventsPerTick); n > 0 {
			snap := m.opts.Registry.Publish()
			m.panels.SetPanels(snap.Panels)
			uartmetrics.SetPanels(len(snap.Panels))
		}
	}

	buf := m.opts.Session.Buffer()
	if gen := buf.Generation(); gen != m.rx.Generation() {
		m.rx.SetData(buf.String(), buf.Bytes(), gen)
	}

	stats := m.opts.Session.Info().Stats
	m.rates.Observe(stats.BytesRead, stats.BytesWritten, time.Now())

	m.refreshStatus()
}

func (m *RootModel) refreshStatus() {
	info := m.opts.Session.Info()

	stats := components.Stats{
		Status:  info.Status.String(),
		RxBytes: info.Stats.BytesRead,
		TxBytes: info.Stats.BytesWritten,
		Panels:  m.panels.Len(),
	}
	stats.RxRate, stats.TxRate = m.rates.Rates()
	if info.Status == uartsession.StatusLost && info.LastErr != nil {
		stats.LinkError = info.LastErr.Error()
	}
	if m.opts.Channel != nil {
		stats.DroppedEvents = m.opts.Channel.Dropped()
	}
	if m.flashing {
		stats.Flashing = true
		stats.FlashBlocks = int(m.flashBlocks.Load())
	}
	m.statusBar.UpdateStats(stats)

	if info.Status == uartsession.StatusConnected {
		m.header.SetLink(info.Conn.String())
	} else {
		m.header.SetLink("")
	}
}

func (m *RootModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.updateSizes()
	m.header, _ = m.header.Update(msg)
	m.statusBar, _ = m.statusBar.Update(msg)
	m.help, _ = m.help.Update(msg)
}

// updateSizes recalculates component sizes
func (m *RootModel) updateSizes() {
	// header, blank line and status bar
	fixedLines := 3
	if m.mode == components.ModeDebug {
		// transmit title and line, received, panels and logs titles
		fixedLines += 5
	} else {
		fixedLines += 2
	}

	contentWidth := max(m.width, 20)
	available := max(m.height-fixedLines, 12)

	m.logsHeight = max(available/5, 3)
	m.panelsHeight = 0
	if m.mode == components.ModeDebug {
		m.panelsHeight = max(available/4, 5)
	}
	m.rxHeight = max(available-m.logsHeight-m.panelsHeight, 4)

	m.txInput.Width = contentWidth - len(m.txInput.Prompt) - 2
	m.rx.SetSize(contentWidth, m.rxHeight)
	m.panels.SetSize(contentWidth, m.panelsHeight)
	m.logs.SetSize(contentWidth, m.logsHeight)
	m.prompt.SetWidth(contentWidth)
	m.statusBar.SetWidth(m.width)
	m.header.SetWidth(m.width)
	m.help.SetSize(m.width, m.height)
}

func (m *RootModel) setFocus(f Focus) {
	m.focus = f
	if f == FocusTx && m.mode == components.ModeDebug {
		m.txInput.Focus()
	} else {
		m.txInput.Blur()
	}
	m.rx.SetFocus(f == FocusRx)
	m.panels.SetFocus(f == FocusPanels)
	m.logs.SetFocus(f == FocusLogs)
}

// cycleFocus switches focus between components
func (m *RootModel) cycleFocus() {
	m.setFocus((m.focus + 1) % (FocusLogs + 1))
}

func (m *RootModel) toggleMode() {
	if m.mode == components.ModeDebug {
		m.mode = components.ModeTerminal
	} else {
		m.mode = components.ModeDebug
	}
	m.rx.SetMode(m.mode)
	m.header.SetMode(m.mode.String())
	m.setFocus(FocusTx)
	if m.width > 0 {
		m.updateSizes()
	}
}

// handleKeyMsg handles keyboard input
func (m *RootModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Help modal captures all input when visible
	if m.help.IsVisible() {
		m.help, _ = m.help.Update(msg)
		return m, nil
	}

	if m.prompt.IsVisible() {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	if result, cmd, handled := m.handleGlobalKeys(msg); handled {
		return result, cmd
	}

	if m.mode == components.ModeTerminal {
		return m, m.sendTerminalKey(msg)
	}
	return m.handleDebugKey(msg)
}

// handleGlobalKeys handles the shortcuts that work in both modes
func (m *RootModel) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit, true
	case "ctrl+o":
		return m, m.toggleConnection(), true
	case "ctrl+t":
		m.toggleMode()
		return m, nil, true
	case "ctrl+l":
		m.opts.Session.Buffer().Clear()
		return m, nil, true
	case "ctrl+r":
		return m, m.prompt.Show(components.PromptScript, ""), true
	case "ctrl+p":
		if m.flashing {
			m.cancelFlash()
			return m, SendLog(log.WarnLevel, "Cancelling device programming"), true
		}
		return m, m.prompt.Show(components.PromptFirmware, ""), true
	case "f1":
		m.help.Toggle()
		return m, nil, true
	}
	return nil, nil, false
}

// handleDebugKey handles keys in debug mode. The transmit line takes
// text keys while it has focus.
func (m *RootModel) handleDebugKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyTab {
		m.cycleFocus()
		return m, nil
	}

	if m.focus == FocusTx {
		if msg.Type == tea.KeyEnter {
			text := m.txInput.Value()
			m.txInput.Reset()
			return m, m.send([]byte(text))
		}
		var cmd tea.Cmd
		m.txInput, cmd = m.txInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "?":
		m.help.Toggle()
		return m, nil
	case "c":
		return m, m.toggleConnection()
	case "esc":
		m.setFocus(FocusTx)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case FocusRx:
		m.rx, cmd = m.rx.Update(msg)
	case FocusPanels:
		m.panels, cmd = m.panels.Update(msg)
	case FocusLogs:
		m.logs, cmd = m.logs.Update(msg)
	case FocusTx:
		// handled above
	}
	return m, cmd
}

// terminalBytes maps a key to what terminal mode sends: Enter is CR LF,
// Tab is a tab, text and pastes go as typed, control keys as their code.
func terminalBytes(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyEnter:
		return []byte("\r\n")
	case tea.KeyTab:
		return []byte("\t")
	case tea.KeyRunes:
		return []byte(string(msg.Runes))
	case tea.KeySpace:
		return []byte(" ")
	case tea.KeyBackspace:
		return []byte{0x7F}
	}
	if msg.Type > 0 && msg.Type < 0x20 {
		return []byte{byte(msg.Type)}
	}
	return nil
}

func (m *RootModel) sendTerminalKey(msg tea.KeyMsg) tea.Cmd {
	p := terminalBytes(msg)
	if len(p) == 0 {
		return nil
	}
	return m.send(p)
}

// send queues p on the writer without blocking the UI
func (m *RootModel) send(p []byte) tea.Cmd {
	if len(p) == 0 || m.opts.Writer == nil {
		return nil
	}
	if m.opts.Session.Status() != uartsession.StatusConnected {
		return SendLog(log.WarnLevel, "Not connected, nothing sent")
	}
	if err := m.opts.Writer.Send(p); err != nil {
		log.Debugf("Send dropped: %v", err)
	}
	return nil
}

func (m *RootModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonWheelUp && msg.Button != tea.MouseButtonWheelDown {
		return m, nil
	}
	var cmd tea.Cmd
	switch m.focus {
	case FocusLogs:
		m.logs, cmd = m.logs.Update(msg)
	case FocusPanels:
		m.panels, cmd = m.panels.Update(msg)
	case FocusTx, FocusRx:
		m.rx, cmd = m.rx.Update(msg)
	}
	return m, cmd
}

// connection builds the connection for the selected port
func (m *RootModel) connection() (uartcfg.Connection, error) {
	cfg := *m.cfg
	cfg.Port = m.port
	return cfg.Connection()
}

func (m *RootModel) connect() tea.Cmd {
	conn, err := m.connection()
	if err != nil {
		return SendLog(log.ErrorLevel, fmt.Sprintf("Cannot connect: %v", err))
	}
	m.connecting = true
	return connectCmd(m.opts.Session, conn)
}

// toggleConnection disconnects a connected session, otherwise connects
// to the selected port, asking for one first if none is set.
func (m *RootModel) toggleConnection() tea.Cmd {
	if m.connecting {
		return nil
	}
	if m.opts.Session.Status() == uartsession.StatusConnected {
		m.connecting = true
		return disconnectCmd(m.opts.Session)
	}
	if m.port == "" {
		return m.prompt.Show(components.PromptPort, m.suggestPort())
	}
	return m.connect()
}

func (m *RootModel) suggestPort() string {
	if m.opts.ListPorts == nil {
		return ""
	}
	ports, err := m.opts.ListPorts()
	if err != nil || len(ports) == 0 {
		return ""
	}
	return ports[0]
}

func (m *RootModel) handleLinkResult(msg linkResultMsg) tea.Cmd {
	m.connecting = false
	m.refreshStatus()

	if msg.err != nil {
		return SendLog(log.ErrorLevel, fmt.Sprintf("Connect failed: %v", msg.err))
	}
	if !msg.connected {
		return SendLog(log.InfoLevel, "Disconnected")
	}

	return SendLog(log.InfoLevel, "Connected to "+msg.desc)
}

func (m *RootModel) handlePromptSubmit(msg components.PromptSubmitMsg) tea.Cmd {
	switch msg.Kind {
	case components.PromptPort:
		m.port = msg.Value
		return m.connect()

	case components.PromptScript:
		if m.opts.Runner == nil || m.opts.Scripts == nil {
			return nil
		}
		if err := m.opts.Runner.Start(m.opts.Scripts, uartscript.FromFile(msg.Value)); err != nil {
			return SendLog(log.WarnLevel, fmt.Sprintf("Script %s not started: %v", msg.Value, err))
		}
		return SendLog(log.InfoLevel, "Running script "+msg.Value)

	case components.PromptFirmware:
		if m.opts.Uploader == nil {
			return nil
		}
		if m.opts.Session.Status() != uartsession.StatusConnected {
			return SendLog(log.WarnLevel, "Connect before programming the device")
		}
		ctx, cancel := context.WithCancel(m.ctx)
		m.flashCancel = cancel
		m.flashing = true
		m.flashBlocks.Store(0)
		return flashCmd(ctx, m.opts.Uploader, msg.Value)

	case components.PromptNone:
	}
	return nil
}

func (m *RootModel) handleFlashDone(msg flashDoneMsg) tea.Cmd {
	m.cancelFlash()
	m.flashing = false
	if msg.err != nil {
		return SendLog(log.ErrorLevel, fmt.Sprintf("Programming from %s stopped after %d blocks: %v", msg.path, msg.blocks, msg.err))
	}
	return nil
}

func (m *RootModel) cancelFlash() {
	if m.flashCancel != nil {
		m.flashCancel()
		m.flashCancel = nil
	}
}

// closePanel queues a close event; it is applied with the next drain
// so closes stay ordered with the script events before them.
func (m *RootModel) closePanel(id events.PanelID) {
	if m.opts.Channel == nil {
		return
	}
	if !m.cfg.Panels.AllowClose {
		log.Info("Closing panels is disabled")
		return
	}
	m.opts.Channel.Publish(events.NewCloseEvent(id))
}

// View renders the UI
func (m *RootModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if m.help.IsVisible() {
		return m.help.View()
	}

	sections := []string{m.header.View(), ""}

	if m.mode == components.ModeDebug {
		sections = append(sections,
			m.title("Transmit", FocusTx),
			m.txInput.View(),
		)
	}

	sections = append(sections,
		m.title("Received", FocusRx),
		lipgloss.NewStyle().Height(m.rxHeight).Render(m.rx.View()),
	)

	if m.mode == components.ModeDebug {
		sections = append(sections,
			m.title("Panels", FocusPanels),
			lipgloss.NewStyle().Height(m.panelsHeight).Render(m.panels.View()),
		)
	}

	bottom := m.logs.View()
	if m.prompt.IsVisible() {
		bottom = m.prompt.View()
	}
	sections = append(sections,
		m.title("Logs", FocusLogs),
		lipgloss.NewStyle().Height(m.logsHeight).Render(bottom),
		m.statusBar.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// title renders a section title with a focus accent
func (m *RootModel) title(name string, f Focus) string {
	accent := " "
	if m.mode == components.ModeDebug && m.focus == f {
		accent = styles.FocusAccentStyle.Render("▌")
	}
	return accent + styles.SectionTitleStyle.Render(name)
}

// tuiLogHook is a logrus hook that sends logs to the TUI
type tuiLogHook struct {
	logCh  chan<- LogEntryMsg
	stopCh <-chan struct{}
}

func (h *tuiLogHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire never blocks; entries are dropped when the pane falls behind
func (h *tuiLogHook) Fire(entry *log.Entry) error {
	select {
	case <-h.stopCh:
		return nil
	default:
	}

	var fields log.Fields
	if len(entry.Data) > 0 {
		fields = make(log.Fields, len(entry.Data))
		for k, v := range entry.Data {
			fields[k] = v
		}
	}

	select {
	case h.logCh <- LogEntryMsg{
		Level:   entry.Level,
		Message: entry.Message,
		Time:    entry.Time,
		Fields:  fields,
	}:
	default:
	}
	return nil
}
