package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// color returns a lipgloss.Color, choosing light or dark variant based on the
// current theme set by SetDarkTheme.
func color(light, dark string) lipgloss.Color {
	if isDark {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

// isDark tracks the current theme
var isDark = true

// SetDarkTheme switches the color palette. Call this before the TUI starts.
func SetDarkTheme(dark bool) {
	isDark = dark
	applyTheme()
}

// IsDarkTheme returns the current theme setting.
func IsDarkTheme() bool {
	return isDark
}

// ApplyTheme selects the palette by name: dark, light or auto. Auto
// asks the terminal for its background color.
func ApplyTheme(name string) {
	switch name {
	case "light":
		SetDarkTheme(false)
	case "dark":
		SetDarkTheme(true)
	default:
		SetDarkTheme(termenv.HasDarkBackground())
	}
}

func applyTheme() {
	// --- palette ---
	colorYellow := color("136", "226")
	colorBlue := color("27", "39")
	colorGreen := color("28", "42")
	colorRed := color("160", "196")
	colorOrange := color("166", "208")
	colorGray := color("243", "240")
	colorWhite := color("16", "255")
	colorFocused := color("62", "62")
	colorCyan := color("30", "51")
	colorSelectedBg := color("254", "237")

	// --- header ---
	HeaderTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	HeaderVersionStyle = lipgloss.NewStyle().Foreground(colorWhite)
	HeaderPortStyle = lipgloss.NewStyle().Foreground(colorCyan)
	HeaderHintStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- link status ---
	StatusConnectedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	StatusDisconnectedStyle = lipgloss.NewStyle().Foreground(colorGray)
	StatusLostStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)

	// --- log levels ---
	LogPanicStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	LogFatalStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	LogErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
	LogWarnStyle = lipgloss.NewStyle().Foreground(colorYellow)
	LogInfoStyle = lipgloss.NewStyle().Foreground(colorGreen)
	LogDebugStyle = lipgloss.NewStyle().Foreground(colorBlue)
	LogTraceStyle = lipgloss.NewStyle().Foreground(colorGray)
	LogTimestampStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- receive views ---
	RxTextStyle = lipgloss.NewStyle().Foreground(colorWhite)
	TerminalTextStyle = lipgloss.NewStyle().Foreground(colorOrange)
	HexOffsetStyle = lipgloss.NewStyle().Foreground(colorGray)
	HexBytesStyle = lipgloss.NewStyle().Foreground(colorCyan)
	HexASCIIStyle = lipgloss.NewStyle().Foreground(colorWhite)

	// --- panels table ---
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	TableSelectedStyle = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorWhite)
	PanelTextStyle = lipgloss.NewStyle().Foreground(colorWhite)

	// --- status bar ---
	StatusBarStyle = lipgloss.NewStyle().Foreground(colorWhite)
	StatusBarErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
	StatusBarHelpStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- prompt ---
	PromptBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFocused).Padding(0, 1)
	PromptLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)

	// --- section ---
	SectionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	FocusAccentStyle = lipgloss.NewStyle().Foreground(colorCyan)

	// --- help ---
	HelpModalStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFocused).Padding(1, 2)
	HelpTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	HelpKeyStyle = lipgloss.NewStyle().Width(14).Foreground(colorCyan)
	HelpDescStyle = lipgloss.NewStyle().Foreground(colorWhite)
}

// All style variables, initialized with the dark theme.
var (
	// Header styles
	HeaderTitleStyle   lipgloss.Style
	HeaderVersionStyle lipgloss.Style
	HeaderPortStyle    lipgloss.Style
	HeaderHintStyle    lipgloss.Style

	// Link status styles
	StatusConnectedStyle    lipgloss.Style
	StatusDisconnectedStyle lipgloss.Style
	StatusLostStyle         lipgloss.Style

	// Log level styles
	LogPanicStyle     lipgloss.Style
	LogFatalStyle     lipgloss.Style
	LogErrorStyle     lipgloss.Style
	LogWarnStyle      lipgloss.Style
	LogInfoStyle      lipgloss.Style
	LogDebugStyle     lipgloss.Style
	LogTraceStyle     lipgloss.Style
	LogTimestampStyle lipgloss.Style

	// Receive view styles
	RxTextStyle       lipgloss.Style
	TerminalTextStyle lipgloss.Style
	HexOffsetStyle    lipgloss.Style
	HexBytesStyle     lipgloss.Style
	HexASCIIStyle     lipgloss.Style

	// Panel styles
	TableHeaderStyle   lipgloss.Style
	TableSelectedStyle lipgloss.Style
	PanelTextStyle     lipgloss.Style

	// Status bar styles
	StatusBarStyle      lipgloss.Style
	StatusBarErrorStyle lipgloss.Style
	StatusBarHelpStyle  lipgloss.Style

	// Prompt styles
	PromptBorderStyle lipgloss.Style
	PromptLabelStyle  lipgloss.Style

	// Section styles
	SectionTitleStyle lipgloss.Style
	FocusAccentStyle  lipgloss.Style

	// Help modal styles
	HelpModalStyle lipgloss.Style
	HelpTitleStyle lipgloss.Style
	HelpKeyStyle   lipgloss.Style
	HelpDescStyle  lipgloss.Style
)

func init() {
	applyTheme()
}
