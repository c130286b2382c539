package ui

import (
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ryanboscobanze/speech-companion/internal/audio"
	"github.com/ryanboscobanze/speech-companion/internal/sequencer"
)

// Recorder starts and stops recording sessions
type Recorder interface {
	Toggle(engine string, deviceID int) error
	Stop() error
	Recording() bool
}

// LevelSource reports the smoothed input level in [0, 1]
type LevelSource interface {
	Level() float32
}

// Options configures a new Model
type Options struct {
	Recorder Recorder
	Level    LevelSource
	Engines  []string
	Engine   string
	Devices  []audio.Device
	DeviceID int // -1 selects the system default
}

const (
	levelInterval = 100 * time.Millisecond
	maxCellLines  = 8
)

// Column titles, left to right
var columnTitles = []string{
	"User Speech",
	"Concepts",
	"Difficult Word Definitions",
	"LLM Suggestions",
	"Ambiguity/Hesitation",
}

// Relative column widths, in percent
var columnShares = []int{24, 14, 24, 20, 18}

// Model is the root bubbletea model
type Model struct {
	recorder Recorder
	level    LevelSource

	// Pickers
	engines     []string
	engineIndex int
	devices     []audio.Device
	deviceIndex int

	// Recording state
	recording       bool
	controlsEnabled bool
	pending         bool
	statusText      string
	inputLevel      float32

	// Results, newest first
	rows   []sequencer.Row
	scroll int

	// Errors
	errorMessage string

	// UI state
	width  int
	height int
}

// New creates an idle model. The default input device is always offered first.
func New(opts Options) Model {
	engines := opts.Engines
	if len(engines) == 0 {
		engines = []string{"AssemblyAI", "Whisper"}
	}

	engineIndex := 0
	for i, e := range engines {
		if strings.EqualFold(e, opts.Engine) {
			engineIndex = i
		}
	}

	devices := append([]audio.Device{{Index: -1, Name: "default"}}, opts.Devices...)
	deviceIndex := 0
	for i, d := range devices {
		if d.Index == opts.DeviceID {
			deviceIndex = i
		}
	}

	return Model{
		recorder:        opts.Recorder,
		level:           opts.Level,
		engines:         engines,
		engineIndex:     engineIndex,
		devices:         devices,
		deviceIndex:     deviceIndex,
		controlsEnabled: true,
		statusText:      "Idle",
	}
}

// Init starts the level meter ticker
func (m Model) Init() tea.Cmd {
	return levelTickCmd()
}

func levelTickCmd() tea.Cmd {
	return tea.Tick(levelInterval, func(time.Time) tea.Msg {
		return levelTickMsg{}
	})
}

// toggleCmd runs the start/stop request off the event loop
func toggleCmd(r Recorder, engine string, deviceID int) tea.Cmd {
	return func() tea.Msg {
		return ToggleResultMsg{Err: r.Toggle(engine, deviceID)}
	}
}

func stopCmd(r Recorder) tea.Cmd {
	return func() tea.Msg {
		return ToggleResultMsg{Err: r.Stop()}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RowsMsg:
		m.rows = msg.Rows
		m.scroll = 0
		return m, nil

	case StatusMsg:
		m.recording = msg.Status.Recording
		m.statusText = msg.Status.Message
		if msg.Status.Error != "" {
			m.errorMessage = msg.Status.Error
		} else if msg.Status.Recording {
			m.errorMessage = ""
		}
		if !m.recording {
			m.inputLevel = 0
		}
		return m, nil

	case ControlsMsg:
		m.controlsEnabled = msg.Enabled
		return m, nil

	case ToggleResultMsg:
		m.pending = false
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
		}
		return m, nil

	case levelTickMsg:
		if m.recording && m.level != nil {
			m.inputLevel = m.level.Level()
		}
		return m, levelTickCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.recording && m.recorder != nil {
			return m, tea.Sequence(stopCmd(m.recorder), tea.Quit)
		}
		return m, tea.Quit

	case KeySpace:
		if !m.controlsEnabled || m.pending || m.recorder == nil {
			return m, nil
		}
		m.pending = true
		return m, toggleCmd(m.recorder, m.Engine(), m.DeviceID())

	case KeyCycleEngine, KeyCycleEngineUp:
		if m.recording || !m.controlsEnabled {
			return m, nil
		}
		m.engineIndex = (m.engineIndex + 1) % len(m.engines)
		return m, nil

	case KeyCycleDevice, KeyCycleDeviceUp:
		if m.recording || !m.controlsEnabled {
			return m, nil
		}
		m.deviceIndex = (m.deviceIndex + 1) % len(m.devices)
		return m, nil

	case KeyUp, KeyK:
		if m.scroll > 0 {
			m.scroll--
		}
		return m, nil

	case KeyDown, KeyJ:
		if m.scroll < len(m.rows)-1 {
			m.scroll++
		}
		return m, nil
	}

	return m, nil
}

// Engine returns the selected transcription engine
func (m Model) Engine() string {
	return m.engines[m.engineIndex]
}

// DeviceID returns the selected input device index, -1 for the default
func (m Model) DeviceID() int {
	return m.devices[m.deviceIndex].Index
}

func (m Model) deviceLabel() string {
	d := m.devices[m.deviceIndex]
	if d.Index < 0 {
		return "default input"
	}
	return d.Label()
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, DividerStyle.Render(strings.Repeat("─", m.width)))
	sections = append(sections, m.renderTable())
	sections = append(sections, DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("SPEECH COMPANION")
	engine := EngineStyle(m.Engine()).Render(m.Engine())
	return title + DimStyle.Render("  engine: ") + engine + DimStyle.Render("  device: "+m.deviceLabel())
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.recording {
		dot = RecordingDotStyle.Render("● REC")
	} else {
		dot = IdleDotStyle.Render("○ IDLE")
	}

	var levels string
	if m.recording {
		levels = "  " + renderLevelMeter(m.inputLevel)
	}

	status := ""
	if m.statusText != "" {
		status = "  " + DimStyle.Render(m.statusText)
	}

	return dot + levels + status + DimStyle.Render("  rows: ") + strconv.Itoa(len(m.rows))
}

func renderLevelMeter(level float32) string {
	const barLen = 10
	filled := int(level * barLen)
	if filled > barLen {
		filled = barLen
	}

	var bar string
	for i := 0; i < barLen; i++ {
		if i < filled {
			if float32(i)/float32(barLen) > 0.6 {
				bar += LevelYellowStyle.Render("█")
			} else {
				bar += LevelGreenStyle.Render("█")
			}
		} else {
			bar += LevelGrayStyle.Render("░")
		}
	}
	return DimStyle.Render("MIC ") + bar
}

// columnWidths splits the terminal width by columnShares, one space between columns
func (m Model) columnWidths() []int {
	usable := m.width - (len(columnShares) - 1)
	if usable < len(columnShares)*4 {
		usable = len(columnShares) * 4
	}

	widths := make([]int, len(columnShares))
	total := 0
	for i, share := range columnShares {
		widths[i] = usable * share / 100
		total += widths[i]
	}
	widths[len(widths)-1] += usable - total
	return widths
}

// tableHeight is the number of lines available for the header row and rows
func (m Model) tableHeight() int {
	used := 5 // header, status, two dividers, footer
	if m.errorMessage != "" {
		used++
	}
	if h := m.height - used; h > 2 {
		return h
	}
	return 2
}

func (m Model) renderTable() string {
	widths := m.columnWidths()
	budget := m.tableHeight()

	header := make([]string, len(columnTitles))
	for i, title := range columnTitles {
		header[i] = HeaderCellStyle.Render(padRight(truncateToWidth(title, widths[i]), widths[i]))
	}
	lines := []string{strings.Join(header, " ")}

	if len(m.rows) == 0 {
		lines = append(lines, DimStyle.Render("Press space to start recording."))
		return strings.Join(lines, "\n")
	}

	for _, row := range m.rows[m.scroll:] {
		rendered := renderRow(row, widths)
		if len(lines)+len(rendered) > budget {
			break
		}
		lines = append(lines, rendered...)
	}

	return strings.Join(lines, "\n")
}

// renderRow lays out one result across the columns, followed by a blank line
func renderRow(row sequencer.Row, widths []int) []string {
	cells := [][]string{
		wrapCell(row.Speech, widths[0]),
		wrapCell(row.Concepts, widths[1]),
		wrapCell(row.Definitions, widths[2]),
		wrapCell(row.Suggestion, widths[3]),
		wrapCell(signalText(row), widths[4]),
	}

	height := 0
	for _, c := range cells {
		if len(c) > height {
			height = len(c)
		}
	}

	style := EngineStyle(row.Engine)
	lines := make([]string, 0, height+1)
	for i := 0; i < height; i++ {
		parts := make([]string, len(cells))
		for j, c := range cells {
			text := ""
			if i < len(c) {
				text = c[i]
			}
			parts[j] = style.Render(padRight(text, widths[j]))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return append(lines, "")
}

// signalText prefixes the support response with the signals that triggered it
func signalText(row sequencer.Row) string {
	var flags []string
	if row.Ambiguous {
		flags = append(flags, "ambiguous")
	}
	if row.Hesitant {
		flags = append(flags, "hesitant")
	}
	if len(flags) == 0 {
		return row.Support
	}
	return "[" + strings.Join(flags, ", ") + "]\n" + row.Support
}

func wrapCell(text string, width int) []string {
	lines := wrapText(text, width)
	if len(lines) > maxCellLines {
		lines = lines[:maxCellLines]
		lines[maxCellLines-1] = truncateToWidth(lines[maxCellLines-1]+" …", width)
	}
	for i, l := range lines {
		lines[i] = truncateToWidth(l, width)
	}
	return lines
}

func (m Model) renderErrorBar() string {
	return ErrorStyle.Render("Error: ") + ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var parts []string

	if m.recording {
		parts = append(parts, FooterKeyStyle.Render("Space")+FooterDescStyle.Render(" Stop"))
	} else {
		parts = append(parts, FooterKeyStyle.Render("Space")+FooterDescStyle.Render(" Record"))
		parts = append(parts, FooterKeyStyle.Render("e")+FooterDescStyle.Render(" Engine"))
		parts = append(parts, FooterKeyStyle.Render("i")+FooterDescStyle.Render(" Device"))
	}
	parts = append(parts, FooterKeyStyle.Render("↑↓")+FooterDescStyle.Render(" Scroll"))
	parts = append(parts, FooterKeyStyle.Render("q")+FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	if width > 1 && len(runes) > width-1 {
		return string(runes[:width-1]) + "…"
	}
	return s
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			if current == "" {
				current = word
			} else if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
				current += " " + word
			} else {
				lines = append(lines, current)
				current = word
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
