package main

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bynzo/voiceanalyst/gemini"
)

// UserCommand is a key-driven request from the TUI to the app controller.
type UserCommand int

const (
	CmdStart UserCommand = iota
	CmdStop
	CmdClear
	CmdCopy
	CmdQuit
)

// TUI message types
type TranscriptMsg struct{ Full string }
type ProfilesMsg struct{ Profiles []gemini.SpeakerProfile }
type StatusMsg struct {
	Text string
	Busy bool
}
type FatalMsg struct{ Title, Message string }
type AudioLevelMsg struct{ Level float64 }
type StateMsg struct{ State SessionState }
type CopiedMsg struct{ OK bool }
type ClearMsg struct{}

var (
	discColors = map[gemini.Category]string{
		gemini.Dominance:         "196", // red
		gemini.Influence:         "220", // yellow
		gemini.Steadiness:        "42",  // green
		gemini.Conscientiousness: "39",  // blue
	}
	discDescriptions = map[gemini.Category]string{
		gemini.Dominance:         "Direct, assertive, and results-oriented. Focused on goals and taking charge.",
		gemini.Influence:         "Outgoing, optimistic, and enthusiastic. Enjoys collaboration and influencing others.",
		gemini.Steadiness:        "Patient, dependable, and cooperative. Values stability and harmony.",
		gemini.Conscientiousness: "Analytical, precise, and systematic. Focused on quality and accuracy.",
	}
)

type tuiModel struct {
	commands chan<- UserCommand

	state         SessionState
	statusText    string
	busy          bool
	frame         int
	audioLevel    float64
	transcript    string
	profiles      []gemini.SpeakerProfile
	fatalTitle    string
	fatalMessage  string
	copied        bool
	width, height int
	device        string
}

type tickMsg struct{}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func NewTUIProgram(commands chan<- UserCommand, device string) *tea.Program {
	m := tuiModel{
		commands:   commands,
		statusText: "Ready.",
		device:     device,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func (m tuiModel) send(cmd UserCommand) {
	select {
	case m.commands <- cmd:
	default:
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.send(CmdStart)
		case "s":
			m.send(CmdStop)
		case "c":
			m.send(CmdClear)
		case "y":
			m.send(CmdCopy)
		case "q", "ctrl+c":
			m.send(CmdQuit)
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case TranscriptMsg:
		m.transcript = msg.Full
		m.copied = false

	case ProfilesMsg:
		m.profiles = msg.Profiles

	case StatusMsg:
		m.statusText = msg.Text
		m.busy = msg.Busy

	case StateMsg:
		m.state = msg.State
		if msg.State == StateIdle {
			m.audioLevel = 0
		}

	case FatalMsg:
		m.fatalTitle = msg.Title
		m.fatalMessage = msg.Message

	case AudioLevelMsg:
		m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4

	case CopiedMsg:
		m.copied = msg.OK

	case ClearMsg:
		m.transcript = ""
		m.profiles = nil
		m.fatalTitle = ""
		m.fatalMessage = ""
		m.copied = false
	}
	return m, nil
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const sideWidth = 34
	var side []string

	// Status block
	switch m.state {
	case StateCapturing, StateSegmentFinalizing, StateClassifying:
		side = append(side, lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render("● REC ")+renderLevelMeter(m.audioLevel))
	case StateStopping:
		side = append(side, lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Render("◌ FINISHING"))
	case StateError:
		side = append(side, lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render("✗ ERROR"))
	default:
		side = append(side, lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ STANDBY"))
	}

	status := m.statusText
	if m.busy {
		status = spinnerFrames[m.frame%len(spinnerFrames)] + " " + status
	}
	side = append(side, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(status))

	if m.device != "" {
		side = append(side, lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(m.device))
	}

	if m.fatalTitle != "" {
		side = append(side, "")
		side = append(side, lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render(m.fatalTitle))
		for _, line := range wrapText(m.fatalMessage, sideWidth-2) {
			side = append(side, lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render(line))
		}
	}

	// Profile cards
	if len(m.profiles) > 0 {
		side = append(side, "")
		side = append(side, lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Render("Speaker profiles"))
		for _, p := range m.profiles {
			side = append(side, renderProfileCard(p, sideWidth-2)...)
		}
	}

	side = append(side, "")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	side = append(side,
		boldStyle.Render("r")+helpStyle.Render(" record  ")+
			boldStyle.Render("s")+helpStyle.Render(" stop  ")+
			boldStyle.Render("c")+helpStyle.Render(" clear"))
	side = append(side,
		boldStyle.Render("y")+helpStyle.Render(" copy transcript  ")+
			boldStyle.Render("q")+helpStyle.Render(" quit"))

	// Transcript panel
	textWidth := m.width - sideWidth - 1
	if textWidth < 20 {
		textWidth = 20
	}
	var body strings.Builder
	if m.transcript != "" {
		title := "Transcript"
		if m.copied {
			title += " " + lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("[✓ copied]")
		}
		body.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Render(title) + "\n\n")
		textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		for _, raw := range strings.Split(m.transcript, "\n") {
			for _, line := range wrapText(raw, textWidth-2) {
				body.WriteString(textStyle.Render(line) + "\n")
			}
		}
	} else {
		body.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("No transcript yet. Press r to start recording."))
	}

	sidePanel := lipgloss.NewStyle().
		Width(sideWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(side, "\n"))
	textPanel := lipgloss.NewStyle().
		Width(textWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(body.String())

	return lipgloss.JoinHorizontal(lipgloss.Top, sidePanel, textPanel)
}

func renderLevelMeter(level float64) string {
	const cells = 16
	filled := int(level * 4 * cells)
	if filled > cells {
		filled = cells
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", cells-filled)
	return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render(bar)
}

func renderProfileCard(p gemini.SpeakerProfile, width int) []string {
	color := "246" // gray for categories the model invented
	desc := "Unknown profile."
	if cat, ok := p.Category(); ok {
		color = discColors[cat]
		desc = discDescriptions[cat]
	}
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color(color)).
		Bold(true).
		Render(p.Speaker + " — " + p.DISCProfile)

	lines := []string{"", header}
	descStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	for _, line := range wrapText(desc, width) {
		lines = append(lines, descStyle.Render(line))
	}
	return lines
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
