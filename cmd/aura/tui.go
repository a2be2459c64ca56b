package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	dialogue "github.com/auraloop/aura-core/core"
)

// frameInterval paces the render loop; each frame pulls a fresh Snapshot and
// advances the feedback mapper one tick.
const frameInterval = time.Second / 30

const orbCanvasHeight = 7

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFCC00"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	interimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B9A7F9"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type frameMsg time.Time

type sessionErrorMsg struct{ err error }

// model is the UI state. All session data is re-read from the orchestrator
// once per frame; the UI never caches beyond the last snapshot.
type model struct {
	orchestrator  *dialogue.Orchestrator
	sessionErrors <-chan error

	viewport viewport.Model
	spinner  spinner.Model
	input    textinput.Model

	state    dialogue.SessionState
	feedback dialogue.FeedbackState

	width          int
	height         int
	ready          bool
	typing         bool
	paused         bool
	lastError      string
	lastTranscript string
}

func newModel(orchestrator *dialogue.Orchestrator, sessionErrors <-chan error) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	input := textinput.New()
	input.Placeholder = "type a prompt and press enter"
	input.Prompt = "> "
	input.CharLimit = 280

	return model{
		orchestrator:  orchestrator,
		sessionErrors: sessionErrors,
		spinner:       s,
		input:         input,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForErrors(), frame())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case sessionErrorMsg:
		m.lastError = msg.err.Error()
		cmds = append(cmds, m.listenForErrors())

	case frameMsg:
		m.state = m.orchestrator.Snapshot()
		m.feedback = m.orchestrator.Feedback()
		if m.ready {
			if content := m.renderTranscript(); content != m.lastTranscript {
				m.lastTranscript = content
				m.viewport.SetContent(content)
				m.viewport.GotoBottom()
			}
		}
		cmds = append(cmds, frame())
	}

	// Non-key messages keep the input's cursor blinking while focused.
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			m.orchestrator.InjectPrompt(m.input.Value())
			m.input.Reset()
			m.input.Blur()
			m.typing = false
			return m, nil
		case "esc":
			m.input.Reset()
			m.input.Blur()
			m.typing = false
			return m, nil
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "i":
		m.typing = true
		return m, m.input.Focus()
	case "p":
		if m.paused {
			m.orchestrator.ResumeListening()
		} else {
			m.orchestrator.PauseListening()
		}
		m.paused = !m.paused
		return m, nil
	case "r":
		m.lastError = ""
		m.orchestrator.Restart()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if !m.ready {
		return "opening audio devices..."
	}

	sections := []string{
		titleStyle.Render("aura"),
		renderOrb(m.feedback, m.width),
		m.renderStatus(),
		m.viewport.View(),
	}
	if m.typing {
		sections = append(sections, m.input.View())
	} else {
		sections = append(sections, helpStyle.Render("i type a prompt  │  p mute  │  r restart  │  q quit"))
	}
	if m.lastError != "" {
		sections = append(sections, errorStyle.Render(truncate("session error: "+m.lastError, m.width)))
	}

	return strings.Join(sections, "\n")
}

func (m *model) resize() {
	contentWidth := m.width
	if contentWidth < 20 {
		contentWidth = 20
	}
	// Title, status, help, and a spare line for the error report.
	contentHeight := m.height - orbCanvasHeight - 4
	if contentHeight < 3 {
		contentHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, contentHeight)
		m.ready = true
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = contentHeight
	}
	m.input.Width = contentWidth - 4
}

func (m model) renderStatus() string {
	var parts []string

	phase := m.state.Phase
	if phase == dialogue.PhaseProcessing || phase == dialogue.PhaseSpeaking {
		parts = append(parts, m.spinner.View()+" "+activeStyle.Render(phase.String()))
	} else {
		parts = append(parts, statusStyle.Render("phase: ")+phase.String())
	}

	status := m.state.ConnectionStatus
	switch status {
	case dialogue.StatusConnected:
		parts = append(parts, activeStyle.Render(status.String()))
	case dialogue.StatusError:
		parts = append(parts, errorStyle.Render(status.String()))
	default:
		parts = append(parts, warningStyle.Render(status.String()))
	}

	if m.paused {
		parts = append(parts, warningStyle.Render("muted"))
	}
	if m.state.LastTurnLatency > 0 {
		parts = append(parts, statusStyle.Render(fmt.Sprintf("turn %.1fs", m.state.LastTurnLatency.Seconds())))
	}
	parts = append(parts, renderLevel(m.feedback.Intensity))

	return strings.Join(parts, "  │  ")
}

func renderLevel(level float64) string {
	const barWidth = 16
	filled := int(level * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	return statusStyle.Render("[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]")
}

func (m model) renderTranscript() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	for _, entry := range m.state.Entries {
		if entry.Text == "" {
			continue
		}
		line := entry.Text
		if entry.Annotation != "" {
			line += " " + entry.Annotation
		}
		switch {
		case entry.Interim:
			b.WriteString(interimStyle.Render(wordwrap.String("you  "+line, width)))
		case entry.Role == dialogue.RoleUser:
			b.WriteString(userStyle.Render(wordwrap.String("you  "+line, width)))
		default:
			b.WriteString(assistantStyle.Render(wordwrap.String("aura "+line, width)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderOrb draws the feedback orb: a disc of block runes whose radius
// follows Scale, whose fill color follows PhaseCode and Brightness, and whose
// halo extends with Bloom.
func renderOrb(fb dialogue.FeedbackState, width int) string {
	if width <= 0 {
		width = 80
	}

	base := phaseColor(fb.PhaseCode)
	fill := lipgloss.NewStyle().Foreground(shade(base, fb.Brightness))
	glow := lipgloss.NewStyle().Foreground(shade(base, 0.45*fb.Brightness))

	radius := 1.7 * fb.Scale
	if radius < 0.7 {
		radius = 0.7
	}
	if radius > 3.2 {
		radius = 3.2
	}
	halo := radius + 2.2*(fb.Bloom-1)
	if halo < radius {
		halo = radius
	}

	var b strings.Builder
	for row := 0; row < orbCanvasHeight; row++ {
		dy := float64(row) - float64(orbCanvasHeight-1)/2

		var run strings.Builder
		runClass := 0
		flush := func() {
			if run.Len() == 0 {
				return
			}
			switch runClass {
			case 2:
				b.WriteString(fill.Render(run.String()))
			case 1:
				b.WriteString(glow.Render(run.String()))
			default:
				b.WriteString(run.String())
			}
			run.Reset()
		}

		for col := 0; col < width; col++ {
			// Terminal cells are roughly twice as tall as wide.
			dx := (float64(col) - float64(width-1)/2) / 2
			dist := math.Sqrt(dx*dx + dy*dy)

			class := 0
			ch := ' '
			switch {
			case dist <= radius:
				class, ch = 2, '█'
			case dist <= halo:
				class, ch = 1, '░'
			}
			if class != runClass {
				flush()
				runClass = class
			}
			run.WriteRune(ch)
		}
		flush()
		if row < orbCanvasHeight-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// phaseColor blends the orb's base color along the phase scale: idle slate,
// listening purple, processing/speaking green.
func phaseColor(code float64) [3]float64 {
	idle := [3]float64{58, 53, 80}
	listening := [3]float64{125, 86, 244}
	busy := [3]float64{4, 181, 117}

	if code <= 1 {
		return lerpRGB(idle, listening, code)
	}
	return lerpRGB(listening, busy, (code-1)/0.5)
}

func lerpRGB(from, to [3]float64, t float64) [3]float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	var out [3]float64
	for i := range out {
		out[i] = from[i] + t*(to[i]-from[i])
	}
	return out
}

func shade(c [3]float64, brightness float64) lipgloss.Color {
	channel := func(v float64) int {
		v *= brightness
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return int(v)
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", channel(c[0]), channel(c[1]), channel(c[2])))
}

func (m model) listenForErrors() tea.Cmd {
	return func() tea.Msg {
		return sessionErrorMsg{err: <-m.sessionErrors}
	}
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func truncate(s string, maxLen int) string {
	if maxLen <= 3 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
