package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voxclip/clipboard"
	"voxclip/host"
	"voxclip/recorder"
)

// TUI message types
type transitionMsg struct {
	op    string // "start", "stop" or "delete"
	state recorder.State
	err   error
}
type playedMsg struct {
	index int
	err   error
}
type copiedMsg struct {
	file host.FileLocation
	err  error
}
type levelMsg struct{ Level float64 }
type tickMsg time.Time

const (
	tickInterval = 100 * time.Millisecond
	meterWidth   = 20
	quietLevel   = 0.02 // peak RMS below this after quietAfter reads as no input
	quietAfter   = time.Second
)

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	startStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	stopStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	rowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	meterOn      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	meterOff     = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

type tuiModel struct {
	ctx       context.Context
	ctl       *recorder.Controller
	onRefused func() // start failed for a reason other than permission
	copy      func(string) error
	now       func() time.Time
	device    string

	state  recorder.State
	cursor int
	busy   bool   // a start/stop/delete is in flight
	note   string // outcome of the last play or copy

	recStart time.Time
	elapsed  time.Duration
	level    float64
	peak     float64
}

func newTUIModel(ctx context.Context, ctl *recorder.Controller, device string) tuiModel {
	return tuiModel{
		ctx:    ctx,
		ctl:    ctl,
		copy:   clipboard.Copy,
		now:    time.Now,
		device: device,
	}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
}

func tuiTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case transitionMsg:
		return m.applyTransition(msg)

	case playedMsg:
		if msg.err != nil {
			m.note = fmt.Sprintf("could not play recording %d", msg.index+1)
		} else {
			m.note = fmt.Sprintf("playing recording %d", msg.index+1)
		}

	case copiedMsg:
		if msg.err != nil {
			m.note = "copy failed: " + msg.err.Error()
		} else {
			m.note = "copied " + string(msg.file)
		}

	case levelMsg:
		if m.state.Recording() {
			m.level = m.level*0.6 + msg.Level*0.4
			m.peak = max(m.peak, msg.Level)
		}

	case tickMsg:
		if !m.state.Recording() {
			return m, nil
		}
		m.elapsed = time.Time(msg).Sub(m.recStart)
		return m, tuiTick()
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case " ", "space", "r":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.note = ""
		if m.state.Recording() {
			return m, m.transition("stop", func(s recorder.State) (recorder.State, error) {
				return m.ctl.Stop(m.ctx, s), nil
			})
		}
		return m, m.transition("start", func(s recorder.State) (recorder.State, error) {
			return m.ctl.Start(m.ctx, s), nil
		})

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < m.state.Len()-1 {
			m.cursor++
		}

	case "p", "enter":
		if m.state.Len() == 0 {
			return m, nil
		}
		s, i := m.state, m.cursor
		ctl, ctx := m.ctl, m.ctx
		return m, func() tea.Msg {
			return playedMsg{index: i, err: ctl.Play(ctx, s, i)}
		}

	case "d", "x", "delete":
		if m.busy || m.state.Len() == 0 {
			return m, nil
		}
		m.busy = true
		m.note = ""
		i := m.cursor
		return m, m.transition("delete", func(s recorder.State) (recorder.State, error) {
			return m.ctl.Delete(m.ctx, s, i)
		})

	case "y":
		if m.state.Len() == 0 {
			return m, nil
		}
		file := m.state.Entries[m.cursor].File
		copyFn := m.copy
		return m, func() tea.Msg {
			return copiedMsg{file: file, err: copyFn(string(file))}
		}
	}
	return m, nil
}

// transition runs fn against the current snapshot off the update loop and
// reports the next state back as a transitionMsg.
func (m tuiModel) transition(op string, fn func(recorder.State) (recorder.State, error)) tea.Cmd {
	s := m.state
	return func() tea.Msg {
		next, err := fn(s)
		return transitionMsg{op: op, state: next, err: err}
	}
}

func (m tuiModel) applyTransition(msg transitionMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	wasRecording := m.state.Recording()
	before := m.state.Len()
	m.state = msg.state
	if msg.err != nil {
		m.note = msg.err.Error()
	}

	var cmd tea.Cmd
	switch msg.op {
	case "start":
		if m.state.Recording() && !wasRecording {
			m.recStart = m.now()
			m.elapsed = 0
			m.level = 0
			m.peak = 0
			cmd = tuiTick()
		} else if !m.state.Recording() && m.state.Message != recorder.PermissionMessage && m.onRefused != nil {
			// a denial is explained on screen; anything else gets the error cue
			m.onRefused()
		}
	case "stop":
		m.level = 0
		if m.state.Len() > before {
			m.cursor = m.state.Len() - 1
		}
	}

	if m.cursor >= m.state.Len() {
		m.cursor = max(m.state.Len()-1, 0)
	}
	return m, cmd
}

func rowText(i int, e recorder.Entry) string {
	return fmt.Sprintf("%d. Recording %d - %s", i+1, i+1, e.Duration)
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("voxclip") + "\n\n")

	if m.state.Message != "" {
		b.WriteString(messageStyle.Render(m.state.Message) + "\n\n")
	}

	b.WriteString(m.renderToggle())
	if m.state.Recording() {
		b.WriteString("  " + recStyle.Render("● REC "+clock(m.elapsed)))
		b.WriteString("  " + renderMeter(m.level, meterWidth))
		if m.elapsed > quietAfter && m.peak < quietLevel {
			b.WriteString("\n" + messageStyle.Render("⚠ no input detected"))
		}
	}
	b.WriteString("\n\n")

	if m.state.Len() == 0 {
		b.WriteString(dimStyle.Render("  No recordings yet") + "\n")
	}
	for i, e := range m.state.Entries {
		if i == m.cursor {
			b.WriteString(selStyle.Render("› "+rowText(i, e)) + "  " + dimStyle.Render("[p]lay [d]elete") + "\n")
		} else {
			b.WriteString(rowStyle.Render("  "+rowText(i, e)) + "\n")
		}
	}

	b.WriteString("\n")
	if m.note != "" {
		b.WriteString(noteStyle.Render(m.note) + "\n")
	}
	b.WriteString(renderHelp() + "\n")
	if m.device != "" {
		b.WriteString(dimStyle.Render("mic: "+m.device) + "\n")
	}
	return b.String()
}

func (m tuiModel) renderToggle() string {
	switch {
	case m.busy:
		return busyStyle.Render("… working")
	case m.state.Recording():
		return stopStyle.Render("■ stop")
	default:
		return startStyle.Render("● start")
	}
}

func renderHelp() string {
	keys := []struct{ key, desc string }{
		{"space", "record"},
		{"↑/↓", "select"},
		{"p", "play"},
		{"d", "delete"},
		{"y", "copy path"},
		{"q", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = helpKeyStyle.Render(k.key) + helpStyle.Render(" "+k.desc)
	}
	return strings.Join(parts, helpStyle.Render(" · "))
}

// renderMeter draws an RMS level on a log scale: -48 dBFS is empty, 0 dBFS
// is full.
func renderMeter(rms float64, width int) string {
	filled := 0
	if rms > 0 {
		db := 20 * math.Log10(rms)
		frac := (db + 48) / 48
		filled = int(math.Round(math.Max(0, math.Min(1, frac)) * float64(width)))
	}
	return meterOn.Render(strings.Repeat("█", filled)) + meterOff.Render(strings.Repeat("░", width-filled))
}

func clock(d time.Duration) string {
	return recorder.FormatDuration(d.Milliseconds())
}
