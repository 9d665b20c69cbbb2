// Package tui is the terminal client: a Bubble Tea program whose inputs are
// the form and whose panels render the monitoring display.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"exohabit/animation"
	"exohabit/config"
	"exohabit/controller"
	"exohabit/monitoring"
	"exohabit/planet"
)

const radarWidth = 48

// Submitter is the part of the controller the terminal client drives.
type Submitter interface {
	Submit(ctx context.Context) (*controller.Outcome, error)
	Refresh(ctx context.Context)
	Boot(ctx context.Context)
	Cancel()
	InFlight() bool
}

// Options are the animation timings.
type Options struct {
	TypingInterval time.Duration
	RadarInterval  time.Duration
	PulseInterval  time.Duration
	BootDelay      time.Duration
}

func OptionsFrom(c *config.Config) Options {
	return Options{
		TypingInterval: c.Display.TypingInterval,
		RadarInterval:  c.Display.RadarInterval,
		PulseInterval:  c.Display.PulseInterval,
		BootDelay:      c.Display.BootDelay,
	}
}

func (o Options) withDefaults() Options {
	if o.TypingInterval <= 0 {
		o.TypingInterval = animation.TypingInterval
	}
	if o.RadarInterval <= 0 {
		o.RadarInterval = animation.RadarInterval
	}
	if o.PulseInterval <= 0 {
		o.PulseInterval = animation.PulseInterval
	}
	if o.BootDelay < 0 {
		o.BootDelay = 0
	}
	return o
}

type (
	// displayChangedMsg is sent whenever the display state changes.
	displayChangedMsg struct{ kind monitoring.MessageType }
	bootDoneMsg       struct{}
	typeTickMsg       struct{}
	radarTickMsg      struct{}
	pulseTickMsg      struct{}
	submitDoneMsg     struct {
		outcome *controller.Outcome
		err     error
	}
	refreshDoneMsg struct{}
)

type Model struct {
	ctx     context.Context
	ctrl    Submitter
	display *monitoring.Display
	form    *Form
	opts    Options
	styles  Styles

	inputs   []textinput.Model
	focus    int
	spinner  spinner.Model
	progress progress.Model
	table    table.Model

	snap     monitoring.Snapshot
	booted   bool
	typing   bool
	lastErr  error
	quitting bool
}

func New(ctx context.Context, ctrl Submitter, display *monitoring.Display, form *Form, opts Options) Model {
	inputs := make([]textinput.Model, len(planet.Fields))
	for i, f := range planet.Fields {
		ti := textinput.New()
		ti.Placeholder = string(f)
		ti.CharLimit = 16
		ti.Width = 16
		ti.Prompt = "› "
		if i == 0 {
			ti.Focus()
		}
		inputs[i] = ti
	}

	sp := spinner.New()
	sp.Spinner = spinner.Globe

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Planet", Width: 24},
			{Title: "Score", Width: 8},
			{Title: "Prediction", Width: 10},
		}),
		table.WithHeight(8),
	)

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		display:  display,
		form:     form,
		opts:     opts.withDefaults(),
		styles:   DefaultStyles(),
		inputs:   inputs,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		table:    t,
		snap:     display.Snapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.bootCmd(),
		tea.Tick(m.opts.BootDelay, func(time.Time) tea.Msg { return bootDoneMsg{} }),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			if m.ctrl.InFlight() {
				m.ctrl.Cancel()
			}
			return m, tea.Quit
		case "enter":
			return m, m.submitCmd()
		case "ctrl+r":
			return m, m.refreshCmd()
		case "tab", "down":
			return m, m.moveFocus(1)
		case "shift+tab", "up":
			return m, m.moveFocus(-1)
		}

	case bootDoneMsg:
		m.booted = true
		return m, tea.Batch(m.radarTick(), m.pulseTick())

	case displayChangedMsg:
		m.syncSnapshot()
		if m.snap.Typed != m.snap.Message && !m.typing {
			m.typing = true
			cmds = append(cmds, m.typeTick())
		}
		return m, tea.Batch(cmds...)

	case typeTickMsg:
		more := m.display.StepTyping()
		m.syncSnapshot()
		if more {
			return m, m.typeTick()
		}
		m.typing = false
		return m, nil

	case radarTickMsg:
		m.display.AdvanceRadar()
		m.snap.RadarAngle = m.display.Snapshot().RadarAngle
		return m, m.radarTick()

	case pulseTickMsg:
		m.display.Heartbeat(time.Now())
		return m, m.pulseTick()

	case submitDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, controller.ErrSuperseded) {
			m.lastErr = msg.err
		} else {
			m.lastErr = nil
		}
		m.syncSnapshot()
		return m, nil

	case refreshDoneMsg:
		m.syncSnapshot()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Remaining messages go to the focused input.
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.form.set(planet.Fields[m.focus], m.inputs[m.focus].Value())
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.booted {
		return m.styles.Boot.Render("🛰  Initializing planetary scanner...")
	}

	var b strings.Builder

	title := m.styles.Title
	if m.snap.Pulse {
		title = m.styles.TitleBeat
	}
	b.WriteString(title.Render("🪐 ExoHabit habitability scanner"))
	b.WriteString("\n\n")

	for i, f := range planet.Fields {
		label := m.styles.Label
		if m.snap.InvalidField == f {
			label = m.styles.LabelError
		}
		b.WriteString(label.Render(f.Label()))
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	if m.snap.ErrorBox != "" {
		b.WriteString(m.styles.ErrorBox.Render(m.snap.ErrorBox))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.snap.Busy {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(m.styles.Result.Render(m.snap.Typed))
	b.WriteString("\n")

	bar := 0.0
	if m.snap.Outcome != nil {
		bar = m.snap.Outcome.BarPercent / 100
	}
	b.WriteString(m.progress.ViewAs(bar))
	b.WriteString("\n\n")

	b.WriteString(m.styles.Stats.Render(fmt.Sprintf("Total planets %s · Habitable %s · Avg score %s",
		m.snap.Stats.Total, m.snap.Stats.Habitable, m.snap.Stats.AvgScore)))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(m.styles.Radar.Render(radarLine(m.snap.RadarAngle, radarWidth)))
	b.WriteString("\n")
	if m.lastErr != nil && !m.snap.Busy {
		b.WriteString(m.styles.ErrorBox.Render(m.lastErr.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render("enter scan · tab/↑/↓ move · ctrl+r refresh · esc quit"))
	return b.String()
}

func (m *Model) syncSnapshot() {
	m.snap = m.display.Snapshot()
	rows := make([]table.Row, 0, len(m.snap.Ranking))
	for _, r := range m.snap.Ranking {
		rows = append(rows, table.Row{r.Name, r.Score, r.Prediction})
	}
	m.table.SetRows(rows)
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	m.inputs[m.focus].Blur()
	n := len(m.inputs)
	m.focus = ((m.focus+delta)%n + n) % n
	return m.inputs[m.focus].Focus()
}

func (m Model) submitCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		outcome, err := ctrl.Submit(ctx)
		return submitDoneMsg{outcome: outcome, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.Refresh(ctx)
		return refreshDoneMsg{}
	}
}

func (m Model) bootCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.Boot(ctx)
		return refreshDoneMsg{}
	}
}

func (m Model) typeTick() tea.Cmd {
	return tea.Tick(m.opts.TypingInterval, func(time.Time) tea.Msg { return typeTickMsg{} })
}

func (m Model) radarTick() tea.Cmd {
	return tea.Tick(m.opts.RadarInterval, func(time.Time) tea.Msg { return radarTickMsg{} })
}

func (m Model) pulseTick() tea.Cmd {
	return tea.Tick(m.opts.PulseInterval, func(time.Time) tea.Msg { return pulseTickMsg{} })
}

// radarLine draws the orbit as a row of dots with the planet at the
// projection of angle onto the line.
func radarLine(angle float64, width int) string {
	if width < 3 {
		width = 3
	}
	pos := int(math.Round((math.Cos(angle) + 1) / 2 * float64(width-1)))
	cells := make([]string, width)
	for i := range cells {
		cells[i] = "·"
	}
	cells[pos] = "●"
	return "[" + strings.Join(cells, "") + "]"
}
