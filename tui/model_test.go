package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exohabit/controller"
	"exohabit/monitoring"
	"exohabit/planet"
	"exohabit/scoring"
)

type fakeController struct {
	mu        sync.Mutex
	submits   int
	refreshes int
	cancels   int
	inFlight  bool
	values    planet.RawValues
	form      *Form
}

func (f *fakeController) Submit(ctx context.Context) (*controller.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.values = f.form.Values()
	return nil, nil
}

func (f *fakeController) Refresh(ctx context.Context) {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
}

func (f *fakeController) Boot(ctx context.Context) {}

func (f *fakeController) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeController) InFlight() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

func newTestModel(t *testing.T) (Model, *fakeController, *monitoring.Display) {
	t.Helper()
	form := NewForm()
	ctrl := &fakeController{form: form}
	display := monitoring.NewDisplay("0", 5, nil, nil)
	m := New(context.Background(), ctrl, display, form, Options{})
	next, _ := m.Update(bootDoneMsg{})
	return next.(Model), ctrl, display
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestTypingFillsForm(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	m = typeText(t, m, "1.2")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "300")

	values := m.form.Values()
	assert.Equal(t, "1.2", values[planet.Radius])
	assert.Equal(t, "300", values[planet.EquilibriumTemp])

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	done, ok := cmd().(submitDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	assert.Equal(t, 1, ctrl.submits)
	assert.Equal(t, "300", ctrl.values[planet.EquilibriumTemp])

	_, _ = update(t, m, done)
}

func TestFocusWraps(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, len(planet.Fields)-1, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.focus)
}

func TestRefreshAndQuit(t *testing.T) {
	m, ctrl, _ := newTestModel(t)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	assert.IsType(t, refreshDoneMsg{}, cmd())
	assert.Equal(t, 1, ctrl.refreshes)

	ctrl.inFlight = true
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, ctrl.cancels)
	assert.Empty(t, m.View())
}

func TestViewRendersDisplay(t *testing.T) {
	m, _, display := newTestModel(t)

	display.ShowInvalid(&planet.ValidationError{Field: planet.StellarMass, Reason: planet.ReasonOutOfRange})
	display.ShowOutcome(controller.NewOutcome("x", &scoring.Prediction{Prediction: scoring.ClassOf(1), HabitabilityScore: 0.87}))
	tot, hab := 5234.0, 61.0
	display.ShowStats(scoring.Stats{TotalPlanets: &tot, HabitableCount: &hab})
	display.ShowRanking(scoring.Ranking{Entries: []scoring.RankedEntry{{Name: "Kepler-442 b", Score: 0.84}}})

	m, cmd := update(t, m, displayChangedMsg{kind: monitoring.ResultMessage})
	require.NotNil(t, cmd)
	assert.True(t, m.typing)

	// run the typewriter to completion
	for m.typing {
		m, _ = update(t, m, typeTickMsg{})
	}

	view := m.View()
	assert.Contains(t, view, "Prediction: 1 | Habitability Score: 87.00%")
	assert.Contains(t, view, controller.MsgLimitsExceeded)
	assert.Contains(t, view, "Total planets 5,234")
	assert.Contains(t, view, "Kepler-442 b")
	assert.Contains(t, view, "84.0%")
}

func TestBootScreen(t *testing.T) {
	form := NewForm()
	display := monitoring.NewDisplay("0", 5, nil, nil)
	m := New(context.Background(), &fakeController{form: form}, display, form, Options{})
	assert.Contains(t, m.View(), "Initializing")
	assert.NotNil(t, m.Init())
}

func TestRadarLine(t *testing.T) {
	line := radarLine(0, 10)
	assert.True(t, strings.HasSuffix(line, "●]"))
	assert.Equal(t, 1, strings.Count(line, "●"))

	line = radarLine(3.14159, 10)
	assert.True(t, strings.HasPrefix(line, "[●"))
}

type recordingSender struct {
	ch chan tea.Msg
}

func (r *recordingSender) Send(msg tea.Msg) { r.ch <- msg }

func TestPublisherForwardsChanges(t *testing.T) {
	pub := &programPublisher{}
	require.NoError(t, pub.Publish(monitoring.BusyMessage, nil))

	sender := &recordingSender{ch: make(chan tea.Msg, 1)}
	pub.attach(sender)
	require.NoError(t, pub.Publish(monitoring.StatsMessage, nil))
	assert.Equal(t, displayChangedMsg{kind: monitoring.StatsMessage}, <-sender.ch)
}
