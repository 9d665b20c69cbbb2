// Package monitoring keeps the latest display state and pushes every change
// to connected dashboards.
package monitoring

import (
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"exohabit/animation"
	"exohabit/controller"
	"exohabit/planet"
	"exohabit/scoring"
)

// Missing is shown for a stat the service did not send.
const Missing = "--"

// StatsPanel is the formatted aggregate panel.
type StatsPanel struct {
	Total     string `json:"total"`
	Habitable string `json:"habitable"`
	AvgScore  string `json:"avg_score"`
}

// RankRow is one formatted leaderboard row.
type RankRow struct {
	Name       string `json:"name"`
	Score      string `json:"score"`
	Prediction string `json:"prediction"`
}

// Snapshot is a copy of everything the display currently shows.
type Snapshot struct {
	Message      string               `json:"message"`
	Typed        string               `json:"typed"`
	Busy         bool                 `json:"busy"`
	InvalidField planet.Field         `json:"invalid_field,omitempty"`
	ErrorBox     string               `json:"error_box,omitempty"`
	Outcome      *controller.Outcome  `json:"outcome,omitempty"`
	Stats        StatsPanel           `json:"stats"`
	Ranking      []RankRow            `json:"ranking"`
	Recent       []controller.Outcome `json:"recent"`
	RadarAngle   float64              `json:"radar_angle"`
	Pulse        bool                 `json:"pulse"`
	Heartbeats   int64                `json:"heartbeats"`
}

type heartbeat struct {
	Beats      int64   `json:"beats"`
	RadarAngle float64 `json:"radar_angle"`
	Busy       bool    `json:"busy"`
}

// Display implements controller.Renderer. It holds only the latest state
// plus a bounded history of recent outcomes.
type Display struct {
	mu          sync.RWMutex
	placeholder string
	publisher   Publisher
	logger      *zap.Logger
	printer     *message.Printer

	message  string
	busy     bool
	invalid  *planet.ValidationError
	errorBox string
	outcome  *controller.Outcome
	stats    StatsPanel
	ranking  []RankRow
	recent   *lru.Cache[string, controller.Outcome]

	typer animation.Typewriter
	radar *animation.Radar
	pulse *animation.Pulse
}

// NewDisplay creates a display. publisher may be nil; historySize bounds
// the recent-outcome list.
func NewDisplay(placeholder string, historySize int, publisher Publisher, logger *zap.Logger) *Display {
	if placeholder == "" {
		placeholder = "0"
	}
	if historySize <= 0 {
		historySize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	recent, _ := lru.New[string, controller.Outcome](historySize)
	return &Display{
		placeholder: placeholder,
		publisher:   publisher,
		logger:      logger.Named("display"),
		printer:     message.NewPrinter(language.English),
		stats:       StatsPanel{Total: Missing, Habitable: Missing, AvgScore: Missing},
		recent:      recent,
		radar:       animation.NewRadar(animation.RadarStep),
		pulse:       animation.NewPulse(animation.PulseHold),
	}
}

func (d *Display) SetBusy(busy bool) {
	d.mu.Lock()
	d.busy = busy
	d.mu.Unlock()
	d.publish(BusyMessage, map[string]bool{"busy": busy})
}

func (d *Display) ShowMessage(text string) {
	d.mu.Lock()
	d.message = text
	d.typer.Type(text)
	d.mu.Unlock()
	d.publish(StatusMessage, map[string]string{"message": text})
}

func (d *Display) ShowInvalid(err *planet.ValidationError) {
	d.mu.Lock()
	d.invalid = err
	d.errorBox = ""
	if err != nil && err.Reason == planet.ReasonOutOfRange {
		d.errorBox = controller.MsgLimitsExceeded
	}
	payload := map[string]string{"field": "", "reason": "", "error_box": d.errorBox}
	if err != nil {
		payload["field"] = string(err.Field)
		payload["reason"] = err.Reason
	}
	d.mu.Unlock()
	d.publish(InvalidMessage, payload)
}

func (d *Display) ShowOutcome(o controller.Outcome) {
	d.mu.Lock()
	d.outcome = &o
	d.message = o.Text
	d.typer.Type(o.Text)
	d.recent.Add(o.ID, o)
	d.mu.Unlock()
	d.publish(ResultMessage, o)
}

func (d *Display) ShowStats(s scoring.Stats) {
	d.mu.Lock()
	d.stats = StatsPanel{
		Total:     d.count(s.TotalPlanets),
		Habitable: d.count(s.HabitableCount),
		AvgScore:  average(s.AvgScore),
	}
	panel := d.stats
	d.mu.Unlock()
	d.publish(StatsMessage, panel)
}

func (d *Display) ShowRanking(r scoring.Ranking) {
	rows := make([]RankRow, 0, len(r.Entries))
	for _, e := range r.Entries {
		pred := d.placeholder
		if e.Prediction.Present() {
			pred = e.Prediction.String()
		}
		rows = append(rows, RankRow{
			Name:       e.Name,
			Score:      percent(e.Score) + "%",
			Prediction: pred,
		})
	}

	d.mu.Lock()
	d.ranking = rows
	statsChanged := false
	if md := r.Metadata; md != nil {
		d.stats.Total = d.count(md.TotalRows)
		d.stats.Habitable = d.count(md.HabitableCount)
		if avg := average(md.AvgScore); avg != Missing {
			d.stats.AvgScore = avg
		}
		statsChanged = true
	}
	panel := d.stats
	d.mu.Unlock()

	d.publish(RankingMessage, rows)
	if statsChanged {
		d.publish(StatsMessage, panel)
	}
}

// StepTyping reveals the next rune of the current message.
func (d *Display) StepTyping() bool {
	return d.typer.Step()
}

// AdvanceRadar moves the orbiting planet one frame.
func (d *Display) AdvanceRadar() float64 {
	return d.radar.Advance()
}

// Heartbeat records a pulse and pushes it to the dashboards.
func (d *Display) Heartbeat(now time.Time) int64 {
	beats := d.pulse.Beat(now)
	d.mu.RLock()
	busy := d.busy
	d.mu.RUnlock()
	d.publish(HeartbeatMessage, heartbeat{Beats: beats, RadarAngle: d.radar.Angle(), Busy: busy})
	return beats
}

// Recent returns remembered outcomes, oldest first.
func (d *Display) Recent() []controller.Outcome {
	return d.recent.Values()
}

func (d *Display) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s := Snapshot{
		Message:    d.message,
		Typed:      d.typer.Text(),
		Busy:       d.busy,
		ErrorBox:   d.errorBox,
		Stats:      d.stats,
		Ranking:    append([]RankRow(nil), d.ranking...),
		Recent:     d.recent.Values(),
		RadarAngle: d.radar.Angle(),
		Pulse:      d.pulse.Bright(time.Now()),
		Heartbeats: d.pulse.Beats(),
	}
	if d.invalid != nil {
		s.InvalidField = d.invalid.Field
	}
	if d.outcome != nil {
		o := *d.outcome
		s.Outcome = &o
	}
	return s
}

func (d *Display) publish(t MessageType, data any) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(t, data); err != nil {
		d.logger.Warn("publish failed", zap.String("type", string(t)), zap.Error(err))
	}
}

// count renders an integral value with thousands separators.
func (d *Display) count(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Missing
	}
	if *v == math.Trunc(*v) {
		return d.printer.Sprintf("%d", int64(*v))
	}
	return d.printer.Sprintf("%.1f", *v)
}

// average renders a [0,1] score as a one-decimal percentage; zero and
// missing values read as Missing.
func average(v *float64) string {
	if v == nil || *v == 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return Missing
	}
	return percent(*v) + "%"
}

func percent(score float64) string {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}
	return decimal.NewFromFloat(score).Mul(decimal.NewFromInt(100)).StringFixed(1)
}
