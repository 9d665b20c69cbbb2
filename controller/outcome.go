package controller

import (
	"fmt"
	"math"
	"time"

	"exohabit/scoring"

	"github.com/shopspring/decimal"
)

// Messages written to the result surface.
const (
	MsgScanning         = "🧠 Neural AI scanning planetary signals..."
	MsgInvalidInput     = "❌ Invalid scientific input."
	MsgConnectionFailed = "❌ AI Connection Failed."
	MsgLimitsExceeded   = "⚠ Scientific limits exceeded."
)

var hundred = decimal.NewFromInt(100)

// Outcome is the rendered result of one successful submission.
type Outcome struct {
	ID           string             `json:"id"`
	Prediction   scoring.Class      `json:"prediction"`
	Score        float64            `json:"habitability_score"`
	ScorePercent float64            `json:"score_percent"`
	BarPercent   float64            `json:"bar_percent"`
	Text         string             `json:"text"`
	Model        string             `json:"model,omitempty"`
	Insights     map[string]float64 `json:"insights,omitempty"`
	At           time.Time          `json:"at"`
}

// NewOutcome derives the display values for a prediction: the score as a
// percentage rounded to two decimals, and the bar width as that percentage
// clamped to [0,100].
func NewOutcome(id string, p *scoring.Prediction) Outcome {
	score := p.HabitabilityScore
	if math.IsNaN(score) || math.IsInf(score, 0) {
		score = 0
	}
	pct := decimal.NewFromFloat(score).Mul(hundred).Round(2)

	return Outcome{
		ID:           id,
		Prediction:   p.Prediction,
		Score:        score,
		ScorePercent: pct.InexactFloat64(),
		BarPercent:   math.Max(0, math.Min(100, pct.InexactFloat64())),
		Text:         fmt.Sprintf("Prediction: %s | Habitability Score: %s%%", p.Prediction, pct.StringFixed(2)),
		Model:        p.Model,
		Insights:     p.Insights,
		At:           time.Now(),
	}
}
