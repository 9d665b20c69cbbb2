package scoring

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Class is the classification returned by the service. Any JSON value is
// accepted; an absent or null value reads as 0.
type Class struct {
	raw json.RawMessage
}

// ClassOf wraps a Go value as a Class. Used by tests and fakes.
func ClassOf(v any) Class {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return Class{}
	}
	return Class{raw: b}
}

func (c *Class) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		c.raw = nil
		return nil
	}
	c.raw = append(c.raw[:0], b...)
	return nil
}

func (c Class) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte("0"), nil
	}
	return c.raw, nil
}

// Present reports whether the service sent a non-null value.
func (c Class) Present() bool {
	return len(c.raw) > 0
}

// String renders numbers without trailing zeros, strings verbatim and any
// other value as compact JSON.
func (c Class) String() string {
	if len(c.raw) == 0 {
		return "0"
	}
	var f float64
	if err := json.Unmarshal(c.raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var s string
	if err := json.Unmarshal(c.raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, c.raw); err == nil {
		return buf.String()
	}
	return string(c.raw)
}

// Prediction is the decoded /predict response.
type Prediction struct {
	Status            string             `json:"status,omitempty"`
	Prediction        Class              `json:"prediction"`
	HabitabilityScore float64            `json:"habitability_score"`
	Insights          map[string]float64 `json:"insights,omitempty"`
	Model             string             `json:"model,omitempty"`
}

type predictResponse struct {
	Status            string             `json:"status"`
	Prediction        Class              `json:"prediction"`
	HabitabilityScore *float64           `json:"habitability_score"`
	Insights          map[string]float64 `json:"insights"`
	Model             string             `json:"model"`
}

func (r predictResponse) toPrediction() *Prediction {
	p := &Prediction{
		Status:     r.Status,
		Prediction: r.Prediction,
		Insights:   r.Insights,
		Model:      r.Model,
	}
	if r.HabitabilityScore != nil {
		p.HabitabilityScore = *r.HabitabilityScore
	}
	return p
}

// Stats is the /stats payload. Nil fields were not sent.
type Stats struct {
	Status         string   `json:"status,omitempty"`
	TotalPlanets   *float64 `json:"total_planets,omitempty"`
	HabitableCount *float64 `json:"habitable_count,omitempty"`
	AvgScore       *float64 `json:"avg_score,omitempty"`
	MinScore       *float64 `json:"min_score,omitempty"`
	MaxScore       *float64 `json:"max_score,omitempty"`
}

// RankedEntry is one leaderboard row after alias resolution.
type RankedEntry struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Prediction Class   `json:"prediction"`
}

// RankMetadata accompanies an enveloped ranking.
type RankMetadata struct {
	TotalRows      *float64 `json:"total_rows,omitempty"`
	HabitableCount *float64 `json:"habitable_count,omitempty"`
	AvgScore       *float64 `json:"avg_score,omitempty"`
}

// Ranking is the decoded /rank response.
type Ranking struct {
	Status   string        `json:"status,omitempty"`
	Entries  []RankedEntry `json:"entries"`
	Metadata *RankMetadata `json:"metadata,omitempty"`
}
