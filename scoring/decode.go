package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// UnknownName is shown for ranked entries without a usable name.
const UnknownName = "Unknown"

// Alias lists are tried in order; the first key holding a usable value wins.
var (
	NameAliases  = []string{"pl_name", "name"}
	ScoreAliases = []string{"habitability_score", "score"}
)

var errRankStatus = errors.New("rank response is not a success envelope")

type rankEnvelope struct {
	Status   string            `json:"status"`
	Data     []json.RawMessage `json:"data"`
	Metadata *RankMetadata     `json:"metadata"`
}

// decodeRanking accepts the {status, data, metadata} envelope, which is the
// canonical format, and a bare array of entries.
func decodeRanking(body []byte) (*Ranking, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty rank response")
	}

	var (
		items   []json.RawMessage
		ranking = &Ranking{}
	)
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
	case '{':
		var env rankEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		if env.Status != "success" || env.Data == nil {
			return nil, fmt.Errorf("%w (status %q)", errRankStatus, env.Status)
		}
		items = env.Data
		ranking.Status = env.Status
		ranking.Metadata = env.Metadata
	default:
		return nil, fmt.Errorf("unexpected rank response starting with %q", trimmed[0])
	}

	ranking.Entries = make([]RankedEntry, 0, len(items))
	for i, item := range items {
		entry, err := decodeRankedEntry(item)
		if err != nil {
			return nil, fmt.Errorf("rank entry %d: %w", i, err)
		}
		ranking.Entries = append(ranking.Entries, entry)
	}
	return ranking, nil
}

func decodeRankedEntry(raw json.RawMessage) (RankedEntry, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return RankedEntry{}, err
	}

	entry := RankedEntry{Name: UnknownName}
	for _, key := range NameAliases {
		var name string
		if v, ok := fields[key]; ok && json.Unmarshal(v, &name) == nil && name != "" {
			entry.Name = name
			break
		}
	}
	for _, key := range ScoreAliases {
		var score *float64
		if v, ok := fields[key]; ok && json.Unmarshal(v, &score) == nil && score != nil {
			entry.Score = *score
			break
		}
	}
	if v, ok := fields["prediction"]; ok {
		if err := entry.Prediction.UnmarshalJSON(v); err != nil {
			return RankedEntry{}, err
		}
	}
	return entry, nil
}
