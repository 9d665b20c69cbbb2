package planet

import (
	"encoding/json"
	"math"
)

// PredictionRequest is the body posted to the scoring service. It always
// carries all six fields.
type PredictionRequest map[Field]float64

// BuildRequest converts raw form text into a request body. Missing or
// unparseable values become 0 so the payload shape never changes; so do
// infinities, which JSON cannot carry.
func BuildRequest(values RawValues) PredictionRequest {
	req := make(PredictionRequest, len(Fields))
	for _, f := range Fields {
		v, ok := ParseValue(values[f])
		if !ok || math.IsInf(v, 0) {
			v = 0
		}
		req[f] = v
	}
	return req
}

// MarshalJSON writes the fields with their wire names.
func (r PredictionRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(Fields))
	for _, f := range Fields {
		out[string(f)] = r[f]
	}
	return json.Marshal(out)
}
