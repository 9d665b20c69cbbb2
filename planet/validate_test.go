package planet

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEarthLike(t *testing.T) {
	require.NoError(t, Validate(EarthLike()))
}

func TestValidateNonNumericEachField(t *testing.T) {
	for _, f := range Fields {
		t.Run(string(f), func(t *testing.T) {
			values := EarthLike()
			values[f] = "abc"

			err := Validate(values)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, f, verr.Field)
			assert.Equal(t, ReasonNonNumeric, verr.Reason)
		})
	}
}

func TestValidateOutOfRangeEachField(t *testing.T) {
	for _, f := range Fields {
		r := ScientificRanges[f]
		for _, v := range []float64{r.Min - 0.05, r.Max + 1} {
			values := EarthLike()
			values[f] = formatFloat(v)

			err := Validate(values)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "field %s value %v", f, v)
			assert.Equal(t, f, verr.Field)
			assert.Equal(t, ReasonOutOfRange, verr.Reason)
		}
	}
}

func TestValidateBoundsInclusive(t *testing.T) {
	for _, f := range Fields {
		r := ScientificRanges[f]
		for _, v := range []float64{r.Min, r.Max} {
			values := EarthLike()
			values[f] = formatFloat(v)
			assert.NoError(t, Validate(values), "field %s value %v", f, v)
		}
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	values := EarthLike()
	values[StellarRadius] = "nope"
	values[EquilibriumTemp] = "1"
	values[StellarMass] = "99"

	err := Validate(values)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, EquilibriumTemp, verr.Field)
	assert.Equal(t, ReasonOutOfRange, verr.Reason)
	assert.Equal(t, "pl_eqt out of range [50,2000]", verr.Error())
}

func TestValidateMissingField(t *testing.T) {
	values := EarthLike()
	delete(values, OrbitalPeriod)

	var verr *ValidationError
	require.True(t, errors.As(Validate(values), &verr))
	assert.Equal(t, OrbitalPeriod, verr.Field)
	assert.Equal(t, ReasonNonNumeric, verr.Reason)
}

func TestParseValue(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1.5", 1.5, true},
		{"  288 ", 288, true},
		{"1.5abc", 1.5, true},
		{"-3e2K", -300, true},
		{"1e", 1, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"-", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
		{"+Inf", 0, false},
		{"0x1p4", 0, true},
		{"1_000", 1, true},
		{"Infinity", math.Inf(1), true},
		{"-Infinity km", math.Inf(-1), true},
		{"1e999", math.Inf(1), true},
	}
	for _, c := range cases {
		got, ok := ParseValue(c.raw)
		assert.Equal(t, c.ok, ok, "raw %q", c.raw)
		if c.ok {
			assert.Equal(t, c.want, got, "raw %q", c.raw)
		}
	}
}

func TestValidateRejectsNonDecimalSpellings(t *testing.T) {
	values := EarthLike()
	values[Radius] = "inf"
	var verr *ValidationError
	require.ErrorAs(t, Validate(values), &verr)
	assert.Equal(t, Radius, verr.Field)
	assert.Equal(t, ReasonNonNumeric, verr.Reason)

	values = EarthLike()
	values[Radius] = "Infinity"
	require.ErrorAs(t, Validate(values), &verr)
	assert.Equal(t, ReasonOutOfRange, verr.Reason)

	values = EarthLike()
	values[OrbitalPeriod] = "0x1p4"
	require.NoError(t, Validate(values))
	assert.Equal(t, 0.0, BuildRequest(values)[OrbitalPeriod])

	values[OrbitalPeriod] = "Infinity"
	_, err := json.Marshal(BuildRequest(values))
	require.NoError(t, err)
}

func TestBuildRequestCoercesToZero(t *testing.T) {
	values := EarthLike()
	values[StellarMass] = "heavy"
	delete(values, StellarRadius)

	req := BuildRequest(values)
	require.Len(t, req, len(Fields))
	assert.Equal(t, 0.0, req[StellarMass])
	assert.Equal(t, 0.0, req[StellarRadius])
	assert.Equal(t, 5778.0, req[StellarTemperature])

	body, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pl_rade":1,"pl_eqt":288,"pl_orbper":365,"st_teff":5778,"st_mass":0,"st_rad":0}`, string(body))
}

func formatFloat(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
