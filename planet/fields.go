// Package planet holds the six physical parameters a habitability prediction
// is made from, their scientific ranges and the client-side validation rules.
package planet

// Field names one physical parameter. The string value is the wire key.
type Field string

const (
	Radius             Field = "pl_rade"
	EquilibriumTemp    Field = "pl_eqt"
	OrbitalPeriod      Field = "pl_orbper"
	StellarTemperature Field = "st_teff"
	StellarMass        Field = "st_mass"
	StellarRadius      Field = "st_rad"
)

// Fields lists every parameter in validation order.
var Fields = []Field{
	Radius,
	EquilibriumTemp,
	OrbitalPeriod,
	StellarTemperature,
	StellarMass,
	StellarRadius,
}

// Range is an inclusive [Min, Max] bound.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the range, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ScientificRanges are sanity bounds for form input, not physical validation.
var ScientificRanges = map[Field]Range{
	Radius:             {Min: 0.1, Max: 20},
	EquilibriumTemp:    {Min: 50, Max: 2000},
	OrbitalPeriod:      {Min: 0, Max: 5000},
	StellarTemperature: {Min: 2000, Max: 10000},
	StellarMass:        {Min: 0.1, Max: 5},
	StellarRadius:      {Min: 0.1, Max: 10},
}

var labels = map[Field]string{
	Radius:             "Planet radius (Earth radii)",
	EquilibriumTemp:    "Equilibrium temperature (K)",
	OrbitalPeriod:      "Orbital period (days)",
	StellarTemperature: "Stellar effective temperature (K)",
	StellarMass:        "Stellar mass (Solar masses)",
	StellarRadius:      "Stellar radius (Solar radii)",
}

// Label returns a human readable name for the field.
func (f Field) Label() string {
	if l, ok := labels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is one of the six known parameters.
func (f Field) Valid() bool {
	_, ok := labels[f]
	return ok
}

// RawValues is the text currently typed into each form field.
type RawValues map[Field]string

// EarthLike returns a reference input that passes every range check.
func EarthLike() RawValues {
	return RawValues{
		Radius:             "1.0",
		EquilibriumTemp:    "288",
		OrbitalPeriod:      "365",
		StellarTemperature: "5778",
		StellarMass:        "1.0",
		StellarRadius:      "1.0",
	}
}
