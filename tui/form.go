package tui

import (
	"sync"

	"exohabit/planet"
)

// Form mirrors the text inputs so the controller can read them from its
// own goroutine.
type Form struct {
	mu     sync.RWMutex
	values planet.RawValues
}

func NewForm() *Form {
	return &Form{values: planet.RawValues{}}
}

func (f *Form) Values() planet.RawValues {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(planet.RawValues, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

func (f *Form) set(field planet.Field, value string) {
	f.mu.Lock()
	f.values[field] = value
	f.mu.Unlock()
}
