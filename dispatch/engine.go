package dispatch

// Engine chooses units for incoming dispatch requests.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine over the given registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Assign picks the AVAILABLE unit with the earliest LastUpdated, breaking
// ties by callsign order, marks it BUSY, and returns its callsign. ok is
// false when no unit is available; nothing is mutated in that case.
func (e *Engine) Assign() (string, bool) {
	e.registry.mu.Lock()
	defer e.registry.mu.Unlock()

	var chosen *Unit
	for _, unit := range e.registry.units {
		if unit.Status != StatusAvailable {
			continue
		}
		if chosen == nil ||
			unit.LastUpdated.Before(chosen.LastUpdated) ||
			(unit.LastUpdated.Equal(chosen.LastUpdated) && unit.Callsign < chosen.Callsign) {
			chosen = unit
		}
	}
	if chosen == nil {
		return "", false
	}

	chosen.Status = StatusBusy
	chosen.LastUpdated = e.registry.now()
	return chosen.Callsign, true
}
