package dispatch

import (
	"sort"
	"sync"
	"time"
)

// Unit is one tracked field unit, keyed by callsign.
type Unit struct {
	Callsign    string    `json:"callsign"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// Registry tracks unit status by callsign. The single transcript consumer
// is the only writer today; the mutex keeps the registry safe if another
// worker is ever added.
type Registry struct {
	mu    sync.RWMutex
	units map[string]*Unit
	now   func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units: make(map[string]*Unit),
		now:   time.Now,
	}
}

// SetStatus upserts the unit. Setting the status a unit already has is a
// no-op: state, including LastUpdated, is left unchanged.
func (r *Registry) SetStatus(callsign string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	unit, ok := r.units[callsign]
	if !ok {
		r.units[callsign] = &Unit{Callsign: callsign, Status: status, LastUpdated: r.now()}
		return
	}
	if unit.Status == status {
		return
	}
	unit.Status = status
	unit.LastUpdated = r.now()
}

// Get returns a copy of the unit for a callsign.
func (r *Registry) Get(callsign string) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	unit, ok := r.units[callsign]
	if !ok {
		return Unit{}, false
	}
	return *unit, true
}

// Units returns all units sorted by callsign.
func (r *Registry) Units() []Unit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Unit, 0, len(r.units))
	for _, unit := range r.units {
		out = append(out, *unit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Callsign < out[j].Callsign })
	return out
}

// Len returns the number of tracked units.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Snapshot returns the units for persistence, sorted by callsign.
func (r *Registry) Snapshot() []Unit {
	return r.Units()
}

// Load replaces the registry contents with a persisted snapshot.
func (r *Registry) Load(units []Unit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = make(map[string]*Unit, len(units))
	for _, unit := range units {
		u := unit
		r.units[u.Callsign] = &u
	}
}
