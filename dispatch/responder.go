package dispatch

import (
	"fmt"
)

// Responder applies interpreted commands to the registry and produces the
// spoken reply for each.
type Responder struct {
	registry *Registry
	engine   *Engine
	codes    *CodeTable
}

// NewResponder creates a responder over the shared registry, engine, and
// code table.
func NewResponder(registry *Registry, engine *Engine, codes *CodeTable) *Responder {
	if codes == nil {
		codes = NewCodeTable()
	}
	return &Responder{registry: registry, engine: engine, codes: codes}
}

// Apply mutates state per the command and returns the reply to speak. An
// empty string means nothing should be said.
func (r *Responder) Apply(cmd Command) string {
	switch cmd.Kind {
	case KindCodeLookup:
		meaning, ok := r.codes.Lookup(cmd.Code)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%s, %s.", cmd.Code, meaning)

	case KindStatusUpdate:
		if cmd.Callsign == "" {
			return ""
		}
		// A repeated status report leaves the registry untouched but is
		// still acknowledged on the air.
		r.registry.SetStatus(cmd.Callsign, cmd.Status)
		return fmt.Sprintf("%s is now %s", cmd.Callsign, cmd.Status.Code())

	case KindDispatchRequest:
		callsign, ok := r.engine.Assign()
		if !ok {
			return "No units are currently available."
		}
		return fmt.Sprintf("Dispatching %s to the call.", callsign)

	case KindGreeting:
		if cmd.Callsign == "" {
			return "Hello!"
		}
		return fmt.Sprintf("Hello %s!", cmd.Callsign)
	}
	return ""
}
