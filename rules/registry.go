package rules

import "github.com/nstehr/vimy/prospector/model"

// StuckThreshold is the number of busy turns after which a ship counts as stuck.
const StuckThreshold = 4

// Registry gives ships persistent intent across turns: where each one is
// heading and how long it has been on the way. One Registry lives for the
// whole game and is owned by the session driving the engine.
//
// Entries are never deleted. Clear leaves the ship present with no
// destination, and busy counters only ever grow.
type Registry struct {
	destinations map[int]destination
	busyTurns    map[int]int
	dropoffBuilt bool
}

type destination struct {
	pos model.Position
	set bool
}

// NewRegistry returns an empty registry for a new game.
func NewRegistry() *Registry {
	return &Registry{
		destinations: make(map[int]destination),
		busyTurns:    make(map[int]int),
	}
}

// Get returns the ship's destination, or false if it has none.
func (r *Registry) Get(shipID int) (model.Position, bool) {
	d := r.destinations[shipID]
	return d.pos, d.set
}

// Set overwrites the ship's destination.
func (r *Registry) Set(shipID int, dest model.Position) {
	r.destinations[shipID] = destination{pos: dest, set: true}
}

// IsBusy reports whether the ship has a destination it has not reached yet.
func (r *Registry) IsBusy(ship model.Ship) bool {
	dest, ok := r.Get(ship.ID)
	return ok && dest != ship.Position
}

// Clear drops the ship's destination. Call it when the ship arrives.
func (r *Registry) Clear(shipID int) {
	r.destinations[shipID] = destination{}
}

// MarkBusy counts one more turn spent travelling.
func (r *Registry) MarkBusy(shipID int) {
	r.busyTurns[shipID]++
}

// BusyTurns is the number of turns the ship has spent travelling, over the
// whole game.
func (r *Registry) BusyTurns(shipID int) int { return r.busyTurns[shipID] }

// IsStuck reports whether the ship has been busy for more than StuckThreshold
// turns. Exactly StuckThreshold is not stuck.
func (r *Registry) IsStuck(shipID int) bool {
	return r.busyTurns[shipID] > StuckThreshold
}

// Claimed returns every destination currently assigned to some ship.
func (r *Registry) Claimed() map[model.Position]bool {
	out := make(map[model.Position]bool, len(r.destinations))
	for _, d := range r.destinations {
		if d.set {
			out[d.pos] = true
		}
	}
	return out
}

// Len counts ships the registry has ever seen.
func (r *Registry) Len() int { return len(r.destinations) }

// DropoffBuilt reports whether a ship has been converted this game.
func (r *Registry) DropoffBuilt() bool { return r.dropoffBuilt }

// MarkDropoffBuilt records that a ship has been converted. The flag is never
// cleared for the rest of the game.
func (r *Registry) MarkDropoffBuilt() { r.dropoffBuilt = true }
