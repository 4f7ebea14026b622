package agent

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nstehr/vimy/prospector/model"
)

// EventKind identifies a fleet change detected between two consecutive turns.
type EventKind string

const (
	EventShipSpawned  EventKind = "ship_spawned"
	EventShipLost     EventKind = "ship_lost"
	EventDropoffBuilt EventKind = "dropoff_built"
	EventFleetStalled EventKind = "fleet_stalled"
)

// Event is one detected change, logged and folded into the game record.
type Event struct {
	Kind   EventKind
	Turn   int
	ShipID int // -1 when the event is not about one ship
	Detail string
}

// stalledFloor keeps fleet_stalled quiet while the fleet is tiny.
const stalledFloor = 4

// fleetSnapshot captures the diffable fields of one turn.
type fleetSnapshot struct {
	turn     int
	ships    map[int]model.Position // id → position
	dropoffs int
	stuck    int
}

func takeSnapshot(gs *model.GameState, stuck int) fleetSnapshot {
	snap := fleetSnapshot{
		turn:     gs.Turn,
		ships:    make(map[int]model.Position, len(gs.Me.Ships)),
		dropoffs: len(gs.Me.Dropoffs),
		stuck:    stuck,
	}
	for _, s := range gs.Me.Ships {
		snap.ships[s.ID] = s.Position
	}
	return snap
}

// detectEvents compares cur against the previous snapshot. Returns nil if
// prev is nil (first turn of the game).
func detectEvents(prev *fleetSnapshot, cur fleetSnapshot) []Event {
	if prev == nil {
		return nil
	}

	var events []Event

	for _, id := range slices.Sorted(maps.Keys(cur.ships)) {
		if _, ok := prev.ships[id]; !ok {
			events = append(events, Event{
				Kind:   EventShipSpawned,
				Turn:   cur.turn,
				ShipID: id,
				Detail: fmt.Sprintf("ship %d appeared at %s", id, cur.ships[id]),
			})
		}
	}

	// A ship that vanished without a new dropoff collided or ran out of turns;
	// one that vanished alongside a new dropoff was converted.
	converted := cur.dropoffs - prev.dropoffs
	for _, id := range slices.Sorted(maps.Keys(prev.ships)) {
		pos := prev.ships[id]
		if _, ok := cur.ships[id]; ok {
			continue
		}
		if converted > 0 {
			converted--
			events = append(events, Event{
				Kind:   EventDropoffBuilt,
				Turn:   cur.turn,
				ShipID: id,
				Detail: fmt.Sprintf("ship %d converted near %s", id, pos),
			})
			continue
		}
		events = append(events, Event{
			Kind:   EventShipLost,
			Turn:   cur.turn,
			ShipID: id,
			Detail: fmt.Sprintf("ship %d lost at %s", id, pos),
		})
	}

	// More than half the fleet stuck, and it just got that way.
	if len(cur.ships) >= stalledFloor && 2*cur.stuck > len(cur.ships) && 2*prev.stuck <= len(prev.ships) {
		events = append(events, Event{
			Kind:   EventFleetStalled,
			Turn:   cur.turn,
			ShipID: -1,
			Detail: fmt.Sprintf("%d of %d ships stuck", cur.stuck, len(cur.ships)),
		})
	}

	return events
}
