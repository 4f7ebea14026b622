package rules

import (
	"math/rand"

	"github.com/nstehr/vimy/prospector/model"
)

// RuleEnv wraps the turn's snapshot and exposes helper methods callable from
// expr expressions. Ship is the ship under evaluation in the ship pass and
// the zero value in the shipyard pass.
type RuleEnv struct {
	State    *model.GameState
	Ship     model.Ship
	Registry *Registry
	Doctrine Doctrine
	Rand     *rand.Rand
}

// --- game-wide helpers ---

func (e RuleEnv) Turn() int          { return e.State.Turn }
func (e RuleEnv) MaxTurns() int      { return e.State.Constants.MaxTurns }
func (e RuleEnv) MaxHalite() int     { return e.State.Constants.MaxHalite }
func (e RuleEnv) ShipCost() int      { return e.State.Constants.ShipCost }
func (e RuleEnv) DropoffCost() int   { return e.State.Constants.DropoffCost }
func (e RuleEnv) MoveCostRatio() int { return e.State.Constants.MoveCostRatio }

// Banked is the halite the player holds, available for spawning.
func (e RuleEnv) Banked() int { return e.State.Me.Halite }

func (e RuleEnv) ShipCount() int { return len(e.State.Me.Ships) }

func (e RuleEnv) ShipyardOccupied() bool {
	return e.State.Map.At(e.State.Me.Shipyard).Occupied
}

func (e RuleEnv) DropoffBuilt() bool { return e.Registry.DropoffBuilt() }

// --- ship helpers ---

// Halite is the cargo of the ship under evaluation.
func (e RuleEnv) Halite() int { return e.Ship.Halite }

func (e RuleEnv) CellHalite() int { return e.State.Map.At(e.Ship.Position).Halite }

func (e RuleEnv) OccupiedNeighbors() int {
	return e.State.Map.OccupiedCardinals(e.Ship.Position)
}

func (e RuleEnv) Full() bool { return e.Ship.IsFull(e.State.Constants.MaxHalite) }

// Arrived reports whether the ship stands on its assigned destination.
func (e RuleEnv) Arrived() bool {
	dest, ok := e.Registry.Get(e.Ship.ID)
	return ok && e.State.Map.Normalize(dest) == e.State.Map.Normalize(e.Ship.Position)
}

func (e RuleEnv) Busy() bool { return e.Registry.IsBusy(e.Ship) }

func (e RuleEnv) Stuck() bool { return e.Registry.IsStuck(e.Ship.ID) }

func (e RuleEnv) AtShipyard() bool {
	return e.State.Map.Normalize(e.Ship.Position) == e.State.Map.Normalize(e.State.Me.Shipyard)
}

// freeNeighbors lists the unoccupied cardinal neighbours of the ship.
func (e RuleEnv) freeNeighbors() []model.Position {
	var out []model.Position
	for _, p := range e.State.Map.Cardinals(e.Ship.Position) {
		if !e.State.Map.At(p).Occupied {
			out = append(out, p)
		}
	}
	return out
}

// bestUnclaimedCell returns the richest cell in the search square that no
// ship is already heading to. Ties keep the first cell in scan order.
func (e RuleEnv) bestUnclaimedCell() (model.Position, bool) {
	claimed := e.Registry.Claimed()
	var best model.Position
	bestHalite := -1
	for _, p := range e.State.Map.Square(e.Ship.Position, e.Doctrine.SearchRadius) {
		if claimed[p] {
			continue
		}
		if h := e.State.Map.At(p).Halite; h > bestHalite {
			best, bestHalite = p, h
		}
	}
	return best, bestHalite >= 0
}
