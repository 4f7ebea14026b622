package rules

import (
	"math"

	"github.com/nstehr/vimy/prospector/nav"
)

// Doctrine is one bot variant: the tunables the compiler turns into a rule set.
type Doctrine struct {
	Name string

	// Spawning stops after SpawnUntilTurn when it is positive, otherwise
	// after SpawnUntilFraction of the game's max turns.
	SpawnUntilTurn     int
	SpawnUntilFraction float64

	LowYieldFraction float64 // relocate when the cell holds less than this share of max halite
	SearchRadius     int     // half-width of the square searched for a richer cell
	CrowdThreshold   int     // escape when more than this many cardinal neighbours are occupied

	// Ships head home once cargo reaches this share of max halite. 1 means
	// only when full; 0 is treated as 1.
	ReturnFraction float64

	EndgameTurns int  // 0 disables the endgame rush
	LeaveBase    bool // step off the shipyard so spawns are not blocked
	FuelCheck    bool // stay put when cargo cannot pay the move cost; opt-in from doctrine files

	Navigation NavigationPlan
}

// NavigationPlan picks a strategy per situation.
type NavigationPlan struct {
	Travel    nav.Strategy // en route to an assigned destination
	Return    nav.Strategy // heading home full
	Explore   nav.Strategy // leaving a depleted cell
	Endgame   nav.Strategy
	LeaveBase nav.Strategy
}

// RegistryDoctrine is the registry-driven bot: spawns for the first 200
// turns, relocates below 10% and navigates safely everywhere.
func RegistryDoctrine() Doctrine {
	return Doctrine{
		Name:             "registry",
		SpawnUntilTurn:   200,
		LowYieldFraction: 0.10,
		SearchRadius:     5,
		CrowdThreshold:   2,
		ReturnFraction:   1,
		Navigation: NavigationPlan{
			Travel:    nav.Safe,
			Return:    nav.Safe,
			Explore:   nav.Safe,
			Endgame:   nav.Rush,
			LeaveBase: nav.Evasive,
		},
	}
}

// RushDoctrine is the endgame variant: spawns for the first 30% of the game,
// relocates below 5%, returns at 75% cargo and sends every ship home for the
// last 20 turns.
func RushDoctrine() Doctrine {
	return Doctrine{
		Name:               "rush",
		SpawnUntilFraction: 0.30,
		LowYieldFraction:   0.05,
		SearchRadius:       5,
		CrowdThreshold:     2,
		ReturnFraction:     0.75,
		EndgameTurns:       20,
		LeaveBase:          true,
		Navigation: NavigationPlan{
			Travel:    nav.ResourceAware,
			Return:    nav.ResourceAware,
			Explore:   nav.ResourceAware,
			Endgame:   nav.Rush,
			LeaveBase: nav.Evasive,
		},
	}
}

// BuiltinDoctrines indexes the doctrines available without a doctrine file.
func BuiltinDoctrines() map[string]Doctrine {
	return map[string]Doctrine{
		"registry": RegistryDoctrine(),
		"rush":     RushDoctrine(),
	}
}

// Validate clamps all tunables to their valid ranges.
func (d *Doctrine) Validate() {
	if d.SpawnUntilTurn < 0 {
		d.SpawnUntilTurn = 0
	}
	d.SpawnUntilFraction = clamp(d.SpawnUntilFraction, 0, 1)
	d.LowYieldFraction = clamp(d.LowYieldFraction, 0, 1)
	d.SearchRadius = clampInt(d.SearchRadius, 1, 16)
	d.CrowdThreshold = clampInt(d.CrowdThreshold, 1, 3)
	if d.ReturnFraction <= 0 || math.IsNaN(d.ReturnFraction) {
		d.ReturnFraction = 1
	}
	d.ReturnFraction = clamp(d.ReturnFraction, 0, 1)
	if d.EndgameTurns < 0 {
		d.EndgameTurns = 0
	}
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clamp restricts v to [min, max]. NaN clamps to min.
func clamp(v, min, max float64) float64 {
	if math.IsNaN(v) || v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
