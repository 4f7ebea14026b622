package rules

import "fmt"

// Rule names, shared with the journal and the results index.
const (
	RuleEndgameReturn    = "endgame-return"
	RuleConvertToDropoff = "convert-to-dropoff"
	RuleEscapeCrowd      = "escape-crowd"
	RuleArrived          = "arrived"
	RuleLeaveBase        = "leave-base"
	RuleInsufficientFuel = "insufficient-fuel"
	RuleEnRoute          = "en-route"
	RuleReturnToBase     = "return-to-base"
	RuleRelocate         = "relocate-low-yield"
	RuleHarvest          = "harvest"
	RuleSpawn            = "spawn"
)

const (
	categoryShip     = "ship"
	categoryShipyard = "shipyard"
)

// CompileDoctrine generates a complete rule set from a doctrine.
// All conditions are built via fmt.Sprintf with interpolated values, so
// the compiler never generates invalid expr.
func CompileDoctrine(d Doctrine) []*Rule {
	d.Validate()
	var rules []*Rule

	ship := func(name string, priority int, cond string, action ActionFunc) {
		rules = append(rules, &Rule{
			Name:         name,
			Priority:     priority,
			Scope:        ScopeShip,
			Category:     categoryShip,
			Exclusive:    true,
			ConditionSrc: cond,
			Action:       action,
		})
	}

	// --- Terminal phase ---

	if d.EndgameTurns > 0 {
		ship(RuleEndgameReturn, 1000,
			fmt.Sprintf(`Turn() > MaxTurns() - %d`, d.EndgameTurns),
			ActionEndgameReturn)
	}

	// --- Crowd avoidance ---
	// Checked before anything else: a boxed-in ship is about to collide no
	// matter what it was doing.

	ship(RuleConvertToDropoff, 900,
		fmt.Sprintf(`OccupiedNeighbors() > %d && !DropoffBuilt() && Halite() > DropoffCost()`, d.CrowdThreshold),
		ActionConvertToDropoff)

	ship(RuleEscapeCrowd, 890,
		fmt.Sprintf(`OccupiedNeighbors() > %d`, d.CrowdThreshold),
		ActionEscapeCrowd)

	// --- Assignment lifecycle ---

	ship(RuleArrived, 800, `Arrived()`, ActionArrive)

	if d.LeaveBase {
		ship(RuleLeaveBase, 750, `AtShipyard()`, ActionLeaveBase)
	}

	if d.FuelCheck {
		// cargo < cell / ratio, kept in integers
		ship(RuleInsufficientFuel, 700, `Halite() * MoveCostRatio() < CellHalite()`, ActionStayStill)
	}

	ship(RuleEnRoute, 600, `Busy()`, ActionContinue)

	returnCond := `Full()`
	if d.ReturnFraction < 1 {
		returnCond = fmt.Sprintf(`Halite() >= MaxHalite() * %g`, d.ReturnFraction)
	}
	ship(RuleReturnToBase, 500, returnCond, ActionReturnToBase)

	// --- Harvesting ---

	ship(RuleRelocate, 400,
		fmt.Sprintf(`CellHalite() < MaxHalite() * %g`, d.LowYieldFraction),
		ActionRelocate)

	ship(RuleHarvest, 100, `true`, ActionStayStill)

	// --- Shipyard ---

	spawnWindow := fmt.Sprintf(`Turn() <= MaxTurns() * %g`, d.SpawnUntilFraction)
	if d.SpawnUntilTurn > 0 {
		spawnWindow = fmt.Sprintf(`Turn() <= %d`, d.SpawnUntilTurn)
	}
	rules = append(rules, &Rule{
		Name:         RuleSpawn,
		Priority:     1000,
		Scope:        ScopeShipyard,
		Category:     categoryShipyard,
		Exclusive:    true,
		ConditionSrc: spawnWindow + ` && Banked() >= ShipCost() && !ShipyardOccupied()`,
		Action:       ActionSpawn,
	})

	return rules
}
