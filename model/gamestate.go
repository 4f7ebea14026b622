package model

// GameState is the per-turn snapshot pushed by the engine adapter.
// A fresh copy is decoded every turn, so navigation may mark cells on it freely.
type GameState struct {
	Turn      int       `json:"turn"`
	Me        Player    `json:"me"`
	Map       GameMap   `json:"map"`
	Constants Constants `json:"constants"`
}

// Constants mirrors the engine's game constants. Sent once in the hello
// handshake and copied onto every snapshot by the agent.
type Constants struct {
	MaxHalite     int `json:"maxHalite"`
	ShipCost      int `json:"shipCost"`
	DropoffCost   int `json:"dropoffCost"`
	MaxTurns      int `json:"maxTurns"`
	MoveCostRatio int `json:"moveCostRatio"`
}

// DefaultConstants matches the stock engine settings.
func DefaultConstants() Constants {
	return Constants{
		MaxHalite:     1000,
		ShipCost:      1000,
		DropoffCost:   4000,
		MaxTurns:      400,
		MoveCostRatio: 10,
	}
}

// WithDefaults fills zero fields from DefaultConstants.
func (c Constants) WithDefaults() Constants {
	d := DefaultConstants()
	if c.MaxHalite <= 0 {
		c.MaxHalite = d.MaxHalite
	}
	if c.ShipCost <= 0 {
		c.ShipCost = d.ShipCost
	}
	if c.DropoffCost <= 0 {
		c.DropoffCost = d.DropoffCost
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = d.MaxTurns
	}
	if c.MoveCostRatio <= 0 {
		c.MoveCostRatio = d.MoveCostRatio
	}
	return c
}

type Player struct {
	ID       int        `json:"id"`
	Halite   int        `json:"halite"`
	Shipyard Position   `json:"shipyard"`
	Dropoffs []Position `json:"dropoffs"`
	Ships    []Ship     `json:"ships"`
}

type Ship struct {
	ID       int      `json:"id"`
	Position Position `json:"position"`
	Halite   int      `json:"halite"`
}

// IsFull reports whether the ship cannot carry any more halite.
func (s Ship) IsFull(maxHalite int) bool { return s.Halite >= maxHalite }

// Cell is one map square. Structure is "", "shipyard" or "dropoff"; the
// rules only read Occupied and Halite.
type Cell struct {
	Halite    int    `json:"halite"`
	Occupied  bool   `json:"occupied"`
	Structure string `json:"structure,omitempty"`
}
