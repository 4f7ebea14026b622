package ipc

import (
	"fmt"

	"github.com/nstehr/vimy/prospector/model"
)

// Command kinds. The adapter maps these onto the engine's own syntax.
const (
	CommandMove      = "move"
	CommandSpawn     = "spawn"
	CommandConstruct = "construct"
)

// Command is one order for the current turn. ShipID is meaningless for spawn.
type Command struct {
	Type      string          `json:"type"`
	ShipID    int             `json:"ship_id"`
	Direction model.Direction `json:"direction,omitempty"`
}

func Move(shipID int, d model.Direction) Command {
	return Command{Type: CommandMove, ShipID: shipID, Direction: d}
}

func StayStill(shipID int) Command { return Move(shipID, model.Still) }

func Spawn() Command { return Command{Type: CommandSpawn} }

// Construct converts the ship into a dropoff.
func Construct(shipID int) Command { return Command{Type: CommandConstruct, ShipID: shipID} }

// Validate rejects commands the engine would not accept.
func (c Command) Validate() error {
	switch c.Type {
	case CommandMove:
		if !c.Direction.Valid() {
			return fmt.Errorf("move for ship %d: invalid direction %q", c.ShipID, c.Direction)
		}
	case CommandConstruct, CommandSpawn:
	default:
		return fmt.Errorf("unknown command type %q", c.Type)
	}
	return nil
}

// String renders the command in the engine's text syntax ("m 3 n", "c 3", "g").
func (c Command) String() string {
	switch c.Type {
	case CommandMove:
		return fmt.Sprintf("m %d %s", c.ShipID, c.Direction)
	case CommandConstruct:
		return fmt.Sprintf("c %d", c.ShipID)
	case CommandSpawn:
		return "g"
	}
	return fmt.Sprintf("? %s", c.Type)
}
