package rules

import (
	"log/slog"

	"github.com/nstehr/vimy/prospector/ipc"
	"github.com/nstehr/vimy/prospector/model"
	"github.com/nstehr/vimy/prospector/nav"
)

func ActionEndgameReturn(env RuleEnv, q *Queue) error {
	if env.AtShipyard() {
		q.Add(ipc.StayStill(env.Ship.ID))
		return nil
	}
	d := nav.For(env.Doctrine.Navigation.Endgame).DirectionToward(env.Ship, env.State.Me.Shipyard, &env.State.Map)
	slog.Debug("ship rushing home", "ship", env.Ship.ID, "direction", d)
	q.Add(ipc.Move(env.Ship.ID, d))
	return nil
}

// ActionConvertToDropoff turns a crowded, loaded ship into the game's dropoff
// and still queues an escape move for it.
func ActionConvertToDropoff(env RuleEnv, q *Queue) error {
	env.Registry.MarkDropoffBuilt()
	slog.Debug("ship converting to dropoff", "ship", env.Ship.ID, "pos", env.Ship.Position, "cargo", env.Ship.Halite)
	q.Add(ipc.Construct(env.Ship.ID))
	if d, ok := escapeDirection(env); ok {
		q.Add(ipc.Move(env.Ship.ID, d))
	}
	return nil
}

// ActionEscapeCrowd moves to a random free neighbour. Surrounded ships stay put.
func ActionEscapeCrowd(env RuleEnv, q *Queue) error {
	d, ok := escapeDirection(env)
	if !ok {
		slog.Debug("ship boxed in", "ship", env.Ship.ID, "pos", env.Ship.Position)
		q.Add(ipc.StayStill(env.Ship.ID))
		return nil
	}
	slog.Debug("ship avoiding others", "ship", env.Ship.ID, "direction", d)
	q.Add(ipc.Move(env.Ship.ID, d))
	return nil
}

// escapeDirection picks a free cardinal neighbour uniformly at random and
// marks it so later ships this turn do not pick it too.
func escapeDirection(env RuleEnv) (model.Direction, bool) {
	free := env.freeNeighbors()
	if len(free) == 0 {
		return model.Still, false
	}
	choice := free[env.Rand.Intn(len(free))]
	env.State.Map.MarkUnsafe(choice)
	moves := env.State.Map.UnsafeMoves(env.Ship.Position, choice)
	if len(moves) == 0 {
		return model.Still, false
	}
	return moves[0], true
}

func ActionArrive(env RuleEnv, q *Queue) error {
	slog.Debug("ship arrived", "ship", env.Ship.ID, "pos", env.Ship.Position)
	env.Registry.Clear(env.Ship.ID)
	q.Add(ipc.StayStill(env.Ship.ID))
	return nil
}

func ActionLeaveBase(env RuleEnv, q *Queue) error {
	d := nav.For(env.Doctrine.Navigation.LeaveBase).DirectionToward(env.Ship, env.Ship.Position, &env.State.Map)
	q.Add(ipc.Move(env.Ship.ID, d))
	return nil
}

func ActionContinue(env RuleEnv, q *Queue) error {
	env.Registry.MarkBusy(env.Ship.ID)
	dest, _ := env.Registry.Get(env.Ship.ID)
	d := nav.For(env.Doctrine.Navigation.Travel).DirectionToward(env.Ship, dest, &env.State.Map)
	slog.Debug("ship busy", "ship", env.Ship.ID, "dest", dest, "pos", env.Ship.Position, "busyTurns", env.Registry.BusyTurns(env.Ship.ID))
	q.Add(ipc.Move(env.Ship.ID, d))
	return nil
}

func ActionReturnToBase(env RuleEnv, q *Queue) error {
	home := env.State.Me.Shipyard
	env.Registry.Set(env.Ship.ID, home)
	d := nav.For(env.Doctrine.Navigation.Return).DirectionToward(env.Ship, home, &env.State.Map)
	slog.Debug("ship full, returning", "ship", env.Ship.ID, "shipyard", home)
	q.Add(ipc.Move(env.Ship.ID, d))
	return nil
}

// ActionRelocate sends the ship to the richest unclaimed cell nearby, or
// keeps it still when every candidate is claimed.
func ActionRelocate(env RuleEnv, q *Queue) error {
	target, ok := env.bestUnclaimedCell()
	if !ok {
		slog.Debug("ship staying, nowhere good to go", "ship", env.Ship.ID)
		q.Add(ipc.StayStill(env.Ship.ID))
		return nil
	}
	env.Registry.Set(env.Ship.ID, target)
	d := nav.For(env.Doctrine.Navigation.Explore).DirectionToward(env.Ship, target, &env.State.Map)
	slog.Debug("ship exploring", "ship", env.Ship.ID, "target", target, "halite", env.State.Map.At(target).Halite)
	q.Add(ipc.Move(env.Ship.ID, d))
	return nil
}

func ActionStayStill(env RuleEnv, q *Queue) error {
	q.Add(ipc.StayStill(env.Ship.ID))
	return nil
}

func ActionSpawn(env RuleEnv, q *Queue) error {
	slog.Debug("spawning ship", "turn", env.Turn(), "banked", env.Banked())
	q.Add(ipc.Spawn())
	return nil
}
