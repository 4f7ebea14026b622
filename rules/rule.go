package rules

import (
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/vimy/prospector/ipc"
)

// ActionFunc queues commands when a rule's condition is true.
type ActionFunc func(env RuleEnv, q *Queue) error

// Scope selects which pass of the engine evaluates a rule.
type Scope string

const (
	ScopeShip     Scope = "ship"     // once per ship, env.Ship set
	ScopeShipyard Scope = "shipyard" // once per turn
)

// Rule is the atomic unit of bot behavior: a condition → action pair.
// The engine evaluates rules by priority and uses Category + Exclusive
// so that only the first matching ship rule acts on a given ship.
type Rule struct {
	Name         string      // human-readable identifier
	Priority     int         // higher = evaluated first
	Scope        Scope       // per-ship or per-turn pass
	Category     string      // grouping for exclusive semantics
	Exclusive    bool        // if true, blocks lower-priority rules in same category
	ConditionSrc string      // expr source (preserved for logging and tests)
	program      *vm.Program // compiled bytecode
	Action       ActionFunc
}

// Queue collects the commands for one turn, in the order rules queue them.
type Queue struct {
	commands []ipc.Command
}

func (q *Queue) Add(cmds ...ipc.Command) { q.commands = append(q.commands, cmds...) }

func (q *Queue) Len() int { return len(q.commands) }

// Commands returns the queued commands. The slice is owned by the caller.
func (q *Queue) Commands() []ipc.Command {
	out := make([]ipc.Command, len(q.commands))
	copy(out, q.commands)
	return out
}
