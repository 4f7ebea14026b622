package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/nstehr/vimy/prospector/ipc"
	"github.com/nstehr/vimy/prospector/model"
)

// diagnosticsInterval throttles the fleet summary log line.
const diagnosticsInterval = 50

// Engine runs compiled rules against the snapshot each turn.
// Ship rules are evaluated once per ship in snapshot order; the first matching
// rule acts and blocks the rest of the category for that ship. Shipyard rules
// run once afterwards.
type Engine struct {
	mu       sync.RWMutex
	rules    []*Rule
	doctrine Doctrine

	lastDiagTurn int
}

// Decision records which rule drove one ship this turn.
type Decision struct {
	ShipID   int           `json:"ship"`
	Rule     string        `json:"rule"`
	Commands []ipc.Command `json:"commands"`
}

// TurnStats summarises a turn for logs, the journal and the results index.
type TurnStats struct {
	Turn     int            `json:"turn"`
	Ships    int            `json:"ships"`
	Busy     int            `json:"busy"`
	Stuck    int            `json:"stuck"`
	Banked   int            `json:"banked"`
	Fired    map[string]int `json:"fired"`
	Commands int            `json:"commands"`
}

// Turn is the engine's output for one snapshot.
type Turn struct {
	Commands  []ipc.Command
	Decisions []Decision
	Stats     TurnStats
}

// NewEngine compiles the doctrine into expr bytecode sorted by priority.
func NewEngine(d Doctrine) (*Engine, error) {
	d.Validate()
	compiled, err := compileRules(CompileDoctrine(d))
	if err != nil {
		return nil, err
	}
	return &Engine{rules: compiled, doctrine: d}, nil
}

// Doctrine returns the doctrine currently in force.
func (e *Engine) Doctrine() Doctrine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doctrine
}

// Swap atomically replaces the doctrine and its rule set. Compiles first; if
// compilation fails the old rules remain active. The registry is untouched:
// destinations assigned under the old doctrine are still honoured.
func (e *Engine) Swap(d Doctrine) error {
	d.Validate()
	compiled, err := compileRules(CompileDoctrine(d))
	if err != nil {
		return err
	}
	names := make([]string, len(compiled))
	for i, r := range compiled {
		names[i] = r.Name
	}
	e.mu.Lock()
	e.rules = compiled
	e.doctrine = d
	e.mu.Unlock()
	slog.Info("rule set swapped", "doctrine", d.Name, "count", len(compiled), "rules", names)
	return nil
}

// Evaluate decides every ship's command for the turn and the spawn order.
// The registry is read and written ship by ship, so a later ship sees the
// destinations claimed by earlier ones. Cells chosen by navigation are marked
// occupied on gs.Map for the rest of the turn.
func (e *Engine) Evaluate(gs *model.GameState, reg *Registry, rng *rand.Rand) (Turn, error) {
	if gs == nil || reg == nil || rng == nil {
		return Turn{}, errors.New("evaluate: nil state, registry or random source")
	}

	e.mu.RLock()
	rules := e.rules
	doctrine := e.doctrine
	e.mu.RUnlock()

	q := &Queue{}
	stats := TurnStats{
		Turn:   gs.Turn,
		Ships:  len(gs.Me.Ships),
		Banked: gs.Me.Halite,
		Fired:  make(map[string]int),
	}
	decisions := make([]Decision, 0, len(gs.Me.Ships))

	for _, ship := range gs.Me.Ships {
		if reg.IsStuck(ship.ID) {
			// Detection only: no recovery is attempted, the count is surfaced
			// in stats so stuck ships show up in the journal.
			stats.Stuck++
			slog.Debug("ship stuck", "ship", ship.ID, "busyTurns", reg.BusyTurns(ship.ID))
		}
		if reg.IsBusy(ship) {
			stats.Busy++
		}

		env := RuleEnv{State: gs, Ship: ship, Registry: reg, Doctrine: doctrine, Rand: rng}
		before := q.Len()
		fired := run(rules, ScopeShip, env, q)
		for _, name := range fired {
			stats.Fired[name]++
		}
		rule := ""
		if len(fired) > 0 {
			rule = fired[0]
		}
		decisions = append(decisions, Decision{
			ShipID:   ship.ID,
			Rule:     rule,
			Commands: q.Commands()[before:],
		})
	}

	env := RuleEnv{State: gs, Registry: reg, Doctrine: doctrine, Rand: rng}
	for _, name := range run(rules, ScopeShipyard, env, q) {
		stats.Fired[name]++
	}

	stats.Commands = q.Len()
	e.logDiagnostics(stats)

	return Turn{Commands: q.Commands(), Decisions: decisions, Stats: stats}, nil
}

// run evaluates the rules of one scope against env and returns the names of
// the rules that fired, in firing order.
func run(rules []*Rule, scope Scope, env RuleEnv, q *Queue) []string {
	var names []string
	blocked := make(map[string]bool) // category → exclusive rule already fired

	for _, r := range rules {
		if r.Scope != scope || blocked[r.Category] {
			continue
		}

		result, err := vm.Run(r.program, env)
		if err != nil {
			slog.Warn("rule condition error", "rule", r.Name, "ship", env.Ship.ID, "error", err)
			continue
		}

		match, ok := result.(bool)
		if !ok || !match {
			continue
		}

		slog.Debug("rule fired", "rule", r.Name, "priority", r.Priority, "ship", env.Ship.ID)
		if err := r.Action(env, q); err != nil {
			slog.Error("rule action error", "rule", r.Name, "ship", env.Ship.ID, "error", err)
			continue
		}
		names = append(names, r.Name)

		if r.Exclusive {
			blocked[r.Category] = true
		}
	}
	return names
}

// logDiagnostics helps debug "why is the fleet not moving?". Fires every
// diagnosticsInterval turns regardless of rule activity.
func (e *Engine) logDiagnostics(s TurnStats) {
	e.mu.Lock()
	due := s.Turn-e.lastDiagTurn >= diagnosticsInterval
	if due {
		e.lastDiagTurn = s.Turn
	}
	e.mu.Unlock()
	if !due {
		return
	}

	slog.Info("fleet diagnostics",
		"turn", s.Turn,
		"ships", s.Ships,
		"busy", s.Busy,
		"stuck", s.Stuck,
		"banked", s.Banked,
		"fired", s.Fired,
	)
}

func compileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}
