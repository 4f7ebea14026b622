package agent

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/nstehr/vimy/prospector/config"
	"github.com/nstehr/vimy/prospector/rules"
)

// Strategist owns the doctrine library shared by every connection. It picks
// the doctrine for a new game and pushes reloaded doctrines into the engines
// of games already in progress.
type Strategist struct {
	mu          sync.Mutex
	doctrines   map[string]rules.Doctrine
	fileDefault string
	override    string // from the -doctrine flag
	live        map[*Agent]struct{}
}

// DefaultDoctrine is played when neither the game, the flag nor the doctrine
// file names one.
const DefaultDoctrine = "rush"

// NewStrategist creates a strategist. A nil library means the built-ins.
func NewStrategist(doctrines map[string]rules.Doctrine, fileDefault, override string) *Strategist {
	if doctrines == nil {
		doctrines = rules.BuiltinDoctrines()
	}
	return &Strategist{
		doctrines:   doctrines,
		fileDefault: fileDefault,
		override:    override,
		live:        make(map[*Agent]struct{}),
	}
}

// Resolve picks the doctrine for a game: the hello request, else the flag,
// else the file default, else DefaultDoctrine.
func (s *Strategist) Resolve(requested string) (rules.Doctrine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := requested
	if name == "" {
		name = s.override
	}
	return config.Resolve(s.doctrines, name, s.fileDefault, DefaultDoctrine)
}

// Names lists the doctrines currently loaded, sorted.
func (s *Strategist) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.doctrines))
}

// Reload replaces the library and swaps the rule set of every live game whose
// doctrine is still defined. Returns the number of engines swapped. A game
// whose doctrine disappeared keeps playing its old rules.
func (s *Strategist) Reload(doctrines map[string]rules.Doctrine, fileDefault string) int {
	s.mu.Lock()
	s.doctrines = doctrines
	s.fileDefault = fileDefault
	live := make([]*Agent, 0, len(s.live))
	for a := range s.live {
		live = append(live, a)
	}
	s.mu.Unlock()

	swapped := 0
	for _, a := range live {
		name := a.DoctrineName()
		d, ok := doctrines[name]
		if !ok {
			slog.Warn("doctrine no longer defined, keeping old rules", "session", a.Conn.ID, "doctrine", name)
			continue
		}
		if err := a.swapDoctrine(d); err != nil {
			slog.Error("strategist rule swap failed", "session", a.Conn.ID, "doctrine", name, "error", err)
			continue
		}
		swapped++
	}
	slog.Info("doctrines reloaded", "doctrines", len(doctrines), "default", fileDefault, "swapped", swapped)
	return swapped
}

func (s *Strategist) attach(a *Agent) {
	s.mu.Lock()
	s.live[a] = struct{}{}
	s.mu.Unlock()
}

func (s *Strategist) detach(a *Agent) {
	s.mu.Lock()
	delete(s.live, a)
	s.mu.Unlock()
}

// Live returns the number of games in progress.
func (s *Strategist) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}
