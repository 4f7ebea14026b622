package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nstehr/vimy/prospector/ipc"
	"github.com/nstehr/vimy/prospector/journal"
	"github.com/nstehr/vimy/prospector/model"
	"github.com/nstehr/vimy/prospector/results"
	"github.com/nstehr/vimy/prospector/rules"
)

// Recorder stores finished games. *results.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, g results.Game) error
}

// Options are the per-process settings every session shares.
type Options struct {
	JournalDir string   // empty disables the decision journal
	Results    Recorder // nil disables the match index
	Seed       int64    // 0 seeds from the clock unless hello carries a seed
}

// Agent owns the decision-making for a single game session: one engine, one
// assignment registry and one random source, all created at hello.
type Agent struct {
	Conn       *ipc.Connection
	strategist *Strategist
	opts       Options

	mu        sync.Mutex
	engine    *rules.Engine
	registry  *rules.Registry
	rng       *rand.Rand
	constants model.Constants
	journal   *journal.Writer
	prev      *fleetSnapshot
	game      results.Game
	finished  bool
}

func New(conn *ipc.Connection, s *Strategist, opts Options) *Agent {
	return &Agent{Conn: conn, strategist: s, opts: opts}
}

// Register wires the agent's handlers into its connection.
func (a *Agent) Register() {
	a.Conn.RegisterHandler(ipc.TypeHello, a.HandleHello)
	a.Conn.RegisterHandler(ipc.TypeGameState, a.HandleGameState)
	a.Conn.RegisterHandler(ipc.TypeGameOver, a.HandleGameOver)
}

// HandleHello starts a game: picks the doctrine, builds a fresh engine and
// registry, and acknowledges with the session and game IDs.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return nil, fmt.Errorf("unmarshal hello: %w", err)
	}

	doctrine, err := a.strategist.Resolve(hello.Doctrine)
	if err != nil {
		return nil, fmt.Errorf("hello: %w", err)
	}
	engine, err := rules.NewEngine(doctrine)
	if err != nil {
		return nil, fmt.Errorf("hello: %w", err)
	}

	seed := hello.Seed
	if seed == 0 {
		seed = a.opts.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// A second hello on the same connection ends the running game first.
	if err := a.finish(context.Background()); err != nil {
		slog.Error("failed to record previous game", "session", a.Conn.ID, "error", err)
	}

	session := a.Conn.ID.String()
	gameID := uuid.New().String()

	a.mu.Lock()
	a.Conn.Player = hello.PlayerID
	a.engine = engine
	a.registry = rules.NewRegistry()
	a.rng = rand.New(rand.NewSource(seed))
	a.constants = hello.Constants.WithDefaults()
	a.prev = nil
	a.finished = false
	a.game = results.Game{
		ID:        gameID,
		Doctrine:  doctrine.Name,
		Player:    hello.PlayerID,
		StartedAt: time.Now(),
	}
	if a.opts.JournalDir != "" {
		a.journal = journal.NewWriter(a.opts.JournalDir, gameID)
	}
	a.mu.Unlock()

	a.strategist.attach(a)

	slog.Info("game started",
		"session", session,
		"game", gameID,
		"player", hello.PlayerID,
		"bot", hello.Bot,
		"doctrine", doctrine.Name,
		"seed", seed,
		"maxTurns", a.constants.MaxTurns,
	)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", Session: session, Game: gameID})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// HandleGameState runs one turn and replies with the turn's commands.
func (a *Agent) HandleGameState(env ipc.Envelope) (*ipc.Envelope, error) {
	var gs model.GameState
	if err := json.Unmarshal(env.Data, &gs); err != nil {
		return nil, fmt.Errorf("unmarshal GameState: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine == nil {
		return nil, errors.New("game_state before hello")
	}
	if gs.Constants == (model.Constants{}) {
		gs.Constants = a.constants
	} else {
		gs.Constants = gs.Constants.WithDefaults()
	}

	turn, err := a.engine.Evaluate(&gs, a.registry, a.rng)
	if err != nil {
		return nil, fmt.Errorf("turn %d: %w", gs.Turn, err)
	}

	cur := takeSnapshot(&gs, turn.Stats.Stuck)
	for _, ev := range detectEvents(a.prev, cur) {
		a.applyEvent(ev)
	}
	a.prev = &cur

	a.game.Turns = gs.Turn
	a.game.Halite = gs.Me.Halite
	a.game.Relocations += turn.Stats.Fired[rules.RuleRelocate]
	a.game.StuckPeak = max(a.game.StuckPeak, turn.Stats.Stuck)

	if a.journal != nil {
		entry := journal.Entry{
			Session:   a.Conn.ID.String(),
			Game:      a.game.ID,
			Doctrine:  a.game.Doctrine,
			Turn:      gs.Turn,
			Stats:     turn.Stats,
			Decisions: turn.Decisions,
		}
		if err := a.journal.Write(entry); err != nil {
			// The journal is diagnostics only; losing it must not cost the turn.
			slog.Error("journal write failed", "session", a.Conn.ID, "path", a.journal.Path(), "error", err)
		}
	}

	slog.Debug("turn evaluated",
		"session", a.Conn.ID,
		"turn", gs.Turn,
		"ships", turn.Stats.Ships,
		"banked", gs.Me.Halite,
		"commands", len(turn.Commands),
	)

	cmds := make([]ipc.Command, 0, len(turn.Commands))
	for _, c := range turn.Commands {
		if err := c.Validate(); err != nil {
			slog.Error("dropping invalid command", "session", a.Conn.ID, "turn", gs.Turn, "error", err)
			continue
		}
		cmds = append(cmds, c)
	}
	reply, err := ipc.NewEnvelope(ipc.TypeCommands, ipc.CommandsMessage{Turn: gs.Turn, Commands: cmds})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// HandleGameOver records the final standing and closes the journal.
func (a *Agent) HandleGameOver(env ipc.Envelope) (*ipc.Envelope, error) {
	var over ipc.GameOverMessage
	if err := json.Unmarshal(env.Data, &over); err != nil {
		return nil, fmt.Errorf("unmarshal game_over: %w", err)
	}

	a.mu.Lock()
	if over.Turn > 0 {
		a.game.Turns = over.Turn
	}
	a.game.Halite = over.Halite
	a.game.Rank = over.Rank
	a.mu.Unlock()

	if err := a.finish(context.Background()); err != nil {
		return nil, err
	}

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok", Session: a.Conn.ID.String(), Game: a.Game().ID})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// Close ends the session when the connection drops. A game that never saw
// game_over is still recorded, with rank 0.
func (a *Agent) Close(ctx context.Context) error {
	return a.finish(ctx)
}

// DoctrineName returns the doctrine the current game is playing.
func (a *Agent) DoctrineName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.game.Doctrine
}

// Game returns a copy of the running game record.
func (a *Agent) Game() results.Game {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.game
}

func (a *Agent) swapDoctrine(d rules.Doctrine) error {
	a.mu.Lock()
	engine := a.engine
	a.mu.Unlock()
	if engine == nil {
		return errors.New("no game in progress")
	}
	return engine.Swap(d)
}

func (a *Agent) finish(ctx context.Context) error {
	a.strategist.detach(a)

	a.mu.Lock()
	if a.finished || a.engine == nil {
		a.mu.Unlock()
		return nil
	}
	a.finished = true
	a.game.FinishedAt = time.Now()
	game := a.game
	a.closeJournalLocked()
	a.mu.Unlock()

	slog.Info("game finished",
		"session", a.Conn.ID,
		"game", game.ID,
		"doctrine", game.Doctrine,
		"turns", game.Turns,
		"halite", game.Halite,
		"rank", game.Rank,
		"spawned", game.ShipsSpawned,
		"dropoffs", game.Dropoffs,
		"stuckPeak", game.StuckPeak,
	)

	if a.opts.Results == nil {
		return nil
	}
	if err := a.opts.Results.Record(ctx, game); err != nil {
		return fmt.Errorf("record game: %w", err)
	}
	return nil
}

func (a *Agent) closeJournalLocked() {
	if a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		slog.Error("journal close failed", "path", a.journal.Path(), "error", err)
	}
	a.journal = nil
}

func (a *Agent) applyEvent(ev Event) {
	switch ev.Kind {
	case EventShipSpawned:
		a.game.ShipsSpawned++
	case EventDropoffBuilt:
		a.game.Dropoffs++
	}
	level := slog.LevelDebug
	if ev.Kind == EventShipLost || ev.Kind == EventFleetStalled {
		level = slog.LevelInfo
	}
	slog.Log(context.Background(), level, "fleet event",
		"session", a.Conn.ID,
		"kind", ev.Kind,
		"turn", ev.Turn,
		"ship", ev.ShipID,
		"detail", ev.Detail,
	)
}
