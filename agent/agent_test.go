package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nstehr/vimy/prospector/ipc"
	"github.com/nstehr/vimy/prospector/journal"
	"github.com/nstehr/vimy/prospector/model"
	"github.com/nstehr/vimy/prospector/results"
	"github.com/nstehr/vimy/prospector/rules"
)

type fakeRecorder struct {
	games []results.Game
	err   error
}

func (f *fakeRecorder) Record(_ context.Context, g results.Game) error {
	if f.err != nil {
		return f.err
	}
	f.games = append(f.games, g)
	return nil
}

func newTestAgent(s *Strategist, opts Options) *Agent {
	return New(ipc.NewConnection(nil, nil), s, opts)
}

func envelope(t *testing.T, msgType string, data any) ipc.Envelope {
	t.Helper()
	env, err := ipc.NewEnvelope(msgType, data)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	return env
}

func hello(t *testing.T, a *Agent, doctrine string) ipc.AckMessage {
	t.Helper()
	resp, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{
		PlayerID: 1,
		Bot:      "test",
		Doctrine: doctrine,
		Seed:     42,
	}))
	if err != nil {
		t.Fatalf("HandleHello: %v", err)
	}
	if resp == nil || resp.Type != ipc.TypeAck {
		t.Fatalf("expected ack, got %+v", resp)
	}
	var ack ipc.AckMessage
	if err := json.Unmarshal(resp.Data, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	return ack
}

// snapshot builds an 8x8 map with 500 halite per cell and the shipyard at (0,0).
func snapshot(turn, banked int, ships ...model.Ship) model.GameState {
	cells := make([]model.Cell, 64)
	for i := range cells {
		cells[i].Halite = 500
	}
	cells[0].Structure = "shipyard"
	for _, s := range ships {
		cells[s.Position.Y*8+s.Position.X].Occupied = true
	}
	return model.GameState{
		Turn: turn,
		Me: model.Player{
			ID:     1,
			Halite: banked,
			Ships:  ships,
		},
		Map: model.GameMap{Width: 8, Height: 8, Cells: cells},
	}
}

func playTurn(t *testing.T, a *Agent, gs model.GameState) ipc.CommandsMessage {
	t.Helper()
	resp, err := a.HandleGameState(envelope(t, ipc.TypeGameState, gs))
	if err != nil {
		t.Fatalf("HandleGameState: %v", err)
	}
	if resp.Type != ipc.TypeCommands {
		t.Fatalf("expected commands, got %s", resp.Type)
	}
	var msg ipc.CommandsMessage
	if err := json.Unmarshal(resp.Data, &msg); err != nil {
		t.Fatalf("unmarshal commands: %v", err)
	}
	return msg
}

func commandStrings(cmds []ipc.Command) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

func TestHelloResolvesDoctrine(t *testing.T) {
	s := NewStrategist(nil, "", "")
	a := newTestAgent(s, Options{})

	ack := hello(t, a, "registry")
	if ack.Status != "ok" || ack.Session != a.Conn.ID.String() {
		t.Errorf("ack = %+v, want ok with session %s", ack, a.Conn.ID)
	}
	if a.DoctrineName() != "registry" {
		t.Errorf("doctrine = %q, want registry", a.DoctrineName())
	}
	if a.Conn.Player != 1 {
		t.Errorf("player = %d, want 1", a.Conn.Player)
	}
	if s.Live() != 1 {
		t.Errorf("live games = %d, want 1", s.Live())
	}
}

func TestHelloUnknownDoctrine(t *testing.T) {
	a := newTestAgent(NewStrategist(nil, "", ""), Options{})
	_, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Doctrine: "turtle"}))
	if err == nil {
		t.Fatal("expected error for unknown doctrine")
	}
}

func TestGameStateBeforeHello(t *testing.T) {
	a := newTestAgent(NewStrategist(nil, "", ""), Options{})
	gs := snapshot(1, 0)
	if _, err := a.HandleGameState(envelope(t, ipc.TypeGameState, gs)); err == nil {
		t.Fatal("expected error for game_state before hello")
	}
}

func TestGameStateHarvestAndSpawn(t *testing.T) {
	a := newTestAgent(NewStrategist(nil, "", ""), Options{})
	hello(t, a, "registry")

	msg := playTurn(t, a, snapshot(1, 5000, model.Ship{ID: 1, Position: model.Position{X: 3, Y: 3}}))
	if msg.Turn != 1 {
		t.Errorf("turn = %d, want 1", msg.Turn)
	}
	got := commandStrings(msg.Commands)
	want := []string{"m 1 o", "g"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestGameStateEmptyFleetRepliesWithEmptyList(t *testing.T) {
	a := newTestAgent(NewStrategist(nil, "", ""), Options{})
	hello(t, a, "registry")

	resp, err := a.HandleGameState(envelope(t, ipc.TypeGameState, snapshot(300, 0)))
	if err != nil {
		t.Fatalf("HandleGameState: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["commands"]) != "[]" {
		t.Errorf("commands = %s, want []", raw["commands"])
	}
}

func TestGameOverRecordsGame(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{}
	s := NewStrategist(nil, "", "")
	a := newTestAgent(s, Options{JournalDir: dir, Results: rec})
	ack := hello(t, a, "registry")

	playTurn(t, a, snapshot(1, 5000, model.Ship{ID: 1, Position: model.Position{X: 3, Y: 3}}))
	playTurn(t, a, snapshot(2, 4000,
		model.Ship{ID: 1, Position: model.Position{X: 3, Y: 3}},
		model.Ship{ID: 2, Position: model.Position{X: 0, Y: 0}},
	))

	resp, err := a.HandleGameOver(envelope(t, ipc.TypeGameOver, ipc.GameOverMessage{Turn: 400, Halite: 9000, Rank: 1}))
	if err != nil {
		t.Fatalf("HandleGameOver: %v", err)
	}
	if resp.Type != ipc.TypeAck {
		t.Errorf("expected ack, got %s", resp.Type)
	}

	if len(rec.games) != 1 {
		t.Fatalf("recorded %d games, want 1", len(rec.games))
	}
	g := rec.games[0]
	if g.ID != ack.Game || g.Doctrine != "registry" || g.Player != 1 {
		t.Errorf("game identity = %+v", g)
	}
	if g.Turns != 400 || g.Halite != 9000 || g.Rank != 1 || g.ShipsSpawned != 1 {
		t.Errorf("game result = %+v", g)
	}
	if g.FinishedAt.Before(g.StartedAt) {
		t.Errorf("finished %v before started %v", g.FinishedAt, g.StartedAt)
	}
	if s.Live() != 0 {
		t.Errorf("live games = %d after game over, want 0", s.Live())
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("journal files = %v, %v", files, err)
	}
	var turns []int
	err = journal.Read(files[0], func(e journal.Entry) error {
		turns = append(turns, e.Turn)
		if e.Doctrine != "registry" || e.Game != ack.Game {
			t.Errorf("entry doctrine / game = %q / %q", e.Doctrine, e.Game)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("journal.Read: %v", err)
	}
	if len(turns) != 2 || turns[0] != 1 || turns[1] != 2 {
		t.Errorf("journaled turns = %v, want [1 2]", turns)
	}

	// Closing after game_over does not record twice.
	if err := a.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.games) != 1 {
		t.Errorf("recorded %d games after Close, want 1", len(rec.games))
	}
}

func TestSecondHelloRecordsRunningGame(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecorder{}
	s := NewStrategist(nil, "", "")
	a := newTestAgent(s, Options{JournalDir: dir, Results: rec})

	first := hello(t, a, "registry")
	playTurn(t, a, snapshot(1, 5000, model.Ship{ID: 1, Position: model.Position{X: 3, Y: 3}}))
	playTurn(t, a, snapshot(2, 4000, model.Ship{ID: 1, Position: model.Position{X: 3, Y: 3}}))

	second := hello(t, a, "rush")
	if len(rec.games) != 1 {
		t.Fatalf("recorded %d games after second hello, want 1", len(rec.games))
	}
	if g := rec.games[0]; g.ID != first.Game || g.Doctrine != "registry" || g.Turns != 2 || g.Rank != 0 {
		t.Errorf("first game = %+v", g)
	}
	if second.Game == first.Game || second.Session != first.Session {
		t.Errorf("ack ids: first %+v, second %+v", first, second)
	}
	if s.Live() != 1 {
		t.Errorf("live games = %d, want 1", s.Live())
	}

	playTurn(t, a, snapshot(1, 5000, model.Ship{ID: 7, Position: model.Position{X: 4, Y: 4}}))
	if err := a.Close(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(rec.games) != 2 {
		t.Fatalf("recorded %d games, want 2", len(rec.games))
	}
	if g := rec.games[1]; g.ID != second.Game || g.Doctrine != "rush" || g.Turns != 1 {
		t.Errorf("second game = %+v", g)
	}

	// Each game has its own journal file.
	files, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil || len(files) != 2 {
		t.Fatalf("journal files = %v, %v; want 2", files, err)
	}
	entries := make(map[string]int)
	for _, f := range files {
		err := journal.Read(f, func(e journal.Entry) error {
			entries[e.Game]++
			return nil
		})
		if err != nil {
			t.Fatalf("journal.Read(%s): %v", f, err)
		}
	}
	if entries[first.Game] != 2 || entries[second.Game] != 1 {
		t.Errorf("journal entries per game = %v, want 2 for first and 1 for second", entries)
	}
}

func TestCloseRecordsAbandonedGame(t *testing.T) {
	rec := &fakeRecorder{}
	a := newTestAgent(NewStrategist(nil, "", ""), Options{Results: rec})
	hello(t, a, "rush")
	playTurn(t, a, snapshot(7, 0, model.Ship{ID: 1, Position: model.Position{X: 3, Y: 3}}))

	if err := a.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.games) != 1 || rec.games[0].Rank != 0 || rec.games[0].Turns != 7 {
		t.Errorf("recorded = %+v, want one unranked game at turn 7", rec.games)
	}
}

func TestCloseWithoutHello(t *testing.T) {
	rec := &fakeRecorder{}
	a := newTestAgent(NewStrategist(nil, "", ""), Options{Results: rec})
	if err := a.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(rec.games) != 0 {
		t.Errorf("recorded %d games without hello", len(rec.games))
	}
}

func TestRecordErrorSurfaces(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	a := newTestAgent(NewStrategist(nil, "", ""), Options{Results: rec})
	hello(t, a, "rush")
	if _, err := a.HandleGameOver(envelope(t, ipc.TypeGameOver, ipc.GameOverMessage{Rank: 2})); err == nil {
		t.Error("expected record error from HandleGameOver")
	}
}

func TestStrategistResolve(t *testing.T) {
	custom := rules.RegistryDoctrine()
	custom.Name = "custom"
	lib := rules.BuiltinDoctrines()
	lib["custom"] = custom

	tests := []struct {
		name        string
		fileDefault string
		override    string
		requested   string
		want        string
	}{
		{"built-in default", "", "", "", DefaultDoctrine},
		{"file default", "custom", "", "", "custom"},
		{"flag beats file", "custom", "registry", "", "registry"},
		{"hello beats flag", "custom", "registry", "rush", "rush"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStrategist(lib, tc.fileDefault, tc.override)
			d, err := s.Resolve(tc.requested)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if d.Name != tc.want {
				t.Errorf("Resolve = %q, want %q", d.Name, tc.want)
			}
		})
	}
}

func TestStrategistReloadSwapsLiveGames(t *testing.T) {
	s := NewStrategist(nil, "", "")
	a := newTestAgent(s, Options{})
	hello(t, a, "rush")

	lib := rules.BuiltinDoctrines()
	rush := lib["rush"]
	rush.EndgameTurns = 5
	lib["rush"] = rush

	if n := s.Reload(lib, ""); n != 1 {
		t.Fatalf("Reload swapped %d engines, want 1", n)
	}
	if got := a.engine.Doctrine().EndgameTurns; got != 5 {
		t.Errorf("EndgameTurns after reload = %d, want 5", got)
	}

	// A library without the game's doctrine leaves it alone.
	if n := s.Reload(map[string]rules.Doctrine{"registry": rules.RegistryDoctrine()}, ""); n != 0 {
		t.Errorf("Reload swapped %d engines, want 0", n)
	}
	if got := a.engine.Doctrine().EndgameTurns; got != 5 {
		t.Errorf("EndgameTurns after second reload = %d, want 5", got)
	}
	if names := s.Names(); len(names) != 1 || names[0] != "registry" {
		t.Errorf("Names = %v, want [registry]", names)
	}
}
