package ipc

import "github.com/nstehr/vimy/prospector/model"

// Message types exchanged with the engine adapter.
const (
	TypeHello     = "hello"
	TypeAck       = "ack"
	TypeGameState = "game_state"
	TypeCommands  = "commands"
	TypeGameOver  = "game_over"
)

// HelloMessage opens a game. Doctrine optionally overrides the bot variant
// the sidecar was started with, so one sidecar can play both seats.
type HelloMessage struct {
	PlayerID  int             `json:"playerId"`
	Bot       string          `json:"bot"`
	Doctrine  string          `json:"doctrine,omitempty"`
	Seed      int64           `json:"seed,omitempty"`
	Constants model.Constants `json:"constants"`
}

// AckMessage confirms hello and game_over. Session names the connection and
// Game the game being played on it; one connection may play several games.
type AckMessage struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
	Game    string `json:"game,omitempty"`
}

// CommandsMessage is the reply to a game_state: everything the bot does this turn.
type CommandsMessage struct {
	Turn     int       `json:"turn"`
	Commands []Command `json:"commands"`
}

// GameOverMessage reports the final standing once the engine ends the game.
type GameOverMessage struct {
	Turn   int `json:"turn"`
	Halite int `json:"halite"`
	Rank   int `json:"rank"`
}
