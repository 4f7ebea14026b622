package ipc

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Handler processes a received envelope. Return nil to send no reply.
type Handler func(env Envelope) (*Envelope, error)

// Connection is one game seat talking to the sidecar. Each connection gets a
// session ID so log lines, journal entries and results rows can be correlated.
type Connection struct {
	transport Transport
	handlers  map[string]Handler
	ID        uuid.UUID
	Player    int
}

func NewConnection(t Transport, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		transport: t,
		handlers:  handlers,
		ID:        uuid.New(),
		Player:    -1,
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return c.transport.Write(env)
}

// ReadLoop blocks until the transport closes, errors, or ctx is done. It owns
// the transport lifetime so callers don't need to track cleanup.
func (c *Connection) ReadLoop(ctx context.Context) {
	defer c.transport.Close()
	stop := context.AfterFunc(ctx, func() { c.transport.Close() })
	defer stop()

	for {
		env, err := c.transport.Read()
		if err != nil {
			slog.Info("connection read ended", "session", c.ID, "player", c.Player, "error", err)
			return
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			slog.Warn("no handler for message type", "session", c.ID, "type", env.Type)
			continue
		}

		resp, err := handler(env)
		if err != nil {
			slog.Error("handler error", "session", c.ID, "type", env.Type, "error", err)
			continue
		}

		if resp != nil {
			if err := c.transport.Write(*resp); err != nil {
				slog.Error("failed to send response", "session", c.ID, "type", resp.Type, "error", err)
				return
			}
			slog.Debug("sent response", "session", c.ID, "type", resp.Type, "player", c.Player)
		}
	}
}
