package ipc

import (
	"bufio"
	"fmt"
	"net"
)

// Transport moves whole envelopes. A Connection owns exactly one.
//
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=./mocks/transport_mock.go -package=mocks . Transport
type Transport interface {
	Read() (Envelope, error)
	Write(env Envelope) error
	Close() error
}

// FrameTransport speaks length-prefixed envelopes over a stream socket.
type FrameTransport struct {
	conn net.Conn
	r    *bufio.Reader
}

func NewFrameTransport(conn net.Conn) *FrameTransport {
	return &FrameTransport{conn: conn, r: bufio.NewReader(conn)}
}

func (t *FrameTransport) Read() (Envelope, error) { return ReadEnvelope(t.r) }

func (t *FrameTransport) Write(env Envelope) error { return WriteEnvelope(t.conn, env) }

func (t *FrameTransport) Close() error {
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("close socket: %w", err)
	}
	return nil
}
