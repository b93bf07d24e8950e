// Package transport frames WebSocket traffic for the tick-driven server.
//
// A Transport never blocks its caller. Socket reads and writes happen on
// per-connection goroutines; the tick owner moves their results in and out
// with Recv, Dispatch, Transmit and Send, and answers the handshake request
// itself through Handler.HTTPRequest.
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrWouldBlock reports that there is nothing to read or that the writer
	// is still busy. The caller retries on the next tick.
	ErrWouldBlock = errors.New("operation would block")
	// ErrClosed is returned once the transport has been closed.
	ErrClosed = errors.New("transport closed")
)

// Reject is a handshake rejection carrying the HTTP status to answer with.
type Reject struct {
	Status int
	Reason string
}

func (r *Reject) Error() string {
	return fmt.Sprintf("handshake rejected: %d %s", r.Status, r.Reason)
}

var (
	ErrMethodNotAllowed = &Reject{Status: http.StatusMethodNotAllowed, Reason: "method not allowed"}
	ErrUnauthorized     = &Reject{Status: http.StatusUnauthorized, Reason: "unauthorized"}
	ErrNotFound         = &Reject{Status: http.StatusNotFound, Reason: "not found"}
)

// MsgKind identifies a decoded application or control frame.
type MsgKind int

const (
	MsgText MsgKind = iota
	MsgBinary
	MsgClose
	MsgPing
	MsgPong
)

func (k MsgKind) String() string {
	switch k {
	case MsgText:
		return "text"
	case MsgBinary:
		return "binary"
	case MsgClose:
		return "close"
	case MsgPing:
		return "ping"
	case MsgPong:
		return "pong"
	}
	return fmt.Sprintf("MsgKind(%d)", int(k))
}

// Msg is one decoded message. Code and Reason are set for MsgClose only.
type Msg struct {
	Kind   MsgKind
	Data   []byte
	Code   uint16
	Reason string
}

// Close status codes used by the server.
const (
	CloseNormal    uint16 = 1000
	CloseGoingAway uint16 = 1001
	CloseNoStatus  uint16 = 1005
)

// Tx queues outgoing frames.
type Tx interface {
	SendText(text string)
	SendClose(code uint16, reason string)
	SendPong(payload []byte)
}

// Handler receives the events decoded by Dispatch.
type Handler interface {
	// HTTPRequest is called once, before any message, with the handshake
	// request line. A non-nil error rejects the upgrade; a *Reject selects
	// the HTTP status.
	HTTPRequest(method, uri string) error
	// Message is called for every decoded frame after a successful upgrade.
	Message(tx Tx, msg Msg)
}

// Transport is the per-connection framing engine.
type Transport interface {
	// Recv moves inbound events into the dispatch queue and returns how many
	// were moved. (0, nil) means the peer closed the connection.
	Recv() (int, error)
	// Dispatch delivers queued events to h in order.
	Dispatch(h Handler) error
	// Transmit returns the outgoing handle while the transport can accept
	// more data.
	Transmit() (Tx, bool)
	// Send flushes queued frames without blocking.
	Send() error
	RemoteAddr() net.Addr
	Close() error
}
