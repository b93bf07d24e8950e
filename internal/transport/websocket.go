package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/gobwas/ws"
)

// Options configures a WebSocket transport.
type Options struct {
	// SendCapacity is how many queued outgoing bytes Transmit tolerates
	// before reporting no capacity (default 4000).
	SendCapacity int
	// MaxMessageBytes bounds a single inbound message (default 64KB).
	MaxMessageBytes int64
	// WriteTimeout bounds each socket write (default 5s).
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendCapacity <= 0 {
		o.SendCapacity = 4000
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 64 * 1024
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	return o
}

type eventKind int

const (
	evHandshake eventKind = iota
	evMessage
	evMalformed
	evEOF
	evError
)

type event struct {
	kind  eventKind
	uri   string
	reply chan error
	msg   Msg
	err   error
}

// Conn is a server-side WebSocket transport over a net.Conn.
type Conn struct {
	conn net.Conn
	opts Options

	events   chan event
	done     chan struct{}
	shutdown chan struct{}
	writeq   chan []byte
	errc     chan error
	hsDone   chan struct{}
	once     sync.Once

	upgraded    atomic.Bool
	verdictSent atomic.Bool

	// Owned by the tick goroutine.
	pending   []event
	eof       bool
	readErr   error
	sendErr   error
	out       bytes.Buffer
	closeSent bool
}

// NewConn starts the reader and writer goroutines for c.
func NewConn(c net.Conn, opts Options) *Conn {
	t := &Conn{
		conn:     c,
		opts:     opts.withDefaults(),
		events:   make(chan event, 64),
		done:     make(chan struct{}),
		shutdown: make(chan struct{}),
		writeq:   make(chan []byte, 1),
		errc:     make(chan error, 1),
		hsDone:   make(chan struct{}),
	}
	go t.readLoop()
	go t.writeLoop()
	return t
}

func (t *Conn) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }

// Recv implements Transport.
func (t *Conn) Recv() (int, error) {
	n := 0
drain:
	for {
		select {
		case ev := <-t.events:
			switch ev.kind {
			case evEOF:
				t.eof = true
			case evError:
				t.readErr = ev.err
			default:
				t.pending = append(t.pending, ev)
				n++
			}
		default:
			break drain
		}
	}
	switch {
	case n > 0:
		return n, nil
	case t.readErr != nil:
		return 0, t.readErr
	case t.eof:
		return 0, nil
	}
	return 0, ErrWouldBlock
}

// Dispatch implements Transport.
func (t *Conn) Dispatch(h Handler) error {
	pending := t.pending
	t.pending = nil
	for _, ev := range pending {
		switch ev.kind {
		case evHandshake:
			err := h.HTTPRequest(http.MethodGet, ev.uri)
			t.verdictSent.Store(true)
			ev.reply <- err
			if err != nil {
				return err
			}
		case evMessage:
			h.Message(t, ev.msg)
		case evMalformed:
			return fmt.Errorf("decode frame: %w", ev.err)
		}
	}
	return nil
}

// Transmit implements Transport.
func (t *Conn) Transmit() (Tx, bool) {
	if !t.upgraded.Load() || t.closeSent || t.out.Len() >= t.opts.SendCapacity {
		return nil, false
	}
	return t, true
}

// Send implements Transport.
func (t *Conn) Send() error {
	if t.sendErr == nil {
		select {
		case err := <-t.errc:
			t.sendErr = err
		default:
		}
	}
	if t.sendErr != nil {
		return t.sendErr
	}
	if t.out.Len() == 0 {
		return nil
	}
	batch := bytes.Clone(t.out.Bytes())
	select {
	case t.writeq <- batch:
		t.out.Reset()
		return nil
	default:
		return ErrWouldBlock
	}
}

func (t *Conn) queue(f ws.Frame) {
	if t.closeSent {
		return
	}
	// Writing into a bytes.Buffer cannot fail.
	_ = ws.WriteFrame(&t.out, f)
}

func (t *Conn) SendText(text string) {
	t.queue(ws.NewTextFrame([]byte(text)))
}

func (t *Conn) SendPong(payload []byte) {
	t.queue(ws.NewPongFrame(payload))
}

func (t *Conn) SendClose(code uint16, reason string) {
	var body []byte
	if code != CloseNoStatus {
		body = ws.NewCloseFrameBody(ws.StatusCode(code), reason)
	}
	t.queue(ws.NewCloseFrame(body))
	t.closeSent = true
}

// Close stops both goroutines. Frames already handed to the writer are
// flushed before the socket is closed.
func (t *Conn) Close() error {
	t.once.Do(func() {
		close(t.done)
		close(t.shutdown)
	})
	return nil
}

func (t *Conn) push(ev event) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	}
}

func (t *Conn) verdict(uri []byte) error {
	reply := make(chan error, 1)
	if !t.push(event{kind: evHandshake, uri: string(uri), reply: reply}) {
		return ErrClosed
	}
	select {
	case err := <-reply:
		var rej *Reject
		if errors.As(err, &rej) {
			return ws.RejectConnectionError(
				ws.RejectionStatus(rej.Status),
				ws.RejectionReason(rej.Reason),
			)
		}
		return err
	case <-t.done:
		return ErrClosed
	}
}

func (t *Conn) readLoop() {
	u := ws.Upgrader{OnRequest: t.verdict}
	_, err := u.Upgrade(t.conn)
	close(t.hsDone)
	if err != nil {
		t.push(event{kind: evError, err: fmt.Errorf("upgrade: %w", err)})
		return
	}
	t.upgraded.Store(true)

	r := bufio.NewReader(t.conn)
	var (
		fragments  []byte
		fragOp     ws.OpCode
		fragmented bool
	)
	for {
		h, err := ws.ReadHeader(r)
		if err != nil {
			t.pushReadErr(err)
			return
		}
		state := ws.StateServerSide
		if fragmented {
			state |= ws.StateFragmented
		}
		if err := ws.CheckHeader(h, state); err != nil {
			t.push(event{kind: evMalformed, err: err})
			return
		}
		if h.Length > t.opts.MaxMessageBytes || int64(len(fragments))+h.Length > t.opts.MaxMessageBytes {
			t.push(event{kind: evMalformed, err: fmt.Errorf("message exceeds %d bytes", t.opts.MaxMessageBytes)})
			return
		}

		payload := make([]byte, h.Length)
		if _, err := io.ReadFull(r, payload); err != nil {
			t.pushReadErr(err)
			return
		}
		if h.Masked {
			ws.Cipher(payload, h.Mask, 0)
		}

		if h.OpCode.IsControl() {
			if !t.push(event{kind: evMessage, msg: controlMsg(h.OpCode, payload)}) {
				return
			}
			continue
		}

		if h.OpCode != ws.OpContinuation {
			fragOp = h.OpCode
			fragments = fragments[:0]
		}
		fragments = append(fragments, payload...)
		fragmented = !h.Fin
		if fragmented {
			continue
		}

		msg := Msg{Kind: MsgBinary, Data: bytes.Clone(fragments)}
		if fragOp == ws.OpText {
			if !utf8.Valid(msg.Data) {
				t.push(event{kind: evMalformed, err: errors.New("invalid utf-8 in text frame")})
				return
			}
			msg.Kind = MsgText
		}
		if !t.push(event{kind: evMessage, msg: msg}) {
			return
		}
	}
}

func (t *Conn) pushReadErr(err error) {
	if errors.Is(err, io.EOF) {
		t.push(event{kind: evEOF})
		return
	}
	t.push(event{kind: evError, err: fmt.Errorf("read frame: %w", err)})
}

func controlMsg(op ws.OpCode, payload []byte) Msg {
	switch op {
	case ws.OpPing:
		return Msg{Kind: MsgPing, Data: payload}
	case ws.OpPong:
		return Msg{Kind: MsgPong, Data: payload}
	}
	msg := Msg{Kind: MsgClose, Code: CloseNoStatus}
	if len(payload) >= 2 {
		code, reason := ws.ParseCloseFrameData(payload)
		msg.Code = uint16(code)
		msg.Reason = reason
	}
	return msg
}

func (t *Conn) writeLoop() {
	for {
		select {
		case batch := <-t.writeq:
			if err := t.write(batch); err != nil {
				t.errc <- err
				t.drainAndClose()
				return
			}
		case <-t.shutdown:
			t.drainAndClose()
			return
		}
	}
}

func (t *Conn) write(batch []byte) error {
	_ = t.conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
	if _, err := t.conn.Write(batch); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// drainAndClose waits for a pending handshake response to be written,
// flushes any batch still queued and closes the socket.
func (t *Conn) drainAndClose() {
	<-t.shutdown
	if t.verdictSent.Load() {
		select {
		case <-t.hsDone:
		case <-time.After(t.opts.WriteTimeout):
		}
	}
	select {
	case batch := <-t.writeq:
		_ = t.write(batch)
	default:
	}
	_ = t.conn.Close()
}
