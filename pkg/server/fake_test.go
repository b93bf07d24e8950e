package server

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/ectows/ectows/internal/transport"
	"github.com/ectows/ectows/pkg/protocol"
)

// fakeTransport scripts the inbound side and records everything sent.
type fakeTransport struct {
	addr net.Addr

	uri     string
	hsReady bool
	inbox   []transport.Msg
	eof     bool
	recvErr error

	upgraded  bool
	rejected  error
	full      bool
	closeSent bool
	closeCode uint16
	closeWhy  string
	closed    bool

	// busySends makes that many upcoming Send calls report a busy writer.
	busySends int
	sends     int

	texts []string
	pongs [][]byte
}

func newFake(uri string) *fakeTransport {
	return &fakeTransport{
		addr:    &net.TCPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 5100},
		uri:     uri,
		hsReady: true,
	}
}

func (f *fakeTransport) push(kind transport.MsgKind, data string) {
	f.inbox = append(f.inbox, transport.Msg{Kind: kind, Data: []byte(data)})
}

func (f *fakeTransport) Recv() (int, error) {
	n := len(f.inbox)
	if f.hsReady {
		n++
	}
	switch {
	case n > 0:
		return n, nil
	case f.recvErr != nil:
		return 0, f.recvErr
	case f.eof:
		return 0, nil
	}
	return 0, transport.ErrWouldBlock
}

func (f *fakeTransport) Dispatch(h transport.Handler) error {
	if f.hsReady {
		f.hsReady = false
		if err := h.HTTPRequest("GET", f.uri); err != nil {
			f.rejected = err
			return err
		}
		f.upgraded = true
	}
	inbox := f.inbox
	f.inbox = nil
	for _, m := range inbox {
		h.Message(f, m)
	}
	return nil
}

func (f *fakeTransport) Transmit() (transport.Tx, bool) {
	if !f.upgraded || f.full || f.closeSent {
		return nil, false
	}
	return f, true
}

func (f *fakeTransport) Send() error {
	f.sends++
	if f.busySends > 0 {
		f.busySends--
		return transport.ErrWouldBlock
	}
	return nil
}

func (f *fakeTransport) RemoteAddr() net.Addr { return f.addr }
func (f *fakeTransport) Close() error         { f.closed = true; return nil }

func (f *fakeTransport) SendText(text string) { f.texts = append(f.texts, text) }
func (f *fakeTransport) SendPong(p []byte)    { f.pongs = append(f.pongs, p) }
func (f *fakeTransport) SendClose(code uint16, reason string) {
	f.closeSent = true
	f.closeCode = code
	f.closeWhy = reason
}

// envelopes decodes and clears the recorded text frames.
func (f *fakeTransport) envelopes(t *testing.T) []protocol.Envelope {
	t.Helper()
	var out []protocol.Envelope
	for _, text := range f.texts {
		var env protocol.Envelope
		if err := json.Unmarshal([]byte(text), &env); err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
		out = append(out, env)
	}
	f.texts = nil
	return out
}

// settingsUIs returns the settings/ui payloads among envs.
func settingsUIs(envs []protocol.Envelope) []any {
	var uis []any
	for _, e := range envs {
		if e.Target == protocol.TargetSettingsUI {
			uis = append(uis, e.Message)
		}
	}
	return uis
}

// logLines returns the console/log payloads among envs.
func logLines(envs []protocol.Envelope) []string {
	var lines []string
	for _, e := range envs {
		if e.Target == protocol.TargetConsoleLog {
			if s, ok := e.Message.(string); ok {
				lines = append(lines, s)
			}
		}
	}
	return lines
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
