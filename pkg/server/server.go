// Package server is an embeddable WebSocket control plane driven by the host
// program's main loop.
//
// The host calls Tick once per frame with its command tree. Each tick accepts
// pending sockets, services every connection without blocking and drops the
// ones that closed. End users connect on "/" and may only invoke their own
// net.* actions; operators connect on "/admin", see the whole tree and
// receive the operator log.
//
// Tick, Visualize, PublishTable, SettingsUI, AddToken, SetSigner and Stats
// must be called from the goroutine that owns the server. Log and Logf may
// be called from any goroutine.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ectows/ectows/internal/auth"
	"github.com/ectows/ectows/internal/transport"
	"github.com/ectows/ectows/pkg/console"
	"github.com/ectows/ectows/pkg/protocol"
)

// Default limits.
const (
	DefaultLogCapacity = 10000
	DefaultMaxBacklog  = 1000
)

const insecureWarning = "WARNING: No admin tokens set, accepting default 'admin' token."

// Options configures a Server. The zero value is usable.
type Options struct {
	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
	// Stdout mirrors every operator log line. Defaults to os.Stdout; set
	// io.Discard to silence it.
	Stdout io.Writer
	// LogCapacity bounds the operator log (default 10000 lines).
	LogCapacity int
	// MaxBacklog is how many lines an operator is sent at most when catching
	// up (default 1000).
	MaxBacklog int
	// HandshakeTimeout drops sockets that have not completed the upgrade in
	// time. Zero disables it.
	HandshakeTimeout time.Duration
	// IdleTimeout closes sessions that sent nothing for this long. Zero
	// disables it.
	IdleTimeout time.Duration
	// CommandRate limits console commands per connection per second. Zero
	// disables limiting.
	CommandRate float64
	// CommandBurst is the limiter bucket size (default CommandRate rounded
	// up, at least 1).
	CommandBurst int
	// Transport configures each connection's framing.
	Transport transport.Options
	// Clock replaces time.Now in tests.
	Clock func() time.Time
}

// Stats is a snapshot of the server's connections.
type Stats struct {
	Connections     int    `json:"connections"`
	Web             int    `json:"web"`
	Admin           int    `json:"admin"`
	Unauthenticated int    `json:"unauthenticated"`
	Accepted        uint64 `json:"accepted"`
	LogLines        uint64 `json:"log_lines"`
}

// Server owns the listener, the connections, the token store and the
// operator log.
type Server struct {
	ln       *transport.Listener
	conns    []*Connection
	accepted uint64
	tokens   *auth.Tokens
	settings *string

	logs  *logRing
	outMu sync.Mutex

	opts   Options
	logger *slog.Logger
	stdout io.Writer
	now    func() time.Time

	newTransport func(net.Conn) transport.Transport
}

// Listen binds addr and returns a server accepting on it.
func Listen(addr string, opts Options) (*Server, error) {
	ln, err := transport.Listen(addr)
	if err != nil {
		return nil, err
	}
	return New(ln, opts), nil
}

// New returns a server accepting from ln.
func New(ln *transport.Listener, opts Options) *Server {
	if opts.LogCapacity <= 0 {
		opts.LogCapacity = DefaultLogCapacity
	}
	if opts.MaxBacklog <= 0 {
		opts.MaxBacklog = DefaultMaxBacklog
	}
	if opts.CommandRate > 0 && opts.CommandBurst <= 0 {
		opts.CommandBurst = max(1, int(math.Ceil(opts.CommandRate)))
	}
	s := &Server{
		ln:     ln,
		tokens: auth.NewTokens(),
		logs:   newLogRing(opts.LogCapacity),
		opts:   opts,
		logger: opts.Logger,
		stdout: opts.Stdout,
		now:    opts.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "server")
	if s.stdout == nil {
		s.stdout = os.Stdout
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.newTransport = func(c net.Conn) transport.Transport {
		return transport.NewConn(c, opts.Transport)
	}
	return s
}

// Addr returns the listening address, or nil without a listener.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// AddToken registers a token for role.
func (s *Server) AddToken(role protocol.Role, token string) {
	s.tokens.Add(role, token)
}

// RemoveToken revokes a token for role.
func (s *Server) RemoveToken(role protocol.Role, token string) {
	s.tokens.Remove(role, token)
}

// SetSigner enables signed role tokens.
func (s *Server) SetSigner(signer *auth.Signer) {
	s.tokens.SetSigner(signer)
}

// Tick advances the server by one frame. tree is the host's command tree
// for this tick.
func (s *Server) Tick(tree console.Visitor) {
	metricTicks.Inc()
	if tree == nil {
		tree = console.Tree{}
	}
	now := s.now()
	s.accept(now)

	env := &tickEnv{
		tokens:     s.tokens,
		logs:       s.logs,
		settings:   func() *string { return s.settings },
		tree:       tree,
		maxBacklog: uint64(s.opts.MaxBacklog),
		now:        now,
		logf:       s.Logf,
	}
	// Actions run during a connection tick may broadcast over s.conns, so
	// the set is only compacted once every connection has been ticked.
	for _, c := range s.conns {
		c.tick(env)
	}
	kept := s.conns[:0]
	for _, c := range s.conns {
		if c.closing && !c.draining {
			s.drop(c)
			continue
		}
		kept = append(kept, c)
	}
	clear(s.conns[len(kept):])
	s.conns = kept
}

func (s *Server) accept(now time.Time) {
	if s.tokens.CheckWarnInsecure() {
		s.Log(insecureWarning)
	}
	if s.ln == nil {
		return
	}
	for {
		nc, ok := s.ln.Accept()
		if !ok {
			return
		}
		s.attach(s.newTransport(nc), now)
	}
}

func (s *Server) attach(t transport.Transport, now time.Time) *Connection {
	s.accepted++
	metricAccepted.Inc()
	metricConnections.Inc()

	c := &Connection{
		ID:        uuid.NewString(),
		addr:      t.RemoteAddr(),
		t:         t,
		accepted:  now,
		lastSeen:  now,
		handshake: s.opts.HandshakeTimeout,
		idle:      s.opts.IdleTimeout,
	}
	c.logger = s.logger.With("conn_id", c.ID, "addr", c.addr.String())
	if s.opts.CommandRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(s.opts.CommandRate), s.opts.CommandBurst)
	}
	s.conns = append(s.conns, c)
	s.Logf("%s connected", c.addr)
	return c
}

func (s *Server) drop(c *Connection) {
	metricConnections.Dec()
	if c.session != nil {
		metricSessions.WithLabelValues(c.session.Role().String()).Dec()
	}
	if err := c.t.Close(); err != nil {
		c.logger.Debug("close transport", "error", err)
	}
	s.Logf("%s disconnected", c.addr)
}

// Connections returns the live connections. The slice is only valid until
// the next Tick.
func (s *Server) Connections() []*Connection {
	return s.conns
}

// broadcast sends an envelope to every admin connection with capacity.
func (s *Server) broadcast(target string, payload any) {
	data, err := protocol.Encode(target, payload)
	if err != nil {
		s.logger.Error("encode failed", "target", target, "error", err)
		return
	}
	text := string(data)
	for _, c := range s.conns {
		if _, ok := c.session.(*AdminSession); !ok || c.closing {
			continue
		}
		if tx, ok := c.t.Transmit(); ok {
			tx.SendText(text)
		}
	}
}

// Visualize sends scoped debug output to every operator.
func (s *Server) Visualize(scope, content string) {
	s.broadcast(protocol.TargetDebugWrite, protocol.Visualizer{Scope: scope, Content: content})
}

// PublishTable sends a named list of strings to every operator.
func (s *Server) PublishTable(name string, values []string) {
	s.broadcast(protocol.TargetDebugTable, protocol.StringTable{Name: name, Values: values})
}

// SettingsUI replaces the settings descriptor. Every operator receives it
// again on its next tick.
func (s *Server) SettingsUI(ui string) {
	s.settings = &ui
	for _, c := range s.conns {
		if a, ok := c.session.(*AdminSession); ok {
			a.hasUI = false
		}
	}
}

// Log appends a line to the operator log and mirrors it to Stdout. The
// arguments are formatted like fmt.Sprint.
func (s *Server) Log(args ...any) {
	s.logLine(fmt.Sprint(args...))
}

// Logf is Log with a format string.
func (s *Server) Logf(format string, args ...any) {
	s.logLine(fmt.Sprintf(format, args...))
}

func (s *Server) logLine(line string) {
	line = withNewline(line)
	s.outMu.Lock()
	_, _ = io.WriteString(s.stdout, line)
	s.logs.append(line)
	s.outMu.Unlock()
	metricLogLines.Inc()
}

// record appends to the operator log without mirroring to Stdout.
func (s *Server) record(line string) {
	s.logs.append(withNewline(line))
	metricLogLines.Inc()
}

func withNewline(line string) string {
	if !strings.HasSuffix(line, "\n") {
		return line + "\n"
	}
	return line
}

// Stats returns a snapshot of the connection counts.
func (s *Server) Stats() Stats {
	st := Stats{Connections: len(s.conns), Accepted: s.accepted}
	_, st.LogLines = s.logs.bounds()
	for _, c := range s.conns {
		switch c.session.(type) {
		case *WebSession:
			st.Web++
		case *AdminSession:
			st.Admin++
		default:
			st.Unauthenticated++
		}
	}
	return st
}

// Close stops accepting and closes every connection. Upgraded peers are
// sent a going-away close frame first.
func (s *Server) Close() error {
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for _, c := range s.conns {
		if tx, ok := c.t.Transmit(); ok {
			tx.SendClose(transport.CloseGoingAway, "server shutting down")
			_ = c.t.Send()
		}
		s.drop(c)
	}
	s.conns = nil
	return err
}
