package server

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ectows/ectows/internal/auth"
	"github.com/ectows/ectows/internal/transport"
	"github.com/ectows/ectows/pkg/console"
	"github.com/ectows/ectows/pkg/protocol"
)

// tickEnv carries the server state a connection tick may touch.
type tickEnv struct {
	tokens     *auth.Tokens
	logs       *logRing
	settings   func() *string
	tree       console.Visitor
	maxBacklog uint64
	now        time.Time
	logf       func(format string, args ...any)
}

// Connection is one accepted client.
type Connection struct {
	ID string

	addr      net.Addr
	t         transport.Transport
	session   Session
	closing   bool
	limiter   *rate.Limiter
	logger    *slog.Logger
	accepted  time.Time
	lastSeen  time.Time
	handshake time.Duration
	idle      time.Duration

	// draining is set while a closing connection still has frames its
	// transport could not hand to the writer.
	draining bool
	drainFor int
}

// maxDrainTicks bounds how long a closing connection waits for its last
// frames to be flushed.
const maxDrainTicks = 64

// Session returns the authenticated session, or nil before the handshake.
func (c *Connection) Session() Session { return c.session }

// Closing reports whether the connection is shutting down. It is dropped at
// the end of the tick once its queued frames have reached the writer.
func (c *Connection) Closing() bool { return c.closing }

// tick advances the connection: read, dispatch, role pass, flush.
func (c *Connection) tick(env *tickEnv) {
	if c.closing {
		c.flush(env)
		return
	}

	n, err := c.t.Recv()
	switch {
	case err == nil && n == 0:
		c.closing = true
		return
	case err == nil:
		c.lastSeen = env.now
	case !errors.Is(err, transport.ErrWouldBlock):
		c.logger.Debug("recv failed", "error", err)
		env.logf("%s: %v", c.addr, err)
		c.closing = true
		return
	}

	if err := c.t.Dispatch(&dispatcher{c: c, env: env}); err != nil {
		var rej *transport.Reject
		if errors.As(err, &rej) {
			c.logger.Info("handshake rejected", "status", rej.Status)
		} else {
			env.logf("%s: %v", c.addr, err)
		}
		c.closing = true
		return
	}

	if c.session == nil {
		if c.handshake > 0 && env.now.Sub(c.accepted) > c.handshake {
			env.logf("%s: handshake timeout", c.addr)
			metricRejected.WithLabelValues("timeout").Inc()
			c.closing = true
			return
		}
	} else if c.idle > 0 && env.now.Sub(c.lastSeen) > c.idle {
		env.logf("%s: idle timeout", c.addr)
		if tx, ok := c.t.Transmit(); ok {
			tx.SendClose(transport.CloseNormal, "idle timeout")
		}
		c.closing = true
		c.flush(env)
		return
	}

	if c.session != nil && !c.closing {
		if tx, ok := c.t.Transmit(); ok {
			c.session.tick(c, tx, env)
		}
	}

	c.flush(env)
}

// flush hands queued frames to the writer. A closing connection whose
// writer is busy stays in draining so the close frame is not lost.
func (c *Connection) flush(env *tickEnv) {
	err := c.t.Send()
	switch {
	case err == nil:
		c.draining = false
	case errors.Is(err, transport.ErrWouldBlock):
		if c.closing {
			c.drainFor++
			c.draining = c.drainFor <= maxDrainTicks
		}
	default:
		env.logf("%s: %v", c.addr, err)
		c.closing = true
		c.draining = false
	}
}

func (c *Connection) send(tx transport.Tx, target string, payload any) {
	data, err := protocol.Encode(target, payload)
	if err != nil {
		c.logger.Error("encode failed", "target", target, "error", err)
		return
	}
	tx.SendText(string(data))
}

// dispatcher answers transport events for one connection during one tick.
type dispatcher struct {
	c   *Connection
	env *tickEnv
}

func (d *dispatcher) HTTPRequest(method, uri string) error {
	if method != http.MethodGet {
		metricRejected.WithLabelValues("method").Inc()
		return transport.ErrMethodNotAllowed
	}
	resource, query := splitURI(uri)
	props := parseQuery(query)

	token, ok := props["token"]
	if !ok {
		metricRejected.WithLabelValues("unauthorized").Inc()
		return transport.ErrUnauthorized
	}

	var s Session
	switch resource {
	case "/":
		if !d.env.tokens.IsWebToken(token) {
			metricRejected.WithLabelValues("unauthorized").Inc()
			return transport.ErrUnauthorized
		}
		s = &WebSession{}
	case "/admin":
		if !d.env.tokens.IsAdminToken(token) {
			metricRejected.WithLabelValues("unauthorized").Inc()
			return transport.ErrUnauthorized
		}
		s = &AdminSession{}
	default:
		metricRejected.WithLabelValues("not_found").Inc()
		return transport.ErrNotFound
	}

	console.Walk(s.exposed(d.env.tree), func(path string, n console.Node) {
		p, ok := n.(console.Prop)
		if !ok {
			return
		}
		if v, ok := props[path]; ok {
			_ = p.Set(v)
		}
	})

	d.c.session = s
	d.c.lastSeen = d.env.now
	metricSessions.WithLabelValues(s.Role().String()).Inc()
	d.c.logger.Info("session started", "role", s.Role())
	return nil
}

func (d *dispatcher) Message(tx transport.Tx, msg transport.Msg) {
	c := d.c
	switch msg.Kind {
	case transport.MsgText:
		if c.session == nil {
			return
		}
		path, args := console.SplitLine(string(msg.Data))
		if path == "" {
			return
		}
		if c.limiter != nil && !c.limiter.AllowN(d.env.now, 1) {
			c.send(tx, protocol.TargetConsoleLog, "rate limited: "+path+"\n")
			return
		}
		var out strings.Builder
		console.Poke(c.session.exposed(d.env.tree), path, args, &out)
		if out.Len() > 0 {
			c.send(tx, protocol.TargetConsoleLog, out.String())
		}
	case transport.MsgClose:
		c.closing = true
		tx.SendClose(msg.Code, msg.Reason)
	case transport.MsgPing:
		tx.SendPong(msg.Data)
	}
}
