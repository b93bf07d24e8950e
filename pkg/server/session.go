package server

import (
	"io"

	"github.com/ectows/ectows/internal/transport"
	"github.com/ectows/ectows/pkg/console"
	"github.com/ectows/ectows/pkg/protocol"
)

// Session is the per-role state of an authenticated connection. It is
// either a *WebSession or an *AdminSession.
type Session interface {
	Role() protocol.Role
	// exposed returns the command tree this session may read and poke.
	exposed(tree console.Visitor) console.Visitor
	// tick runs the role-specific outgoing pass. It is only called while the
	// transport has capacity.
	tick(c *Connection, tx transport.Tx, env *tickEnv)
}

// WebSession is an end-user session. It exposes only its own net.* actions.
type WebSession struct {
	wantsState bool
	wantsLogin bool
}

func (*WebSession) Role() protocol.Role { return protocol.RoleUser }

func (w *WebSession) exposed(console.Visitor) console.Visitor {
	return console.Tree{
		console.Group("net",
			console.Func("state!", func(string, io.Writer) { w.wantsState = true }),
			console.Func("login!", func(string, io.Writer) { w.wantsLogin = true }),
		),
	}
}

func (w *WebSession) tick(c *Connection, tx transport.Tx, env *tickEnv) {
	// No state feed exists; the request is cleared without a reply.
	w.wantsState = false
	if w.wantsLogin {
		w.wantsLogin = false
		c.send(tx, protocol.TargetWelcome, protocol.Welcome{
			Addr: c.addr.String(),
			Role: protocol.RoleUser,
			Name: "Anonymous",
		})
	}
}

// AdminSession is an operator session. It sees the host tree and receives
// the operator log and settings UI.
type AdminSession struct {
	cursor uint64
	hasUI  bool
}

func (*AdminSession) Role() protocol.Role { return protocol.RoleAdmin }

func (*AdminSession) exposed(tree console.Visitor) console.Visitor { return tree }

func (a *AdminSession) tick(c *Connection, tx transport.Tx, env *tickEnv) {
	first, end := env.logs.bounds()
	if a.cursor > end {
		a.cursor = end
	}
	if end-a.cursor > env.maxBacklog {
		a.cursor = end - env.maxBacklog
	}
	if a.cursor < first {
		a.cursor = first
	}
	env.logs.each(a.cursor, end, func(line string) {
		c.send(tx, protocol.TargetConsoleLog, line)
	})
	a.cursor = end

	if ui := env.settings(); ui != nil && !a.hasUI {
		c.send(tx, protocol.TargetSettingsUI, *ui)
		a.hasUI = true
	}
}
