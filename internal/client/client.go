// Package client is the operator side of the ectows admin channel.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ectows/ectows/pkg/protocol"
)

// Options configures a connection to an ectows server.
type Options struct {
	// Addr is host:port of the WebSocket listener.
	Addr string
	// Token is sent as the token query property.
	Token string
	// Path selects the session kind (default "/admin").
	Path string
	// Props seed console properties during the handshake.
	Props map[string]string
	// HandshakeTimeout bounds the dial (default 10s).
	HandshakeTimeout time.Duration
}

// Client is a connected operator console.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu sync.Mutex // serializes writes
}

// Envelope is a received message with its payload left undecoded.
type Envelope struct {
	Target  string          `json:"target"`
	Message json.RawMessage `json:"message"`
}

// URL builds the handshake URL for opts. Property values are sent verbatim.
func URL(opts Options) string {
	path := opts.Path
	if path == "" {
		path = "/admin"
	}
	query := []string{"token=" + opts.Token}
	keys := make([]string, 0, len(opts.Props))
	for k := range opts.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query = append(query, k+"="+opts.Props[k])
	}
	u := url.URL{Scheme: "ws", Host: opts.Addr, Path: path, RawQuery: strings.Join(query, "&")}
	return u.String()
}

// Dial connects and completes the handshake.
func Dial(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	timeout := opts.HandshakeTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	conn, resp, err := dialer.DialContext(ctx, URL(opts), nil)
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return nil, fmt.Errorf("dial %s: server answered %s: %w", opts.Addr, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", opts.Addr, err)
	}
	c := &Client{conn: conn, logger: logger.With("component", "client")}
	c.logger.Info("connected", "addr", opts.Addr)
	return c, nil
}

// Send submits one console command line.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// Read blocks for the next envelope. Non-JSON frames are skipped.
func (c *Client) Read() (Envelope, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return Envelope{}, fmt.Errorf("read message: %w", err)
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("invalid message from server", "error", err)
			continue
		}
		return env, nil
	}
}

// Run delivers envelopes to handle until the connection fails or ctx is
// canceled.
func (c *Client) Run(ctx context.Context, handle func(Envelope)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()
	for {
		env, err := c.Read()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return nil
			}
			return err
		}
		handle(env)
	}
}

// Close sends a normal close frame and closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.conn.Close()
}

// Render formats an envelope for display. The result ends in a newline
// unless it is empty.
func Render(env Envelope) string {
	switch env.Target {
	case protocol.TargetConsoleLog:
		var line string
		if json.Unmarshal(env.Message, &line) != nil {
			break
		}
		if line != "" && !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		return line
	case protocol.TargetDebugWrite:
		var v protocol.Visualizer
		if json.Unmarshal(env.Message, &v) != nil {
			break
		}
		return fmt.Sprintf("[%s] %s\n", v.Scope, v.Content)
	case protocol.TargetDebugTable:
		var st protocol.StringTable
		if json.Unmarshal(env.Message, &st) != nil {
			break
		}
		return fmt.Sprintf("%s: %s\n", st.Name, strings.Join(st.Values, ", "))
	case protocol.TargetSettingsUI:
		var ui string
		if json.Unmarshal(env.Message, &ui) != nil {
			break
		}
		var entries []json.RawMessage
		if json.Unmarshal([]byte(ui), &entries) == nil {
			return fmt.Sprintf("settings updated (%d entries)\n", len(entries))
		}
		return "settings updated\n"
	case protocol.TargetWelcome:
		var w protocol.Welcome
		if json.Unmarshal(env.Message, &w) != nil {
			break
		}
		return fmt.Sprintf("welcome %s (%s) from %s\n", w.Name, w.Role, w.Addr)
	}
	return fmt.Sprintf("%s: %s\n", env.Target, env.Message)
}
