package client

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Pipe is the non-interactive console: every line read from in is sent as a
// command and every envelope received is rendered to out. It returns when
// the connection ends or ctx is canceled. End of input does not stop it.
func (c *Client) Pipe(ctx context.Context, in io.Reader, out io.Writer) error {
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if err := c.Send(line); err != nil {
				c.logger.Warn("send failed", "error", err)
				return
			}
		}
	}()
	return c.Run(ctx, func(env Envelope) {
		if _, err := io.WriteString(out, Render(env)); err != nil {
			c.logger.Debug("write output failed", "error", err)
		}
	})
}
