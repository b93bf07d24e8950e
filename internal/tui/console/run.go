package console

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ectows/ectows/internal/client"
)

// Run shows the console for an established connection until the user quits
// or ctx is canceled.
func Run(ctx context.Context, c *client.Client, addr string) error {
	m := NewModel(addr, c.Send)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		err := c.Run(ctx, func(env client.Envelope) {
			p.Send(EnvelopeMsg{Env: env})
		})
		p.Send(DisconnectedMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
