// Package wizard provides an interactive setup wizard for the ectows host.
package wizard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ectows/ectows/internal/config"
	"github.com/ectows/ectows/pkg/cli"
)

// Wizard drives the interactive config setup.
type Wizard struct {
	p *cli.Prompter
}

// New creates a Wizard using the given Prompter.
func New(p *cli.Prompter) *Wizard {
	return &Wizard{p: p}
}

func (w *Wizard) println(a ...any) {
	_, _ = fmt.Fprintln(w.p.Out, a...)
}

// Run executes the interactive wizard and writes the config file.
func (w *Wizard) Run(outputPath string) error {
	w.println()
	w.println("  ectows - Configuration Wizard")
	w.println(strings.Repeat("─", 34))
	w.println()

	cfg := &config.Config{}

	w.println("Server")
	cfg.Server.Addr = w.p.Ask("  WebSocket listen address", ":9000")
	if w.p.Confirm("  Serve /healthz, /status and /metrics?", true) {
		cfg.Server.StatusAddr = w.p.Ask("  Status listen address", "127.0.0.1:9001")
	}
	cfg.Server.TickRate = w.p.AskInt("  Ticks per second", 60, 1, 1000)
	cfg.Server.HandshakeTimeout.Duration = w.p.AskDuration("  Handshake timeout", 10*time.Second)
	cfg.Server.IdleTimeout.Duration = w.p.AskDuration("  Idle timeout (0s disables)", 0)
	w.println()

	w.println("Authentication")
	adminToken, err := config.GenerateRandomSecret()
	if err != nil {
		return fmt.Errorf("generate admin token: %w", err)
	}
	cfg.Auth.AdminTokens = []string{adminToken}

	var userToken string
	if w.p.Confirm("  Generate a user token?", true) {
		userToken, err = config.GenerateRandomSecret()
		if err != nil {
			return fmt.Errorf("generate user token: %w", err)
		}
		cfg.Auth.UserTokens = []string{userToken}
	}
	cfg.Auth.UserTokens = append(cfg.Auth.UserTokens, w.p.AskList("  Additional user tokens (comma separated)")...)

	if w.p.Confirm("  Enable signed role tokens?", false) {
		secret, err := config.GenerateRandomSecret()
		if err != nil {
			return fmt.Errorf("generate signing secret: %w", err)
		}
		cfg.Auth.SigningSecret = secret
		cfg.Auth.SignedTokenExpiry.Duration = w.p.AskDuration("  Signed token lifetime", 24*time.Hour)
	}
	w.println()

	w.println("Sessions")
	cfg.Session.CommandRate = w.p.AskFloat("  Commands per second per connection (0 = unlimited)", 0)
	w.println()

	w.println("Logging")
	cfg.Logging.Format = w.p.Choose("  Log format", []string{"text", "json"}, 0)
	cfg.Logging.Level = w.p.Choose("  Log level", []string{"debug", "info", "warn", "error"}, 1)
	w.println()

	w.println("  Keep these tokens safe:")
	_, _ = fmt.Fprintf(w.p.Out, "    Admin token: %s\n", adminToken)
	if userToken != "" {
		_, _ = fmt.Fprintf(w.p.Out, "    User token:  %s\n", userToken)
	}
	w.println()

	if outputPath == "" {
		outputPath = w.p.Ask("Config file output path", "./ectows.json")
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(outputPath, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	_, _ = fmt.Fprintf(w.p.Out, "\n  Config written to %s\n", outputPath)
	w.println()
	w.println("  Next steps:")
	_, _ = fmt.Fprintf(w.p.Out, "    ectows serve %s\n", outputPath)
	_, _ = fmt.Fprintf(w.p.Out, "    ectows console --addr %s --token <admin token>\n\n", dialAddr(cfg.Server.Addr))

	return nil
}

// dialAddr turns a listen address like ":9000" into one a client can dial.
func dialAddr(listen string) string {
	if strings.HasPrefix(listen, ":") {
		return "localhost" + listen
	}
	return listen
}
