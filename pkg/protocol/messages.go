// Package protocol defines the messages the ectows server sends to its
// WebSocket clients.
//
// Every outgoing message is JSON-encoded inside an Envelope whose "target"
// names the client-side module the payload is routed to.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Known envelope targets.
const (
	TargetConsoleLog = "console/log"
	TargetWelcome    = "auth/welcome"
	TargetDebugWrite = "debug/write"
	TargetDebugTable = "debug/table"
	TargetSettingsUI = "settings/ui"
)

// Envelope is the wire format for all outgoing messages.
type Envelope struct {
	Message any    `json:"message"`
	Target  string `json:"target"`
}

// Encode marshals payload inside an envelope addressed to target.
func Encode(target string, payload any) ([]byte, error) {
	data, err := json.Marshal(Envelope{Message: payload, Target: target})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", target, err)
	}
	return data, nil
}

// Role is the authorization tier a token grants.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAdmin:
		return "Admin"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// ParseRole accepts the wire names ("User", "Admin") case-insensitively.
func ParseRole(s string) (Role, error) {
	switch {
	case strings.EqualFold(s, "user"):
		return RoleUser, nil
	case strings.EqualFold(s, "admin"):
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if r != RoleUser && r != RoleAdmin {
		return nil, fmt.Errorf("unknown role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Welcome replies to a login request with the peer's address, role and name.
type Welcome struct {
	Addr string `json:"addr"`
	Role Role   `json:"role"`
	Name string `json:"name"`
}

// Visualizer carries scoped debug output for admin clients.
type Visualizer struct {
	Scope   string `json:"scope"`
	Content string `json:"content"`
}

// StringTable is a named list of strings.
type StringTable struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}
