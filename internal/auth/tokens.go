// Package auth provides the role-keyed token store that gates WebSocket
// handshakes.
package auth

import (
	"golang.org/x/crypto/blake2b"

	"github.com/ectows/ectows/pkg/protocol"
)

// fallbackAdminToken is accepted for the Admin role while no admin
// credentials are configured.
const fallbackAdminToken = "admin"

type digest [blake2b.Size256]byte

func digestOf(token string) digest {
	return blake2b.Sum256([]byte(token))
}

// Tokens holds the secrets accepted for each role. Only digests are kept,
// so lookups do not depend on insertion order.
type Tokens struct {
	user   map[digest]struct{}
	admin  map[digest]struct{}
	signer *Signer

	checked      bool
	lastInsecure bool
}

// NewTokens returns an empty store.
func NewTokens() *Tokens {
	return &Tokens{
		user:  make(map[digest]struct{}),
		admin: make(map[digest]struct{}),
	}
}

func (t *Tokens) set(role protocol.Role) map[digest]struct{} {
	if role == protocol.RoleAdmin {
		return t.admin
	}
	return t.user
}

// Add registers token for role.
func (t *Tokens) Add(role protocol.Role, token string) {
	t.set(role)[digestOf(token)] = struct{}{}
}

// Remove revokes token for role.
func (t *Tokens) Remove(role protocol.Role, token string) {
	delete(t.set(role), digestOf(token))
}

// SetSigner enables signed role tokens. A nil signer disables them.
func (t *Tokens) SetSigner(s *Signer) {
	t.signer = s
}

// Len reports how many static tokens are registered for role.
func (t *Tokens) Len(role protocol.Role) int {
	return len(t.set(role))
}

// insecure reports whether no admin credentials are configured.
func (t *Tokens) insecure() bool {
	return len(t.admin) == 0 && t.signer == nil
}

// CheckWarnInsecure returns true once each time the store enters the state
// where no admin credentials are configured, and false while that state is
// unchanged.
func (t *Tokens) CheckWarnInsecure() bool {
	state := t.insecure()
	if t.checked && state == t.lastInsecure {
		return false
	}
	t.checked = true
	t.lastInsecure = state
	return state
}

// IsWebToken reports whether token grants the User role.
func (t *Tokens) IsWebToken(token string) bool {
	if _, ok := t.user[digestOf(token)]; ok {
		return true
	}
	return t.signedAs(token, protocol.RoleUser)
}

// IsAdminToken reports whether token grants the Admin role. While no admin
// credentials are configured the literal "admin" is accepted instead.
func (t *Tokens) IsAdminToken(token string) bool {
	if t.insecure() {
		return token == fallbackAdminToken
	}
	if _, ok := t.admin[digestOf(token)]; ok {
		return true
	}
	return t.signedAs(token, protocol.RoleAdmin)
}

func (t *Tokens) signedAs(token string, role protocol.Role) bool {
	if t.signer == nil {
		return false
	}
	got, err := t.signer.Verify(token)
	return err == nil && got == role
}
