package auth

import (
	"testing"
	"time"

	"github.com/ectows/ectows/pkg/protocol"
)

func TestTokens_Membership(t *testing.T) {
	tok := NewTokens()
	// Out of order on purpose: lookup must not depend on insertion order.
	for _, s := range []string{"zeta", "alpha", "mid"} {
		tok.Add(protocol.RoleUser, s)
	}
	tok.Add(protocol.RoleAdmin, "root-secret")

	for _, s := range []string{"zeta", "alpha", "mid"} {
		if !tok.IsWebToken(s) {
			t.Errorf("IsWebToken(%q) = false, want true", s)
		}
		if tok.IsAdminToken(s) {
			t.Errorf("IsAdminToken(%q) = true, want false", s)
		}
	}
	if !tok.IsAdminToken("root-secret") {
		t.Error("IsAdminToken(root-secret) = false, want true")
	}
	if tok.IsWebToken("root-secret") {
		t.Error("admin token must not grant the User role")
	}
	if tok.IsWebToken("never-added") {
		t.Error("IsWebToken(never-added) = true, want false")
	}
}

func TestTokens_AdminFallback(t *testing.T) {
	tok := NewTokens()
	if !tok.IsAdminToken("admin") {
		t.Error(`IsAdminToken("admin") = false with no admin tokens`)
	}
	if tok.IsAdminToken("anything-else") {
		t.Error(`IsAdminToken("anything-else") = true with no admin tokens`)
	}

	tok.Add(protocol.RoleAdmin, "s3cret")
	if tok.IsAdminToken("admin") {
		t.Error(`fallback "admin" accepted after an admin token was added`)
	}
}

func TestTokens_CheckWarnInsecure(t *testing.T) {
	tok := NewTokens()

	if !tok.CheckWarnInsecure() {
		t.Fatal("first check with no admin tokens should warn")
	}
	for i := 0; i < 3; i++ {
		if tok.CheckWarnInsecure() {
			t.Fatalf("check %d warned again without a state change", i)
		}
	}

	tok.Add(protocol.RoleAdmin, "s3cret")
	if tok.CheckWarnInsecure() {
		t.Error("check after adding an admin token should not warn")
	}

	tok.Remove(protocol.RoleAdmin, "s3cret")
	if !tok.CheckWarnInsecure() {
		t.Error("check after re-entering the empty state should warn")
	}
	if tok.CheckWarnInsecure() {
		t.Error("second check in the empty state should not warn")
	}
}

func TestTokens_CheckWarnInsecure_ConfiguredFromStart(t *testing.T) {
	tok := NewTokens()
	tok.Add(protocol.RoleAdmin, "s3cret")
	if tok.CheckWarnInsecure() {
		t.Error("should not warn when admin tokens are configured")
	}
}

func TestTokens_Signed(t *testing.T) {
	signer, err := NewSigner("test-secret-at-least-32-chars-long")
	if err != nil {
		t.Fatal(err)
	}
	tok := NewTokens()
	tok.SetSigner(signer)

	if tok.CheckWarnInsecure() {
		t.Error("a signer counts as configured admin credentials")
	}
	if tok.IsAdminToken("admin") {
		t.Error(`fallback "admin" accepted while a signer is installed`)
	}

	adminTok, err := signer.Sign(protocol.RoleAdmin, "ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	userTok, err := signer.Sign(protocol.RoleUser, "viewer", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if !tok.IsAdminToken(adminTok) || tok.IsWebToken(adminTok) {
		t.Error("admin-signed token should grant Admin only")
	}
	if !tok.IsWebToken(userTok) || tok.IsAdminToken(userTok) {
		t.Error("user-signed token should grant User only")
	}
}
