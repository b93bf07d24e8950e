package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ectows/ectows/internal/auth"
	"github.com/ectows/ectows/pkg/protocol"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ectows.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestResolveConfigPath(t *testing.T) {
	root := NewRootCmd("test")
	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatal(err)
	}

	if got := resolveConfigPath(serve, nil, "default.json"); got != "default.json" {
		t.Errorf("no flag: got %q, want %q", got, "default.json")
	}
	if err := root.PersistentFlags().Set("config", "flag.json"); err != nil {
		t.Fatal(err)
	}
	if got := resolveConfigPath(serve, nil, "default.json"); got != "flag.json" {
		t.Errorf("flag: got %q, want %q", got, "flag.json")
	}
	if got := resolveConfigPath(serve, []string{"arg.json"}, "default.json"); got != "arg.json" {
		t.Errorf("positional: got %q, want %q", got, "arg.json")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at warn level: %q", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("json output = %q", out)
	}

	if _, err := newLogger(&buf, "loud", "text"); err == nil {
		t.Error("unknown level should fail")
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestParseProps(t *testing.T) {
	props, err := parseProps([]string{"sys.motd=hello", "sys.tickrate=30", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	if props["sys.motd"] != "hello" || props["sys.tickrate"] != "30" {
		t.Errorf("props = %v", props)
	}
	if v, ok := props["empty"]; !ok || v != "" {
		t.Errorf("empty value: got %q, %v", v, ok)
	}

	for _, bad := range []string{"novalue", "=x", "token=abc"} {
		if _, err := parseProps([]string{bad}); err == nil {
			t.Errorf("parseProps(%q) should fail", bad)
		}
	}
	if props, err := parseProps(nil); err != nil || props != nil {
		t.Errorf("parseProps(nil) = %v, %v", props, err)
	}
}

func TestMaskToken(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"short":        "*****",
		"abcdefghijkl": "abcd****ijkl",
	}
	for in, want := range cases {
		if got := maskToken(in); got != want {
			t.Errorf("maskToken(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestTokenNew(t *testing.T) {
	out, err := execute(t, "token", "new")
	if err != nil {
		t.Fatal(err)
	}
	if tok := strings.TrimSpace(out); len(tok) != 64 {
		t.Errorf("token = %q, want 64 hex characters", tok)
	}
}

func TestTokenSign(t *testing.T) {
	path := writeConfig(t, `{"server":{"addr":":0"},"auth":{"signing_secret":"`+testSecret+`"}}`)

	out, err := execute(t, "token", "sign", "--role", "user", "--ttl", "1h", "-c", path)
	if err != nil {
		t.Fatalf("token sign: %v", err)
	}

	signer, err := auth.NewSigner(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	role, err := signer.Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if role != protocol.RoleUser {
		t.Errorf("role: got %v, want %v", role, protocol.RoleUser)
	}
}

func TestTokenSign_NoSecret(t *testing.T) {
	path := writeConfig(t, `{"server":{"addr":":0"}}`)
	_, err := execute(t, "token", "sign", path)
	if err == nil || !strings.Contains(err.Error(), "signing_secret is not set") {
		t.Errorf("err = %v, want missing secret", err)
	}
}

func TestTokenSign_BadRole(t *testing.T) {
	path := writeConfig(t, `{"server":{"addr":":0"},"auth":{"signing_secret":"`+testSecret+`"}}`)
	if _, err := execute(t, "token", "sign", "--role", "root", path); err == nil {
		t.Error("unknown role should fail")
	}
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"addr": ":9000"},
		"auth": {"admin_tokens": ["adminadminadmin1"], "signing_secret": "`+testSecret+`"}
	}`)

	out, err := execute(t, "config", "show", path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "adminadminadmin1") || strings.Contains(out, testSecret) {
		t.Errorf("secrets leaked: %s", out)
	}
	if !strings.Contains(out, "admi********min1") {
		t.Errorf("masked admin token missing: %s", out)
	}
	if !strings.Contains(out, `"tick_rate": 60`) {
		t.Errorf("defaults not applied: %s", out)
	}
}

func TestConfigCheck(t *testing.T) {
	good := writeConfig(t, `{"server":{"addr":":9000"}}`)
	out, err := execute(t, "config", "check", good)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), ": ok") {
		t.Errorf("output = %q", out)
	}

	bad := writeConfig(t, `{"server":{"addr":":9000","tick_rate":5000}}`)
	if _, err := execute(t, "config", "check", bad); err == nil {
		t.Error("invalid tick rate should fail")
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "ectows test\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestServe_MissingConfig(t *testing.T) {
	_, err := execute(t, "serve", filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Error("serve with a missing config should fail")
	}
}
