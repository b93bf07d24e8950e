package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Prompter{
		In:  strings.NewReader(input),
		Out: out,
	}, out
}

func TestAsk(t *testing.T) {
	cases := []struct {
		input, def, want string
	}{
		{"hello\n", "default", "hello"},
		{"\n", "fallback", "fallback"},
		{"   \n", "fallback", "fallback"},
		{"", "eof", "eof"},
	}
	for _, c := range cases {
		p, _ := newTestPrompter(c.input)
		if got := p.Ask("Name", c.def); got != c.want {
			t.Errorf("Ask(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestAsk_PromptShowsDefault(t *testing.T) {
	p, out := newTestPrompter("\n")
	p.Ask("Listen address", ":9000")
	if out.String() != "Listen address [:9000]: " {
		t.Errorf("prompt = %q", out.String())
	}
}

func TestAskSecret_Fallback(t *testing.T) {
	// Not a real terminal, so it falls back to plain read.
	p, _ := newTestPrompter("s3cret\n")
	if got := p.AskSecret("Token"); got != "s3cret" {
		t.Errorf("AskSecret() = %q, want %q", got, "s3cret")
	}
}

func TestAskInt_RetriesOutOfRange(t *testing.T) {
	p, out := newTestPrompter("0\nabc\n120\n")
	if got := p.AskInt("Tick rate", 60, 1, 1000); got != 120 {
		t.Errorf("AskInt() = %d, want 120", got)
	}
	if strings.Count(out.String(), "between 1 and 1000") != 2 {
		t.Errorf("expected two retry hints, got %q", out.String())
	}
}

func TestAskInt_DefaultOnEmpty(t *testing.T) {
	p, _ := newTestPrompter("\n")
	if got := p.AskInt("Tick rate", 60, 1, 1000); got != 60 {
		t.Errorf("AskInt() = %d, want 60", got)
	}
}

func TestAskFloat(t *testing.T) {
	p, _ := newTestPrompter("-1\n2.5\n")
	if got := p.AskFloat("Rate", 0); got != 2.5 {
		t.Errorf("AskFloat() = %v, want 2.5", got)
	}
}

func TestAskDuration(t *testing.T) {
	p, _ := newTestPrompter("soon\n90s\n")
	if got := p.AskDuration("Timeout", 10*time.Second); got != 90*time.Second {
		t.Errorf("AskDuration() = %v, want 90s", got)
	}
	p, _ = newTestPrompter("\n")
	if got := p.AskDuration("Timeout", 10*time.Second); got != 10*time.Second {
		t.Errorf("AskDuration() default = %v, want 10s", got)
	}
}

func TestAskList(t *testing.T) {
	p, _ := newTestPrompter(" a, ,b ,c\n")
	got := p.AskList("Tokens")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("AskList() = %q", got)
	}
	p, _ = newTestPrompter("\n")
	if got := p.AskList("Tokens"); len(got) != 0 {
		t.Errorf("AskList() empty = %q", got)
	}
}

func TestChoose(t *testing.T) {
	p, _ := newTestPrompter("2\n")
	if got := p.Choose("Format", []string{"text", "json"}, 0); got != "json" {
		t.Errorf("Choose() = %q, want %q", got, "json")
	}
	p, _ = newTestPrompter("\n")
	if got := p.Choose("Format", []string{"text", "json"}, 1); got != "json" {
		t.Errorf("Choose() default = %q, want %q", got, "json")
	}
}

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"yes\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
	}
	for _, c := range cases {
		p, _ := newTestPrompter(c.input)
		if got := p.Confirm("Continue?", c.def); got != c.want {
			t.Errorf("Confirm(%q, %v) = %v, want %v", c.input, c.def, got, c.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(strings.NewReader("")) {
		t.Error("strings.Reader reported as terminal")
	}
}
