package tui

import "testing"

func TestLineStyle(t *testing.T) {
	cases := map[string]string{
		"WARNING: No admin tokens set": "warn",
		"WARN disk low pct=91":         "warn",
		"ERROR boom":                   "error",
		"DEBUG noise":                  "dim",
		"[physics] bodies=3":           "debug",
		"10.0.0.1:5 connected":         "text",
	}
	for line, want := range cases {
		if got := styleName(LineStyle(line).GetForeground()); got != want {
			t.Errorf("LineStyle(%q): got %s, want %s", line, got, want)
		}
	}
}

func styleName(c any) string {
	switch c {
	case ColorWarning:
		return "warn"
	case ColorError:
		return "error"
	case ColorMuted:
		return "dim"
	case ColorSecondary:
		return "debug"
	case ColorText:
		return "text"
	}
	return "?"
}
