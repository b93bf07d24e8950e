package server

import (
	"strings"
	"testing"
)

func collect(r *logRing, from, to uint64) string {
	var b strings.Builder
	r.each(from, to, func(line string) { b.WriteString(line) })
	return b.String()
}

func TestLogRing_Evicts(t *testing.T) {
	r := newLogRing(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.append(s)
	}
	first, end := r.bounds()
	if first != 2 || end != 5 {
		t.Fatalf("bounds = (%d, %d), want (2, 5)", first, end)
	}
	if got := collect(r, 0, end); got != "cde" {
		t.Errorf("each(0, 5) = %q, want %q", got, "cde")
	}
	if got := collect(r, 3, 4); got != "d" {
		t.Errorf("each(3, 4) = %q, want %q", got, "d")
	}
	if got := collect(r, 4, 99); got != "e" {
		t.Errorf("each(4, 99) = %q, want %q", got, "e")
	}
	if got := collect(r, 5, 5); got != "" {
		t.Errorf("each(5, 5) = %q, want empty", got)
	}
}

func TestLogRing_BeforeFull(t *testing.T) {
	r := newLogRing(10)
	r.append("x")
	r.append("y")
	if first, end := r.bounds(); first != 0 || end != 2 {
		t.Errorf("bounds = (%d, %d), want (0, 2)", first, end)
	}
	if got := collect(r, 1, 2); got != "y" {
		t.Errorf("each(1, 2) = %q", got)
	}
}

func TestParseQuery(t *testing.T) {
	cases := []struct {
		query string
		want  map[string]string
	}{
		{"token=abc", map[string]string{"token": "abc"}},
		{"token=a&token=b", map[string]string{"token": "b"}},
		{"k=v=w", map[string]string{"k": "v=w"}},
		{"flag&token=x", map[string]string{"": "flag", "token": "x"}},
		{"name=a%20b", map[string]string{"name": "a%20b"}},
		{"", map[string]string{"": ""}},
	}
	for _, c := range cases {
		got := parseQuery(c.query)
		if len(got) != len(c.want) {
			t.Errorf("parseQuery(%q) = %v, want %v", c.query, got, c.want)
			continue
		}
		for k, v := range c.want {
			if got[k] != v {
				t.Errorf("parseQuery(%q)[%q] = %q, want %q", c.query, k, got[k], v)
			}
		}
	}
}

func TestSplitURI(t *testing.T) {
	res, q := splitURI("/admin?token=a?b")
	if res != "/admin" || q != "token=a?b" {
		t.Errorf("splitURI = (%q, %q)", res, q)
	}
	res, q = splitURI("/")
	if res != "/" || q != "" {
		t.Errorf("splitURI(/) = (%q, %q)", res, q)
	}
}
