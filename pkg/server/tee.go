package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LogHandler wraps an slog.Handler and copies records at or above a level
// into the operator log, so operators see the host's warnings alongside
// server events.
type LogHandler struct {
	inner slog.Handler
	srv   *Server
	level slog.Leveler
	attrs string
	group string
}

// NewLogHandler returns a handler that writes to inner and tees records at
// level or above into srv's operator log.
func NewLogHandler(inner slog.Handler, srv *Server, level slog.Leveler) *LogHandler {
	return &LogHandler{inner: inner, srv: srv, level: level}
}

// Enabled delegates to the inner handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level.Level()
}

// Handle records the line and passes r on to the inner handler.
func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s%s", r.Level, r.Message, h.attrs)
		r.Attrs(func(a slog.Attr) bool {
			writeAttr(&b, h.prefix(), a)
			return true
		})
		h.srv.record(b.String())
	}
	if !h.inner.Enabled(ctx, r.Level) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *LogHandler) prefix() string {
	if h.group == "" {
		return ""
	}
	return h.group + "."
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	fmt.Fprintf(b, " %s%s=%v", prefix, a.Key, a.Value.Any())
}

// WithAttrs returns a new handler with the given attributes.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		writeAttr(&b, h.prefix(), a)
	}
	return &LogHandler{
		inner: h.inner.WithAttrs(attrs),
		srv:   h.srv,
		level: h.level,
		attrs: b.String(),
		group: h.group,
	}
}

// WithGroup returns a new handler with the given group.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &LogHandler{
		inner: h.inner.WithGroup(name),
		srv:   h.srv,
		level: h.level,
		attrs: h.attrs,
		group: group,
	}
}
