package logging

import (
	"context"
	"log/slog"
)

// Handler decorates another slog.Handler with context fields and optional
// secret redaction.
type Handler struct {
	next   slog.Handler
	redact bool
}

// NewHandler wraps next.
func NewHandler(next slog.Handler, redact bool) *Handler {
	return &Handler{next: next, redact: redact}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	extra := contextAttrs(ctx)
	if !h.redact && len(extra) == 0 {
		return h.next.Handle(ctx, r)
	}

	out := slog.NewRecord(r.Time, r.Level, h.message(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.attr(a))
		return true
	})
	out.AddAttrs(extra...)
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.redact {
		redacted := make([]slog.Attr, len(attrs))
		for i, a := range attrs {
			redacted[i] = RedactAttr(a)
		}
		attrs = redacted
	}
	return &Handler{next: h.next.WithAttrs(attrs), redact: h.redact}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name), redact: h.redact}
}

func (h *Handler) attr(a slog.Attr) slog.Attr {
	if h.redact {
		return RedactAttr(a)
	}
	return a
}

func (h *Handler) message(msg string) string {
	if h.redact {
		return RedactString(msg)
	}
	return msg
}
