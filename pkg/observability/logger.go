package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrRunID   = "run_id"
)

// Identity is the set of attributes attached to every record a
// TracingHandler emits. Empty Env and RunID are omitted.
type Identity struct {
	Service string
	Env     string
	Mode    AppMode
	RunID   string
}

func (id Identity) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String(attrService, id.Service),
		slog.String(attrMode, string(id.Mode)),
	}

	if id.Env != "" {
		attrs = append(attrs, slog.String(attrEnv, id.Env))
	}

	if id.RunID != "" {
		attrs = append(attrs, slog.String(attrRunID, id.RunID))
	}

	return attrs
}

// TracingHandler is an [slog.Handler] that adds the active span's trace_id
// and span_id to each record. Identity attributes are attached to the inner
// handler up front so later groups do not nest them.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with trace context injection and the given identity.
func NewTracingHandler(inner slog.Handler, id Identity) *TracingHandler {
	return &TracingHandler{inner: inner.WithAttrs(id.attrs())}
}

// Enabled delegates to the inner handler.
func (h *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (h *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := h.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a TracingHandler whose inner handler carries attrs.
func (h *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a TracingHandler whose inner handler opens group name.
func (h *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: h.inner.WithGroup(name)}
}
