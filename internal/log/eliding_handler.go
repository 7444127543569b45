package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultElidedKeys name attributes that carry layout payloads or whole
// import bundles. They are user content and can be large, so log lines only
// record their size.
var DefaultElidedKeys = []string{"layout", "payload", "bundle"}

type ElidingHandler struct {
	inner slog.Handler
	keys  map[string]struct{}
}

func NewElidingHandler(inner slog.Handler, keys ...string) *ElidingHandler {
	if len(keys) == 0 {
		keys = DefaultElidedKeys
	}
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[strings.ToLower(key)] = struct{}{}
	}
	return &ElidingHandler{inner: inner, keys: set}
}

func (h *ElidingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ElidingHandler) Handle(ctx context.Context, record slog.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fallback := slog.NewRecord(record.Time, slog.LevelError, "eliding handler panic recovered", record.PC)
			fallback.AddAttrs(slog.String("panic", fmt.Sprint(r)))
			err = h.inner.Handle(ctx, fallback)
		}
	}()

	elided := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		elided.AddAttrs(h.elideAttr(attr))
		return true
	})
	return h.inner.Handle(ctx, elided)
}

func (h *ElidingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	elided := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		elided = append(elided, h.elideAttr(attr))
	}
	return &ElidingHandler{inner: h.inner.WithAttrs(elided), keys: h.keys}
}

func (h *ElidingHandler) WithGroup(name string) slog.Handler {
	return &ElidingHandler{inner: h.inner.WithGroup(name), keys: h.keys}
}

func (h *ElidingHandler) elideAttr(attr slog.Attr) slog.Attr {
	if _, ok := h.keys[strings.ToLower(attr.Key)]; ok {
		return slog.String(attr.Key, summarize(attr.Value))
	}

	if attr.Value.Kind() == slog.KindGroup {
		group := attr.Value.Group()
		elided := make([]slog.Attr, 0, len(group))
		for _, nested := range group {
			elided = append(elided, h.elideAttr(nested))
		}
		return slog.Attr{
			Key:   attr.Key,
			Value: slog.GroupValue(elided...),
		}
	}

	return attr
}

func summarize(value slog.Value) string {
	switch value.Kind() {
	case slog.KindString:
		return fmt.Sprintf("[ELIDED %d bytes]", len(value.String()))
	case slog.KindAny:
		if b, ok := value.Any().([]byte); ok {
			return fmt.Sprintf("[ELIDED %d bytes]", len(b))
		}
	}
	return "[ELIDED]"
}
