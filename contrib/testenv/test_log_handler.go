package testenv

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// TestLogHandler is a slog.Handler that prints message index (starting from 0)
// level, and message content, without the timestamp.
// This allows test log output to be deterministic.
type TestLogHandler struct {
	state *handlerState
	attrs []slog.Attr
	group string

	ignoreDebug bool
	ignoreAttrs []string
}

// handlerState is shared by a handler and everything derived from it.
type handlerState struct {
	mu    sync.Mutex
	index int
}

// TestLogHandlerOption configures a TestLogHandler.
type TestLogHandlerOption func(*TestLogHandler)

// WithIgnoreDebug drops DEBUG records.
func WithIgnoreDebug() TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.ignoreDebug = true
	}
}

// WithIgnoreAttrs omits attributes whose values vary between runs,
// such as request ids or network errors.
func WithIgnoreAttrs(keys ...string) TestLogHandlerOption {
	return func(h *TestLogHandler) {
		h.ignoreAttrs = append(h.ignoreAttrs, keys...)
	}
}

func NewTestLogHandler(opts ...TestLogHandlerOption) *TestLogHandler {
	h := &TestLogHandler{state: &handlerState{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TestLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level > slog.LevelDebug || !h.ignoreDebug
}

//nolint:gocritic
func (h *TestLogHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.Enabled(context.Background(), r.Level) {
		return nil
	}

	parts := make([]string, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		parts = h.appendAttr(parts, "", a)
	}
	prefix := ""
	if h.group != "" {
		prefix = h.group + "."
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = h.appendAttr(parts, prefix, a)
		return true
	})

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	if len(parts) > 0 {
		fmt.Printf("[%d] %s: %s %s\n", h.state.index, r.Level, r.Message, strings.Join(parts, ", "))
	} else {
		fmt.Printf("[%d] %s: %s\n", h.state.index, r.Level, r.Message)
	}
	h.state.index++
	return nil
}

func (h *TestLogHandler) appendAttr(parts []string, prefix string, a slog.Attr) []string {
	if slices.Contains(h.ignoreAttrs, a.Key) {
		return parts
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			parts = h.appendAttr(parts, prefix+a.Key+".", ga)
		}
		return parts
	}
	return append(parts, fmt.Sprintf("%s%s=%v", prefix, a.Key, a.Value))
}

func (h *TestLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := *h
	if h.group != "" {
		prefixed := make([]slog.Attr, 0, len(attrs))
		for _, a := range attrs {
			prefixed = append(prefixed, slog.Attr{Key: h.group + "." + a.Key, Value: a.Value})
		}
		attrs = prefixed
	}
	out.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return &out
}

func (h *TestLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	out := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	out.group = name
	return &out
}
