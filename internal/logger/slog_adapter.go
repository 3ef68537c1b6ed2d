package logger

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// NewSlogHandler returns a slog.Handler that forwards records to l.
// If l is nil, it returns nil.
func NewSlogHandler(l *Logger) slog.Handler {
	if l == nil {
		return nil
	}
	return &slogHandler{log: l}
}

// Slog wraps l in a *slog.Logger for libraries that expect one.
func Slog(l *Logger) *slog.Logger {
	return slog.New(NewSlogHandler(l))
}

// StdLogger returns a *log.Logger that writes each line through l at the
// given level, for http.Server.ErrorLog and similar hooks.
func StdLogger(l *Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(NewSlogHandler(l), level)
}

type slogHandler struct {
	log    *Logger
	group  string
	preset string
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return toLevel(level) >= h.log.GetLevel()
}

func (h *slogHandler) Handle(_ context.Context, record slog.Record) error {
	var sb strings.Builder
	sb.WriteString(record.Message)
	if h.preset != "" {
		sb.WriteByte(' ')
		sb.WriteString(h.preset)
	}
	record.Attrs(func(attr slog.Attr) bool {
		appendAttr(&sb, h.group, attr)
		return true
	})

	msg := strings.TrimSpace(sb.String())
	switch toLevel(record.Level) {
	case LevelError:
		h.log.Error("%s", msg)
	case LevelWarn:
		h.log.Warn("%s", msg)
	case LevelInfo:
		h.log.Info("%s", msg)
	default:
		h.log.Debug("%s", msg)
	}
	return nil
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	sb.WriteString(h.preset)
	for _, attr := range attrs {
		appendAttr(&sb, h.group, attr)
	}
	return &slogHandler{log: h.log, group: h.group, preset: strings.TrimSpace(sb.String())}
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &slogHandler{log: h.log, group: joinKey(h.group, name), preset: h.preset}
}

func toLevel(level slog.Level) Level {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarn
	case level >= slog.LevelInfo:
		return LevelInfo
	default:
		return LevelDebug
	}
}

func appendAttr(sb *strings.Builder, group string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		nested := joinKey(group, attr.Key)
		for _, inner := range attr.Value.Group() {
			appendAttr(sb, nested, inner)
		}
		return
	}

	key := attr.Key
	if key == "" {
		key = "attr"
	}
	fmt.Fprintf(sb, " %s=%v", joinKey(group, key), attr.Value)
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	if key == "" {
		return group
	}
	return group + "." + key
}
