package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/imgrab/internal/config"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openLogger 构造进程级 logger：stderr 总是输出；配置了 log_file 时额外追加写入文件。
// interactive=true 时 stderr 只输出 warn 及以上（进度由 progressUI 负责），文件不受影响。
// 返回的 close 必须在进程结束前调用。
func openLogger(eff config.EffectiveConfig, stderr io.Writer, interactive bool, runID string) (*slog.Logger, func(), error) {
	level := parseLevel(eff.LogLevel)

	stderrLevel := level
	if interactive && stderrLevel < slog.LevelWarn {
		stderrLevel = slog.LevelWarn
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: stderrLevel}),
	}

	closeFn := func() {}
	if eff.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(eff.LogFile), 0o755); err != nil {
			return nil, closeFn, err
		}
		f, err := os.OpenFile(eff.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, closeFn, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
		closeFn = func() { _ = f.Close() }
	}

	var h slog.Handler = teeHandler(handlers)
	if len(handlers) == 1 {
		h = handlers[0]
	}
	l := slog.New(h)
	if runID != "" {
		l = l.With("run_id", runID)
	}
	return l, closeFn, nil
}

// teeHandler 把一条记录分发给多个 sink，各 sink 独立判断级别。
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
