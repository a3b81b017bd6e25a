package nakama

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heroiclabs/nakama-common/runtime"
)

// runtimeHandler forwards slog records from the engine packages to the
// host-provided Nakama logger.
type runtimeHandler struct {
	logger runtime.Logger
	attrs  []slog.Attr
}

// NewRuntimeLogger wraps the Nakama runtime logger as an slog.Logger so the
// engine and client packages can be hosted unchanged.
func NewRuntimeLogger(logger runtime.Logger) *slog.Logger {
	return slog.New(&runtimeHandler{logger: logger})
}

func (h *runtimeHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *runtimeHandler) Handle(_ context.Context, rec slog.Record) error {
	var sb strings.Builder
	sb.WriteString(rec.Message)
	write := func(a slog.Attr) {
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}
	for _, a := range h.attrs {
		write(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	msg := sb.String()
	switch {
	case rec.Level >= slog.LevelError:
		h.logger.Error(msg)
	case rec.Level >= slog.LevelWarn:
		h.logger.Warn(msg)
	case rec.Level >= slog.LevelInfo:
		h.logger.Info(msg)
	default:
		h.logger.Debug(msg)
	}
	return nil
}

func (h *runtimeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &runtimeHandler{logger: h.logger, attrs: merged}
}

func (h *runtimeHandler) WithGroup(string) slog.Handler { return h }
