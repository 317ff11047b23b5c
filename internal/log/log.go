// Package log sets up the default slog logger and carries loggers through contexts.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxKey string

const loggerCtxKey ctxKey = "logger"

// Debug enables debug logging and the additional debug artifacts
// (e.g. page screenshots after every failed step).
var Debug bool

// Level returns the log level derived from the Debug flag.
func Level() slog.Level {
	if Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func InitializeDefaultLogger() {
	slog.SetDefault(NewLogger(os.Stdout))
}

// NewLogger returns a text logger writing to w at the current Level.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: Level()}))
}

func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
