package logger

import (
	"io"
	"log/slog"
	"os"
)

var Logger *slog.Logger

// Init builds the process logger and installs it as the slog default.
func Init(debug bool) *slog.Logger {
	Logger = New(os.Stdout, debug)
	slog.SetDefault(Logger)
	return Logger
}

func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return New(io.Discard, false)
}

// Component tags l with the component name, falling back to the default logger.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", name)
}
