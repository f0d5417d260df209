package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Formats accepted by Setup.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup builds the process logger. Unknown levels fall back to info,
// unknown formats to text. stdio transports pass stderr as w so log
// lines never interleave with protocol frames.
func Setup(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
