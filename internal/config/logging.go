package config

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// NewLogger returns a tint logger writing to w at level.
func NewLogger(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
	}))
}
