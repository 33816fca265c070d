package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger at the given level (slog level numbering:
// 0 is info, -4 is debug).
func New(level int) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.Level(level),
	}))
}
