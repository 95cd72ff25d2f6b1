package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Services and handlers log structured
// key-value pairs; request-scoped attributes are added by middleware.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
