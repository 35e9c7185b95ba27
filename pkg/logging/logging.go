package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON slog.Logger writing to w, tagged with the service name.
func Setup(w io.Writer, service string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With(slog.String("service", service))
}

// SetupDefault installs the JSON logger as the process-wide default.
func SetupDefault(service string) *slog.Logger {
	logger := Setup(os.Stdout, service)
	slog.SetDefault(logger)
	return logger
}
