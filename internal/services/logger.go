package services

import (
	"log/slog"

	"kalpem/internal/infrastructure"
)

// serviceLogger tags a logger with the service name, falling back to the
// process logger when none is injected.
func serviceLogger(logger *slog.Logger, service string) *slog.Logger {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return logger.With(slog.String("service", service))
}
