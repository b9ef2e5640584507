// Package observability provides structured logging, metrics and tracing
// for the planner.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// The logging helpers accept a nil logger and do nothing with it.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// NewLogger builds a logger writing to w. level is one of debug, info, warn
// or error; format is text or json.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// EnrichLogger adds operation context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "op-123", "trip.create")
//	enriched.Info("applying") // includes operation_id and operation_kind
func EnrichLogger(logger *slog.Logger, opID, kind string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("operation_id", opID),
		slog.String("operation_kind", kind),
	)
}

// LogOperationStart logs the start of an operation execution. The
// operation logging helpers expect a logger from EnrichLogger, which
// already carries operation_id and operation_kind.
func LogOperationStart(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("operation starting")
}

// LogOperationComplete logs a successful execution.
func LogOperationComplete(logger *slog.Logger, entityID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("operation executed",
		slog.String("entity_id", entityID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogOperationFailed logs an operation that ended FAILED. These are
// recoverable outcomes, so they log at warn.
func LogOperationFailed(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("operation failed", slog.String("error", err.Error()))
}

// LogOperationUndone logs a successful undo.
func LogOperationUndone(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("operation undone")
}

// LogDeliveryFailure logs a subscriber that failed to handle an event.
func LogDeliveryFailure(logger *slog.Logger, subscriber, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event delivery failed",
		slog.String("subscriber", subscriber),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogJournalError logs a journal write failure (non-fatal) on an
// enriched operation logger.
func LogJournalError(logger *slog.Logger, transition string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal write failed",
		slog.String("transition", transition),
		slog.String("error", err.Error()),
	)
}

// LogCompensation logs a saga step being compensated.
func LogCompensation(logger *slog.Logger, saga, step string, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("compensation failed",
			slog.String("saga", saga),
			slog.String("step", step),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("step compensated",
		slog.String("saga", saga),
		slog.String("step", step),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
