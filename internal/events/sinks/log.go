// Package sinks provides Sink implementations for the event hub.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/events"
)

// LogSink emits one structured progress line per lifecycle event. It is the
// default consumer in non-GUI mode.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(_ context.Context, evt events.Event) error {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID),
		zap.String("kind", string(evt.Kind)),
		zap.String("url", evt.URL),
	}
	if evt.Audit != "" {
		fields = append(fields, zap.String("audit", evt.Audit))
	}
	if evt.Attempt > 0 {
		fields = append(fields, zap.Int("attempt", evt.Attempt), zap.Int64("delay_ms", evt.DelayMs))
	}
	if evt.FinalURL != "" {
		fields = append(fields, zap.String("final_url", evt.FinalURL), zap.String("redirect_type", evt.RedirectType))
	}
	if evt.Reason != "" {
		fields = append(fields, zap.String("reason", evt.Reason))
	}
	if evt.Message != "" {
		fields = append(fields, zap.String("error", evt.Message))
	}
	if evt.DurMs > 0 {
		fields = append(fields, zap.Int64("dur_ms", evt.DurMs))
	}
	switch evt.Kind {
	case events.KindPageError:
		s.logger.Error("audit progress", fields...)
	case events.KindPageRetry, events.KindPageSkipped:
		s.logger.Warn("audit progress", fields...)
	default:
		s.logger.Info("audit progress", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
