package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/casoon/auditmysite-studio-sub002/internal/events"
	"github.com/casoon/auditmysite-studio-sub002/internal/store"
)

// HistorySink persists terminal page outcomes to the run-history store.
// Non-terminal events pass through untouched.
type HistorySink struct {
	history store.RunHistory
	logger  *zap.Logger
}

// NewHistorySink wires the store to the sink interface.
func NewHistorySink(history store.RunHistory, logger *zap.Logger) *HistorySink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistorySink{history: history, logger: logger}
}

// Consume writes one page row per terminal event.
func (s *HistorySink) Consume(ctx context.Context, evt events.Event) error {
	var outcome string
	switch evt.Kind {
	case events.KindPageFinished:
		outcome = "finished"
	case events.KindPageError:
		outcome = "error"
	case events.KindPageSkipped:
		outcome = "skipped"
	default:
		return nil
	}
	return s.history.RecordPage(ctx, store.PageRecord{
		RunID:      evt.RunID,
		URL:        evt.URL,
		Outcome:    outcome,
		StatusCode: evt.Status,
		DurationMs: evt.DurMs,
		Message:    evt.Message,
		FinishedAt: evt.TS,
	})
}

// Close implements the Sink interface; the store's lifetime belongs to its
// creator.
func (s *HistorySink) Close(context.Context) error {
	return nil
}
