package progress

import (
	"context"
	"log/slog"

	"github.com/orange-finance/odeploy/internal/usecase"
)

// LogSink reports stage changes through the structured logger. It serves
// non-interactive runs where a spinner would only garble CI output.
type LogSink struct {
	log   *slog.Logger
	unit  string
	stage usecase.ExecutionStage
}

// NewLogSink creates a progress sink writing to log
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With("component", "progress")}
}

func (s *LogSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Unit == s.unit && event.Stage == s.stage {
		return
	}
	s.unit, s.stage = event.Unit, event.Stage

	attrs := []any{"stage", string(event.Stage)}
	if event.Unit != "" {
		attrs = append(attrs, "unit", event.Unit)
	}
	if event.Total > 0 {
		attrs = append(attrs, "step", event.Current, "of", event.Total)
	}
	s.log.DebugContext(ctx, event.Message, attrs...)
}

func (s *LogSink) Info(message string) {
	s.log.Info(message)
}

func (s *LogSink) Error(message string) {
	s.log.Error(message)
}

var _ usecase.ProgressSink = (*LogSink)(nil)
