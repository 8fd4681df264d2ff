package sink

import (
	"context"
	"log/slog"
	"time"
)

// WithLogging wraps next so that every write is logged with its path, size
// and duration. Successful writes log at debug level, failures at error.
func WithLogging(next OutputSink, logger *slog.Logger) OutputSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingSink{next: next, logger: logger}
}

type loggingSink struct {
	next   OutputSink
	logger *slog.Logger
}

func (s *loggingSink) WriteFile(ctx context.Context, path string, content []byte) error {
	start := time.Now()
	err := s.next.WriteFile(ctx, path, content)
	duration := time.Since(start)

	if err != nil {
		s.logger.ErrorContext(ctx, "write failed",
			slog.String("path", path),
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)
		return err
	}
	s.logger.DebugContext(ctx, "write completed",
		slog.String("path", path),
		slog.Int("bytes", len(content)),
		slog.Duration("duration", duration),
	)
	return nil
}
