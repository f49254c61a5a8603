package runner

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"github.com/torosent/hailstone/internal/collatz"
)

// loggingIterator wraps an Iterator with slog output.
type loggingIterator struct {
	inner  Iterator
	logger *slog.Logger
}

// WithLogging wraps an Iterator to log run boundaries at debug level and
// failures at error level.
func WithLogging(it Iterator, logger *slog.Logger) Iterator {
	if logger == nil {
		return it
	}
	return &loggingIterator{inner: it, logger: logger}
}

func (l *loggingIterator) Run(ctx context.Context, start *big.Int) (collatz.Result, error) {
	attrs := []any{slog.Int("start_bits", start.BitLen())}
	if id, ok := RunIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("run_id", id.String()))
	}
	log := l.logger.With(attrs...)
	log.DebugContext(ctx, "run started")

	res, err := l.inner.Run(ctx, start)
	switch {
	case err == nil:
		log.DebugContext(ctx, "run finished",
			slog.Uint64("steps", res.Steps),
			slog.String("outcome", res.Outcome.String()),
			slog.Duration("iteration", res.Elapsed))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.InfoContext(ctx, "run interrupted", slog.Uint64("steps", res.Steps))
	default:
		log.ErrorContext(ctx, "run failed", slog.Uint64("steps", res.Steps), slog.Any("error", err))
	}
	return res, err
}
