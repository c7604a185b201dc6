package search

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottleConfig limits how fast payloads reach the backend.
type ThrottleConfig struct {
	RPS   float64 `env:"SEARCH_INGEST_RPS" envDefault:"0"` // RPS of zero disables throttling.
	Burst int     `env:"SEARCH_INGEST_BURST" envDefault:"10"`
}

// ThrottledSink delays Ingest calls to stay within a rate limit.
type ThrottledSink struct {
	next    Sink
	limiter *rate.Limiter
}

// Throttled wraps next with a limiter. It returns next unchanged when
// cfg.RPS is not positive.
func Throttled(next Sink, cfg ThrottleConfig) Sink {
	if cfg.RPS <= 0 {
		return next
	}
	return &ThrottledSink{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), max(cfg.Burst, 1)),
	}
}

func (s *ThrottledSink) Ingest(ctx context.Context, p Payload) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.Ingest(ctx, p)
}
