package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type rateCounter interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimitDecision is the outcome of a single Allow call.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// RateLimitService applies a fixed-window limit per key.
type RateLimitService struct {
	counter rateCounter
	limit   int
	window  time.Duration
	metrics *MetricsService
	logger  *zap.Logger
}

// NewRateLimitService builds a limiter allowing limit hits per window. limit <= 0 disables it.
func NewRateLimitService(counter rateCounter, limit int, window time.Duration, metrics *MetricsService, logger *zap.Logger) *RateLimitService {
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimitService{counter: counter, limit: limit, window: window, metrics: metrics, logger: logger}
}

// Allow counts a hit for scope and key. Counter failures let the request through.
func (s *RateLimitService) Allow(ctx context.Context, scope, key string) RateLimitDecision {
	if s == nil || s.counter == nil || s.limit <= 0 {
		return RateLimitDecision{Allowed: true}
	}
	windowStart := time.Now().UTC().Truncate(s.window)
	resetIn := time.Until(windowStart.Add(s.window))

	count, err := s.counter.Increment(ctx, scope+":"+key+":"+windowStart.Format("200601021504"), s.window)
	if err != nil {
		s.logger.Warn("rate limiter unavailable, allowing request", zap.String("scope", scope), zap.Error(err))
		return RateLimitDecision{Allowed: true, Limit: s.limit, Remaining: s.limit, ResetIn: resetIn}
	}

	remaining := s.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	decision := RateLimitDecision{Allowed: int(count) <= s.limit, Limit: s.limit, Remaining: remaining, ResetIn: resetIn}
	if !decision.Allowed {
		s.metrics.RecordRateLimited(scope)
	}
	return decision
}
