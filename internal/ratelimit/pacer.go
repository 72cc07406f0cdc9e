// Package ratelimit paces outbound requests so each model stays under its
// provider-enforced requests-per-minute ceiling.
package ratelimit

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/acses/curator/internal/common"
)

// Pacer enforces a minimum interval between request starts per model:
// (60 / rpm) * safety_factor. It is designed for the engine's strictly
// sequential scheduling, so its per-model state needs no locking. The clock
// and sleep functions are injectable for deterministic tests.
type Pacer struct {
	rate      *common.RateConfig
	logger    arbor.ILogger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	last      map[string]time.Time
	notBefore map[string]time.Time
}

// NewPacer creates a pacer from the rate configuration.
func NewPacer(rate *common.RateConfig, logger arbor.ILogger) *Pacer {
	return &Pacer{
		rate:      rate,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
		last:      make(map[string]time.Time),
		notBefore: make(map[string]time.Time),
	}
}

// WithClock overrides the time source and sleep function. Test hook.
func (p *Pacer) WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	p.now = now
	p.sleep = sleep
	return p
}

// Interval returns the minimum spacing between request starts for a model.
func (p *Pacer) Interval(model string) time.Duration {
	return p.rate.MinInterval(model)
}

// Wait blocks until the model is allowed to start its next request, then
// records the new request start. The first call for a model proceeds
// immediately. Wait returns early with ctx.Err() if the context is
// cancelled during the sleep; in that case no start is recorded.
func (p *Pacer) Wait(ctx context.Context, model string) error {
	var earliest time.Time
	if lastStart, ok := p.last[model]; ok {
		earliest = lastStart.Add(p.Interval(model))
	}
	// A retry-after deadline is absolute: it is measured from the moment
	// the provider suggested it, not from the previous request start, so
	// time already spent on the failed call never shortens it.
	if deadline, ok := p.notBefore[model]; ok && deadline.After(earliest) {
		earliest = deadline
	}

	if deficit := earliest.Sub(p.now()); deficit > 0 {
		if p.logger != nil {
			p.logger.Debug().
				Str("model", model).
				Dur("wait", deficit).
				Msg("Rate limit pacing")
		}
		if err := p.sleep(ctx, deficit); err != nil {
			return err
		}
	}

	p.last[model] = p.now()
	delete(p.notBefore, model)
	return nil
}

// Penalize defers the model's next request start to at least retryAfter
// from now, overriding the computed interval when later. Used when the
// provider signals quota exhaustion with a suggested retry delay.
func (p *Pacer) Penalize(model string, retryAfter time.Duration) {
	if retryAfter <= 0 {
		return
	}
	deadline := p.now().Add(retryAfter)
	if current, ok := p.notBefore[model]; !ok || deadline.After(current) {
		p.notBefore[model] = deadline
	}
	if p.logger != nil {
		p.logger.Warn().
			Str("model", model).
			Dur("retry_after", retryAfter).
			Msg("Applying server-suggested retry delay")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
