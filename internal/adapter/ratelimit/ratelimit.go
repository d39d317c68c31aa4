// Package ratelimit wraps a geocoder so that calls are spaced out and
// transient failures are retried, as public geocoding services require.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

// Options controls throttling and retries.
type Options struct {
	// MinInterval is the minimum time between the start of two provider calls,
	// retries included.
	MinInterval time.Duration
	// MaxRetries is the number of extra attempts after a retryable failure.
	MaxRetries int
	// ErrorWait is the pause before each retry.
	ErrorWait time.Duration
}

// Geocoder decorates a domain.Geocoder with throttling and retries.
type Geocoder struct {
	inner  domain.Geocoder
	opts   Options
	clock  clockwork.Clock
	logger *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// New wraps inner. A nil clock uses real time.
func New(inner domain.Geocoder, opts Options, clock clockwork.Clock, logger *slog.Logger) *Geocoder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Geocoder{
		inner:  inner,
		opts:   opts,
		clock:  clock,
		logger: logger,
	}
}

// Geocode forwards query to the wrapped geocoder. Retryable errors (see
// domain.IsRetryable) are retried up to MaxRetries times; the last error is
// returned when every attempt fails.
func (g *Geocoder) Geocode(ctx context.Context, query string) (*domain.GeocodingResult, error) {
	var result *domain.GeocodingResult
	op := func() error {
		if err := g.wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		r, err := g.inner.Geocode(ctx, query)
		if err != nil {
			if ctx.Err() != nil || !domain.IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = r
		return nil
	}

	retries := g.opts.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.opts.ErrorWait), uint64(retries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		g.logger.Warn("geocoding attempt failed, retrying", "query", query, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotifyWithTimer(op, policy, notify, &clockTimer{clock: g.clock}); err != nil {
		return nil, err
	}
	return result, nil
}

// wait blocks until MinInterval has passed since the previous call started.
func (g *Geocoder) wait(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() {
		if d := g.opts.MinInterval - g.clock.Since(g.last); d > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-g.clock.After(d):
			}
		}
	}
	g.last = g.clock.Now()
	return nil
}

// clockTimer adapts a clockwork clock to backoff.Timer.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
	ch    <-chan time.Time
}

func (t *clockTimer) Start(d time.Duration) {
	if d <= 0 {
		ch := make(chan time.Time, 1)
		ch <- t.clock.Now()
		t.ch = ch
		return
	}
	t.timer = t.clock.NewTimer(d)
	t.ch = t.timer.Chan()
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.ch
}
