package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a call would wait longer than allowed
// for a token.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Rate is the sustained number of calls per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gt=0"`
	// Burst is the bucket size. Zero means one second worth of calls.
	Burst int `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	// MaxWait bounds how long Wait blocks for a token. Zero waits as long
	// as the context allows.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`

	OnLimit func(name string) `yaml:"-" mapstructure:"-"`
	Clock   clock.Clock       `yaml:"-" mapstructure:"-"`
}

// DefaultRateLimiterConfig allows 10 calls per second with bursts of 20.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{Name: name, Rate: 10, Burst: 20}
}

// RateLimiter paces calls with a token bucket.
type RateLimiter struct {
	config  RateLimiterConfig
	clock   clock.Clock
	limiter *rate.Limiter
}

// NewRateLimiter returns a limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = max(1, int(config.Rate))
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &RateLimiter{
		config:  config,
		clock:   config.Clock,
		limiter: rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
	}
}

// Allow takes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	if rl.limiter.AllowN(rl.clock.Now(), 1) {
		return true
	}
	rl.limited()
	return false
}

// Wait blocks until a token is available. It fails with ErrRateLimited when
// the wait would exceed MaxWait, and with the context error when ctx ends
// first. A failed wait gives its token back.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	now := rl.clock.Now()
	r := rl.limiter.ReserveN(now, 1)
	if !r.OK() {
		rl.limited()
		return ErrRateLimited
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return nil
	}
	if rl.config.MaxWait > 0 && delay > rl.config.MaxWait {
		r.CancelAt(now)
		rl.limited()
		return ErrRateLimited
	}
	if err := Sleep(ctx, rl.clock, delay); err != nil {
		r.CancelAt(rl.clock.Now())
		return err
	}
	return nil
}

// Tokens is the number of tokens currently in the bucket.
func (rl *RateLimiter) Tokens() float64 {
	return rl.limiter.TokensAt(rl.clock.Now())
}

func (rl *RateLimiter) limited() {
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name)
	}
}
