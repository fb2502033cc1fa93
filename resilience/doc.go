// Package resilience holds the call policies shared by transports and
// providers: a circuit breaker, retries with exponential backoff, a
// bulkhead and a token bucket rate limiter.
//
// Time-dependent policies take an optional clock.Clock so tests can drive
// them with clock.NewMock.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("assets"))
//	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100, Burst: 20})
//
//	if err := rl.Wait(ctx); err != nil {
//		return err
//	}
//	err := cb.Execute(func() error { return send(ctx, req) })
package resilience
