// Package provider routes calls over a set of interchangeable backends.
//
// A RequestResponse[I, O] takes one input and returns one output; Func
// adapts a plain function. A Registry holds factories and instances, a
// Manager initializes them and a Selector picks one per call. Balanced
// exposes a Manager as a single RequestResponse.
//
// Cross-cutting concerns are middlewares composed with Chain, outermost
// first:
//
//	p := provider.Chain(
//		provider.WithLogging[crud.Request, crud.Response](log),
//		provider.WithTracing[crud.Request, crud.Response]("crudctl"),
//		provider.WithMetrics[crud.Request, crud.Response](metrics),
//		provider.WithResilience[crud.Request, crud.Response](provider.ResilienceConfig{
//			RateLimiter: &resilience.RateLimiterConfig{Rate: 20},
//		}),
//	)(provider.Balanced("backends", mgr))
//
// Outputs exposing StatusCode() int have their status logged, recorded and
// set on the span.
package provider
