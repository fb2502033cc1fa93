// Package stream implements cold, single-value, push-based asynchronous
// streams.
//
// A Single does nothing until Subscribe is called; every subscription runs
// the source again. A subscription delivers at most one value, then exactly
// one terminal signal (OnCompleted or OnError), unless it is canceled first,
// in which case the observer receives nothing further.
//
// FromCallback bridges a callback-style asynchronous call into a Single,
// starting the call on an Executor and arbitrating between completion and
// cancellation. Operators (Lift, Map, Retry) compose per subscription.
//
//	s := stream.FromCallback(stream.Goroutines(), func(ctx context.Context, done func(int, error)) error {
//	    go func() { done(compute(ctx)) }()
//	    return nil
//	})
//	v, err := stream.Await(ctx, s.Retry(resilience.DefaultRetryConfig()))
package stream
