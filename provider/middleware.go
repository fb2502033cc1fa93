package provider

// Middleware decorates a RequestResponse, usually delegating Execute and
// adding a concern around it.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain folds middlewares into one, the first being outermost:
// Chain(a, b, c)(p) is a(b(c(p))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		for i := range middlewares {
			p = middlewares[len(middlewares)-1-i](p)
		}
		return p
	}
}
