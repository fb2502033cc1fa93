// Package httpclient is the HTTP transport behind crud resources. It adds
// authentication, TLS, connection-level retries, a circuit breaker and rate
// limiting to net/http, and returns every response with its body unread so
// the crud layer owns its release.
//
// # Basic Usage
//
//	adapter, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.example.com",
//	    Timeout: 30 * time.Second,
//	    Auth:    httpclient.BearerAuth("my-token"),
//	})
//
//	p := crud.NewProvider(adapter)
//	users := p.Get("/users/123")
//
// # With Resilience
//
//	adapter, err := httpclient.New(httpclient.Config{
//	    BaseURL:        "https://api.example.com",
//	    TransportRetry: &httpclient.TransportRetryConfig{MaxRetries: 3},
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("my-api"),
//	})
//
// Transport retries only cover exchanges that produced no response. Retrying
// on status codes belongs to the subscriber (see crud.DefaultRetryConfig).
package httpclient
