// Package errors defines AppError, the classified error returned by crudkit
// when a failure has a meaning beyond its text: a response status treated as
// a failure, a resilience policy rejection, or invalid configuration. The
// Retryable flag follows the code unless a constructor says otherwise.
package errors
