package stream

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/kbukum/crudkit/logger"
)

// ErrNoValue is returned by Await when a stream completes without a value.
var ErrNoValue = errors.New("stream: completed without a value")

var errSecondValue = errors.New("stream: source emitted more than one value")

// ConsumerError reports a panic raised by a downstream handler while a
// signal was being delivered. It is delivered through OnError once.
type ConsumerError struct {
	Value any
	Stack []byte
}

func newConsumerError(v any) *ConsumerError {
	return &ConsumerError{Value: v, Stack: debug.Stack()}
}

func (e *ConsumerError) Error() string {
	return fmt.Sprintf("stream: consumer panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *ConsumerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsConsumerError reports whether err is, or wraps, a ConsumerError.
func IsConsumerError(err error) bool {
	var ce *ConsumerError
	return errors.As(err, &ce)
}

var errorHandler atomic.Pointer[func(error)]

// SetErrorHandler installs the handler for errors that can no longer be
// delivered, such as a failure after a subscription already terminated or
// a failed resource release. It returns a function restoring the previous
// handler. A nil handler restores the default, which logs at error level.
func SetErrorHandler(h func(error)) (restore func()) {
	var prev *func(error)
	if h == nil {
		prev = errorHandler.Swap(nil)
	} else {
		prev = errorHandler.Swap(&h)
	}
	return func() { errorHandler.Store(prev) }
}

// Undeliverable hands err to the installed error handler.
// Context cancellation errors are dropped.
func Undeliverable(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	if h := errorHandler.Load(); h != nil {
		(*h)(err)
		return
	}
	logger.Get("stream").Error("undeliverable stream error", logger.Fields(logger.FieldError, err.Error()))
}
