package crud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/resilience"
	"github.com/kbukum/crudkit/stream"
)

const (
	minStatus = 100
	maxStatus = 599
)

// FailureSet is an immutable set of HTTP status codes in 100-599.
// The zero value is the empty set.
type FailureSet struct {
	bits [(maxStatus + 64) / 64]uint64
}

var (
	// ServerErrors contains every 5xx status.
	ServerErrors = mustRange(500, 599)
	// NonSuccess contains every status outside 2xx.
	NonSuccess = mustRange(100, 199).Union(mustRange(300, 599))
)

// NewFailureSet returns the set of the given codes.
func NewFailureSet(codes ...int) (FailureSet, error) {
	var s FailureSet
	for _, code := range codes {
		if err := checkStatus(code); err != nil {
			return FailureSet{}, err
		}
		s.add(code)
	}
	return s, nil
}

// StatusRange returns the set of codes from lo to hi inclusive.
func StatusRange(lo, hi int) (FailureSet, error) {
	if err := checkStatus(lo); err != nil {
		return FailureSet{}, err
	}
	if err := checkStatus(hi); err != nil {
		return FailureSet{}, err
	}
	if lo > hi {
		return FailureSet{}, goerrors.InvalidInput("status range", "lower bound above upper bound").
			WithDetail("range", fmt.Sprintf("%d-%d", lo, hi))
	}
	var s FailureSet
	for code := lo; code <= hi; code++ {
		s.add(code)
	}
	return s, nil
}

func mustRange(lo, hi int) FailureSet {
	s, err := StatusRange(lo, hi)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseFailureSet parses a failure set from its textual form: "server",
// "non-success", "none", or a comma separated list of codes and ranges
// such as "404,409,500-599".
func ParseFailureSet(text string) (FailureSet, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "none":
		return FailureSet{}, nil
	case "server":
		return ServerErrors, nil
	case "non-success":
		return NonSuccess, nil
	}

	var s FailureSet
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			hi = lo
		}
		l, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return FailureSet{}, goerrors.InvalidFormat("failure set", "status code or range").WithDetail("value", part)
		}
		h, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return FailureSet{}, goerrors.InvalidFormat("failure set", "status code or range").WithDetail("value", part)
		}
		r, err := StatusRange(l, h)
		if err != nil {
			return FailureSet{}, err
		}
		s = s.Union(r)
	}
	return s, nil
}

func checkStatus(code int) error {
	if code < minStatus || code > maxStatus {
		return goerrors.InvalidInput("status code", "must be between 100 and 599").WithDetail("code", code)
	}
	return nil
}

func (s *FailureSet) add(code int) {
	s.bits[code/64] |= 1 << (code % 64)
}

// Contains reports whether code is in the set.
func (s FailureSet) Contains(code int) bool {
	if code < minStatus || code > maxStatus {
		return false
	}
	return s.bits[code/64]&(1<<(code%64)) != 0
}

// Union returns the codes in either set.
func (s FailureSet) Union(other FailureSet) FailureSet {
	for i := range s.bits {
		s.bits[i] |= other.bits[i]
	}
	return s
}

// IsEmpty reports whether the set has no codes.
func (s FailureSet) IsEmpty() bool {
	return s == FailureSet{}
}

// Codes returns the codes in ascending order.
func (s FailureSet) Codes() []int {
	var codes []int
	for code := minStatus; code <= maxStatus; code++ {
		if s.Contains(code) {
			codes = append(codes, code)
		}
	}
	return codes
}

// String renders the set in the form accepted by ParseFailureSet.
func (s FailureSet) String() string {
	codes := s.Codes()
	if len(codes) == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < len(codes); {
		j := i
		for j+1 < len(codes) && codes[j+1] == codes[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, strconv.Itoa(codes[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", codes[i], codes[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

// StatusError is delivered by FailedResponses in place of a response whose
// status is in the failure set. Response remains open while the error is
// being delivered and is closed right after.
type StatusError struct {
	Status   int
	Response Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("crud: unexpected response status %d %s", e.Status, http.StatusText(e.Status))
}

// Unwrap exposes the application error for the status, so callers can
// match on error codes with errors.As.
func (e *StatusError) Unwrap() error {
	return goerrors.FromStatus(e.Status)
}

// Temporary reports whether repeating the request may succeed.
func (e *StatusError) Temporary() bool {
	return goerrors.FromStatus(e.Status).Retryable
}

// FailedResponses returns an operator that turns a response whose status is
// in set into a *StatusError. Signals arriving from upstream after that are
// not forwarded. It must be lifted after CloseResponses, which every
// Resource stream already carries.
func FailedResponses(set FailureSet) stream.Operator[Response, Response] {
	return func(_ context.Context, down stream.Observer[Response]) stream.Observer[Response] {
		return &reclassifier{set: set, down: down}
	}
}

type reclassifier struct {
	set    FailureSet
	down   stream.Observer[Response]
	failed atomic.Bool
}

func (r *reclassifier) OnNext(resp Response) {
	if r.failed.Load() {
		return
	}
	if status := resp.StatusCode(); r.set.Contains(status) {
		r.failed.Store(true)
		r.down.OnError(&StatusError{Status: status, Response: resp})
		return
	}
	r.down.OnNext(resp)
}

func (r *reclassifier) OnError(err error) {
	if r.failed.Load() {
		stream.Undeliverable(err)
		return
	}
	r.down.OnError(err)
}

func (r *reclassifier) OnCompleted() {
	if r.failed.Load() {
		return
	}
	r.down.OnCompleted()
}

// IsRetryable reports whether a failed stream is worth subscribing again:
// a *StatusError with a transient status, or any error whose Temporary
// method returns true, or a retryable AppError. Consumer panics and
// cancellation are never retryable.
func IsRetryable(err error) bool {
	if err == nil || stream.IsConsumerError(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	if appErr, ok := goerrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}

// DefaultRetryConfig returns resilience defaults with IsRetryable as the
// retry predicate.
func DefaultRetryConfig() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return cfg
}
