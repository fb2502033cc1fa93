package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrBulkheadFull rejects a call when no slot is free and MaxWait is zero.
	ErrBulkheadFull = errors.New("bulkhead is full")
	// ErrBulkheadTimeout rejects a call that waited MaxWait for a slot.
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	Name          string `yaml:"name" mapstructure:"name"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"gte=0"`
	// MaxWait is how long a call waits for a slot. Zero rejects at once.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" validate:"gte=0"`

	OnReject func(name string) `yaml:"-" mapstructure:"-"`
}

// Bulkhead caps the number of calls running at once.
type Bulkhead struct {
	config BulkheadConfig
	sem    *semaphore.Weighted
	inUse  atomic.Int64
}

// NewBulkhead returns a bulkhead with MaxConcurrent slots, 10 if unset.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{config: config, sem: semaphore.NewWeighted(int64(config.MaxConcurrent))}
}

// Execute runs fn in a slot on the calling goroutine.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()
	return fn()
}

// Go takes a slot on the calling goroutine, then runs fn on a new one and
// frees the slot when fn returns. fn does not run when no slot is granted.
func (b *Bulkhead) Go(ctx context.Context, fn func()) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	go func() {
		defer b.release()
		fn()
	}()
	return nil
}

// InUse is the number of occupied slots.
func (b *Bulkhead) InUse() int {
	return int(b.inUse.Load())
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if err := b.wait(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	b.inUse.Add(1)
	return nil
}

func (b *Bulkhead) wait(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	wctx, cancel := context.WithTimeout(ctx, b.config.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBulkheadTimeout
	}
	return nil
}

func (b *Bulkhead) release() {
	b.inUse.Add(-1)
	b.sem.Release(1)
}
