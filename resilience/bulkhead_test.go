package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// occupy fills n slots of b until the returned func is called.
func occupy(t *testing.T, b *Bulkhead, n int) func() {
	t.Helper()
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		if err := b.Go(context.Background(), func() {
			defer wg.Done()
			<-release
		}); err != nil {
			t.Fatalf("slot %d: %v", i, err)
		}
	}
	return func() {
		close(release)
		wg.Wait()
	}
}

func TestBulkhead_Rejections(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		maxWait time.Duration
		ctx     context.Context
		want    error
	}{
		{name: "no wait", want: ErrBulkheadFull, ctx: context.Background()},
		{name: "wait expires", maxWait: 10 * time.Millisecond, ctx: context.Background(), want: ErrBulkheadTimeout},
		{name: "caller canceled", maxWait: time.Second, ctx: canceled, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rejected := 0
			b := NewBulkhead(BulkheadConfig{
				Name:          "assets",
				MaxConcurrent: 1,
				MaxWait:       tt.maxWait,
				OnReject:      func(string) { rejected++ },
			})
			done := occupy(t, b, 1)
			defer done()

			err := b.Execute(tt.ctx, func() error {
				t.Error("fn ran without a slot")
				return nil
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if rejected != 1 {
				t.Errorf("expected OnReject once, got %d", rejected)
			}
		})
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	done := occupy(t, b, 1)
	time.AfterFunc(10*time.Millisecond, done)

	ran := false
	if err := b.Execute(context.Background(), func() error { ran = true; return nil }); err != nil {
		t.Fatalf("expected the freed slot, got %v", err)
	}
	if !ran {
		t.Error("expected fn to run")
	}
}

func TestBulkhead_ExecuteReturnsFnError(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	boom := errors.New("boom")
	if err := b.Execute(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn's error, got %v", err)
	}
	if b.InUse() != 0 {
		t.Errorf("expected the slot back, %d in use", b.InUse())
	}
}

func TestBulkhead_InUse(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 3})
	done := occupy(t, b, 2)
	if got := b.InUse(); got != 2 {
		t.Errorf("expected 2 in use, got %d", got)
	}
	done()

	deadline := time.Now().Add(time.Second)
	for b.InUse() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected every slot back, %d in use", b.InUse())
		}
		time.Sleep(time.Millisecond)
	}
}
