package pool

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func BenchmarkPoolParallel(b *testing.B) {
	for _, size := range []int{1, 2, 8, 64, 128} {
		b.Run(fmt.Sprintf("cap=%d", size), func(b *testing.B) {
			p := New(size)
			ctx := context.Background()
			b.ReportAllocs()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					l, err := p.Acquire(ctx)
					if err != nil {
						b.Fatal(err)
					}
					l.Release()
				}
			})
		})
	}
}

func FuzzPoolAcquireRelease(f *testing.F) {
	f.Add(1)
	f.Fuzz(func(t *testing.T, n int) {
		p := New(n)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		l, err := p.Acquire(ctx)
		if err != nil {
			t.Fatalf("acquire: %v (n=%d)", err, n)
		}
		l.Release()
		if got := p.InUse(); got != 0 {
			t.Fatalf("expected 0 in use after release, got %d (n=%d)", got, n)
		}
	})
}

var poolSizesTests = []struct {
	in  int
	out int
}{
	{in: -1, out: 1},
	{in: 0, out: 1},
	{in: -129, out: 1},

	{in: 1, out: 1},
	{in: 3, out: 3},
	{in: 127, out: 127},
	{in: 128, out: 128},

	{in: 129, out: 128},
	{in: 1000, out: 128},
}

func TestNewPoolSize(t *testing.T) {
	for _, tt := range poolSizesTests {
		tt := tt
		t.Run(fmt.Sprintf("size=%d", tt.in), func(t *testing.T) {
			if got := New(tt.in).Cap(); got != tt.out {
				t.Errorf("New(%d): got %d, want %d", tt.in, got, tt.out)
			}
		})
	}
}

func TestLeaseReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	p := New(2)
	l, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	other, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	l.Release()
	l.Release()
	if got := p.InUse(); got != 1 {
		t.Fatalf("expected 1 in use, got %d", got)
	}
	other.Release()

	var nilLease *Lease
	nilLease.Release()
}

// TestPoolAcquireRelease verifies that a blocked acquire unblocks after a release.
func TestPoolAcquireRelease(t *testing.T) {
	for _, size := range []int{1, 2, 8, 64} {
		size := size
		t.Run(fmt.Sprintf("size=%d", size), func(t *testing.T) {
			p := New(size)

			leases := make([]*Lease, 0, size)
			for i := 0; i < size; i++ {
				l, err := p.Acquire(context.Background())
				if err != nil {
					t.Fatalf("prefill acquire #%d failed: %v", i+1, err)
				}
				leases = append(leases, l)
			}

			done := make(chan error, 1)
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			go func() {
				l, err := p.Acquire(ctx)
				if err == nil {
					defer l.Release()
				}
				done <- err
			}()

			// Must not complete while pool is saturated.
			select {
			case err := <-done:
				t.Fatalf("expected extra acquire to block; got err=%v", err)
			case <-time.After(10 * time.Millisecond):
			}

			leases[0].Release()

			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("unexpected extra acquire error: %v", err)
				}
			case <-time.After(200 * time.Millisecond):
				t.Fatal("expected blocked acquire to succeed after release")
			}

			for _, l := range leases[1:] {
				l.Release()
			}
		})
	}
}

// TestPoolAcquireContextTimeout verifies that acquire returns
// context.DeadlineExceeded when the pool is full and the context expires.
func TestPoolAcquireContextTimeout(t *testing.T) {
	t.Parallel()

	p := New(1)
	l, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected %v, got %v", context.DeadlineExceeded, err)
	}
}
