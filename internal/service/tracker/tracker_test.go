package tracker

import (
	"sync"
	"testing"
)

func TestTrackerIncDec(t *testing.T) {
	t.Parallel()

	tr := &Tracker{}
	tr.Inc()
	if got := tr.Running(); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	tr.Dec()
	if got := tr.Running(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := tr.Peak(); got != 1 {
		t.Fatalf("expected peak 1, got %d", got)
	}
}

func TestTrackerTrack(t *testing.T) {
	t.Parallel()

	tr := &Tracker{}
	done := tr.Track()
	done2 := tr.Track()
	if got := tr.Running(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	done()
	done2()
	if got := tr.Running(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := tr.Peak(); got != 2 {
		t.Fatalf("expected peak 2, got %d", got)
	}
}

func TestTrackerConcurrent(t *testing.T) {
	t.Parallel()

	tr := &Tracker{}
	const goroutines = 10
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				done := tr.Track()
				done()
			}
		}()
	}
	wg.Wait()

	if got := tr.Running(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if p := tr.Peak(); p < 1 || p > goroutines {
		t.Fatalf("expected peak in [1, %d], got %d", goroutines, p)
	}
}
