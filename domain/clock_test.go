package domain

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNextTimestampAdvancesPastLast(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastTimestamp, 0)
	})

	base := time.Now().Add(time.Second).UnixNano()
	atomic.StoreInt64(&lastTimestamp, base)

	if got := nextTimestamp(); got != base+1 {
		t.Fatalf("expected %d, got %d", base+1, got)
	}
}

func TestNextTimestampConcurrentUnique(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastTimestamp, 0)
	})

	const n = 200
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := nextTimestamp()
			mu.Lock()
			seen[ts] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(seen) != n {
		t.Fatalf("expected %d unique timestamps, got %d", n, len(seen))
	}
}

func TestNewChangeTimesIncrease(t *testing.T) {
	first := NewChange(ChangeItemAdded, "Today", Item{ID: "1", Name: "Milk"})
	second := NewChange(ChangeItemDeleted, "Today", Item{ID: "1"})
	if second.Time <= first.Time {
		t.Fatalf("expected increasing change times, got %d then %d", first.Time, second.Time)
	}
}
