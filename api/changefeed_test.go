package api

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"todo-web/domain"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []domain.Change
	err     error
	block   chan struct{}
}

func (r *recordingPublisher) PublishChange(ctx context.Context, change domain.Change) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return r.err
}

func (r *recordingPublisher) Changes() []domain.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Change, len(r.changes))
	copy(out, r.changes)
	return out
}

func newUnstartedFeed(p ChangePublisher, buffer int, handoff time.Duration) (*ChangeFeed, *test.Hook) {
	logger, hook := test.NewNullLogger()
	return &ChangeFeed{
		publisher: p,
		logger:    logger,
		cfg:       ChangeFeedConfig{Timeout: time.Second, HandoffTimeout: handoff},
		jobs:      make(chan domain.Change, buffer),
	}, hook
}

func TestChangeFeedPublishesThroughWorkers(t *testing.T) {
	pub := &recordingPublisher{}
	feed := NewChangeFeed(pub, ChangeFeedConfig{Workers: 2, Buffer: 8, Timeout: time.Second}, log.New())

	for i := 0; i < 5; i++ {
		feed.Publish(domain.Change{Kind: domain.ChangeItemAdded, List: "Today"})
	}
	feed.Close()

	if got := len(pub.Changes()); got != 5 {
		t.Fatalf("expected 5 published changes, got %d", got)
	}
}

func TestChangeFeedPublishesInlineWhenSaturated(t *testing.T) {
	pub := &recordingPublisher{}
	feed, hook := newUnstartedFeed(pub, 1, 0)
	feed.jobs <- domain.Change{Kind: domain.ChangeItemAdded}

	feed.Publish(domain.Change{Kind: domain.ChangeItemDeleted, List: "Work"})

	changes := pub.Changes()
	if len(changes) != 1 || changes[0].Kind != domain.ChangeItemDeleted {
		t.Fatalf("expected inline publish, got %#v", changes)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != log.WarnLevel {
		t.Fatalf("expected saturation warning, got %#v", entry)
	}
}

func TestChangeFeedWaitsForCapacity(t *testing.T) {
	pub := &recordingPublisher{}
	feed, _ := newUnstartedFeed(pub, 1, 100*time.Millisecond)
	feed.jobs <- domain.Change{Kind: domain.ChangeItemAdded}

	done := make(chan struct{})
	go func() {
		feed.Publish(domain.Change{Kind: domain.ChangeListCreated})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	<-feed.jobs

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for handoff")
	}
	if len(pub.Changes()) != 0 {
		t.Fatal("expected handoff to the channel, not an inline publish")
	}
	if got := <-feed.jobs; got.Kind != domain.ChangeListCreated {
		t.Fatalf("unexpected queued change: %#v", got)
	}
}

func TestChangeFeedDropsAfterClose(t *testing.T) {
	pub := &recordingPublisher{}
	feed, hook := newUnstartedFeed(pub, 1, 0)
	feed.Close()

	feed.Publish(domain.Change{Kind: domain.ChangeItemAdded})

	if len(pub.Changes()) != 0 {
		t.Fatal("expected change to be dropped after close")
	}
	if entry := hook.LastEntry(); entry == nil || entry.Message != "change feed closed; dropping change" {
		t.Fatalf("expected drop warning, got %#v", entry)
	}
}

func TestChangeFeedLogsPublishErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("queue down")}
	feed, hook := newUnstartedFeed(pub, 0, 0)

	feed.Publish(domain.Change{Kind: domain.ChangeItemAdded, List: "Work"})

	entry := hook.LastEntry()
	if entry == nil || entry.Level != log.ErrorLevel {
		t.Fatalf("expected error log, got %#v", entry)
	}
	if entry.Data["list"] != "Work" {
		t.Fatalf("expected list field, got %#v", entry.Data)
	}
}

func TestNilChangeFeedIsNoop(t *testing.T) {
	var feed *ChangeFeed
	feed.Publish(domain.Change{Kind: domain.ChangeItemAdded})
	feed.Close()
}
