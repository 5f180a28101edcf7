package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"todo-web/domain"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (f *fakeQueue) EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return azqueue.EnqueueMessagesResponse{}, f.err
	}
	f.messages = append(f.messages, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func TestPublishChangeEncodesJSON(t *testing.T) {
	fq := &fakeQueue{}
	q := &ChangeQueue{queue: fq}
	change := domain.Change{Kind: domain.ChangeItemAdded, List: "Groceries", ItemID: "i1", ItemName: "Milk", Time: 42}

	if err := q.PublishChange(context.Background(), change); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fq.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fq.messages))
	}
	var got domain.Change
	if err := sonic.UnmarshalString(fq.messages[0], &got); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got != change {
		t.Fatalf("unexpected change: %#v", got)
	}
}

func TestPublishChangeWrapsQueueErrors(t *testing.T) {
	queueErr := errors.New("queue down")
	q := &ChangeQueue{queue: &fakeQueue{err: queueErr}}

	err := q.PublishChange(context.Background(), domain.Change{Kind: domain.ChangeItemDeleted, List: "Today"})
	if !errors.Is(err, queueErr) {
		t.Fatalf("expected wrapped queue error, got %v", err)
	}
	if !strings.Contains(err.Error(), "item-deleted") {
		t.Fatalf("expected change kind in error, got %q", err.Error())
	}
}
