package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"todo-web/domain"
)

type messageQueue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// ChangeQueue publishes list mutations to an Azure Storage queue.
type ChangeQueue struct {
	queue messageQueue
}

// NewChangeQueue creates a queue client for the named queue.
func NewChangeQueue(connStr, queueName string) (*ChangeQueue, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &ChangeQueue{queue: q}, nil
}

// PublishChange enqueues the change as a JSON message.
func (q *ChangeQueue) PublishChange(ctx context.Context, change domain.Change) error {
	data, err := sonic.Marshal(change)
	if err != nil {
		return err
	}
	if _, err := q.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		return fmt.Errorf("enqueue %s change for %q: %w", change.Kind, change.List, err)
	}
	return nil
}
