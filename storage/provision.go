package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

const queueAlreadyExists = "QueueAlreadyExists"

// CreateTables creates the named tables, ignoring ones that already exist
// and skipping empty names.
func CreateTables(ctx context.Context, connStr string, names []string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return fmt.Errorf("table service: %w", err)
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		_, err := svc.CreateTable(ctx, name, nil)
		if err != nil && !isErrorCode(err, string(aztables.TableAlreadyExists)) {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	return nil
}

// CreateQueues creates the named queues, ignoring ones that already exist
// and skipping empty names.
func CreateQueues(ctx context.Context, connStr string, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
		if err != nil {
			return fmt.Errorf("queue client %s: %w", name, err)
		}
		_, err = q.Create(ctx, nil)
		if err != nil && !isErrorCode(err, queueAlreadyExists) {
			return fmt.Errorf("create queue %s: %w", name, err)
		}
	}
	return nil
}

func isErrorCode(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
