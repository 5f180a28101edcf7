package api

import (
	"context"

	"todo-web/domain"
)

// Storage abstracts persistence for handlers. FindList and AppendListItem
// return domain.ErrListNotFound when no list carries the name.
type Storage interface {
	FetchItems(ctx context.Context) ([]domain.Item, error)
	InsertItems(ctx context.Context, items []domain.Item) ([]domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
	FindList(ctx context.Context, name string) (domain.List, error)
	CreateList(ctx context.Context, list domain.List) (domain.List, error)
	AppendListItem(ctx context.Context, name string, item domain.Item) (domain.Item, error)
	PullListItem(ctx context.Context, name, itemID string) error
	Ping(ctx context.Context) error
}

// ChangePublisher delivers list mutations to downstream consumers.
type ChangePublisher interface {
	PublishChange(ctx context.Context, change domain.Change) error
}
