package api

import (
	"context"
	"errors"
	"net/url"

	"todo-web/domain"
)

// listStrategy hides whether a list lives in the top-level item collection
// or embedded in a list document.
type listStrategy interface {
	Title() string
	Path() string
	IsDefault() bool
	// Open returns the list's items. created reports that the list was
	// initialized by this call and should be re-read.
	Open(ctx context.Context) (items []domain.Item, created bool, err error)
	Add(ctx context.Context, name string) (domain.Item, error)
	Remove(ctx context.Context, id string) error
}

// resolveList normalizes raw and picks the storage strategy for it.
func resolveList(store Storage, raw string) listStrategy {
	name := domain.NormalizeListName(raw)
	if name == domain.DefaultListName {
		return defaultList{store: store}
	}
	return customList{store: store, name: name}
}

type defaultList struct {
	store Storage
}

func (defaultList) Title() string   { return domain.DefaultListName }
func (defaultList) Path() string    { return "/" }
func (defaultList) IsDefault() bool { return true }

// Open seeds the item collection when it is empty.
func (d defaultList) Open(ctx context.Context) ([]domain.Item, bool, error) {
	items, err := d.store.FetchItems(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(items) > 0 {
		return items, false, nil
	}
	if _, err := d.store.InsertItems(ctx, domain.SeedItems()); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

func (d defaultList) Add(ctx context.Context, name string) (domain.Item, error) {
	saved, err := d.store.InsertItems(ctx, []domain.Item{{Name: name}})
	if err != nil {
		return domain.Item{}, err
	}
	if len(saved) == 0 {
		return domain.Item{}, errors.New("insert returned no items")
	}
	return saved[0], nil
}

func (d defaultList) Remove(ctx context.Context, id string) error {
	return d.store.DeleteItem(ctx, id)
}

type customList struct {
	store Storage
	name  string
}

func (c customList) Title() string { return c.name }
func (c customList) Path() string  { return "/" + url.PathEscape(c.name) }
func (customList) IsDefault() bool { return false }

// Open creates the list with seed items the first time its name is seen.
// Two concurrent first visits may both create it.
func (c customList) Open(ctx context.Context) ([]domain.Item, bool, error) {
	list, err := c.store.FindList(ctx, c.name)
	if err == nil {
		return list.Items, false, nil
	}
	if !errors.Is(err, domain.ErrListNotFound) {
		return nil, false, err
	}
	if _, err := c.store.CreateList(ctx, domain.List{Name: c.name, Items: domain.SeedItems()}); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

func (c customList) Add(ctx context.Context, name string) (domain.Item, error) {
	return c.store.AppendListItem(ctx, c.name, domain.Item{Name: name})
}

func (c customList) Remove(ctx context.Context, id string) error {
	return c.store.PullListItem(ctx, c.name, id)
}
