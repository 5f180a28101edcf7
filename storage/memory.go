package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"todo-web/domain"
)

// Memory keeps items and lists in process memory. It is used for local runs
// and tests; contents are lost on restart.
type Memory struct {
	mu    sync.Mutex
	items []domain.Item
	lists []domain.List
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) FetchItems(ctx context.Context) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Item{}, m.items...), nil
}

func (m *Memory) InsertItems(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := withNewIDs(items)
	m.items = append(m.items, saved...)
	return append([]domain.Item(nil), saved...), nil
}

func (m *Memory) DeleteItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = removeItem(m.items, id)
	return nil
}

// FindList returns the first list whose name matches exactly.
func (m *Memory) FindList(ctx context.Context, name string) (domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(name)
	if idx < 0 {
		return domain.List{}, domain.ErrListNotFound
	}
	return copyList(m.lists[idx]), nil
}

// CreateList always inserts a new document, even when the name is taken.
func (m *Memory) CreateList(ctx context.Context, list domain.List) (domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list.ID = uuid.NewString()
	list.Items = withNewIDs(list.Items)
	m.lists = append(m.lists, list)
	return copyList(list), nil
}

func (m *Memory) AppendListItem(ctx context.Context, name string, item domain.Item) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexOf(name)
	if idx < 0 {
		return domain.Item{}, domain.ErrListNotFound
	}
	item.ID = uuid.NewString()
	m.lists[idx].Items = append(m.lists[idx].Items, item)
	return item, nil
}

func (m *Memory) PullListItem(ctx context.Context, name, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexOf(name); idx >= 0 {
		m.lists[idx].Items = removeItem(m.lists[idx].Items, itemID)
	}
	return nil
}

// CountLists reports how many list documents carry name.
func (m *Memory) CountLists(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lists {
		if l.Name == name {
			n++
		}
	}
	return n
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) indexOf(name string) int {
	for i, l := range m.lists {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func withNewIDs(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	for i, it := range items {
		out[i] = domain.Item{ID: uuid.NewString(), Name: it.Name}
	}
	return out
}

func removeItem(items []domain.Item, id string) []domain.Item {
	out := items[:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func copyList(l domain.List) domain.List {
	l.Items = append([]domain.Item{}, l.Items...)
	return l
}
