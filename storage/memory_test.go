package storage

import (
	"context"
	"errors"
	"testing"

	"todo-web/domain"
)

func TestMemoryItemsLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	saved, err := m.InsertItems(ctx, domain.SeedItems())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if len(saved) != 2 || saved[0].ID == "" || saved[0].ID == saved[1].ID {
		t.Fatalf("expected two items with distinct ids, got %#v", saved)
	}

	if err := m.DeleteItem(ctx, saved[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteItem(ctx, "missing"); err != nil {
		t.Fatalf("delete of unknown id should succeed: %v", err)
	}

	items, err := m.FetchItems(ctx)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].ID != saved[1].ID {
		t.Fatalf("unexpected items after delete: %#v", items)
	}
}

func TestMemoryListsLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.FindList(ctx, "Work"); !errors.Is(err, domain.ErrListNotFound) {
		t.Fatalf("expected ErrListNotFound, got %v", err)
	}
	if _, err := m.AppendListItem(ctx, "Work", domain.Item{Name: "Email"}); !errors.Is(err, domain.ErrListNotFound) {
		t.Fatalf("expected ErrListNotFound on append, got %v", err)
	}
	if err := m.PullListItem(ctx, "Work", "x"); err != nil {
		t.Fatalf("pull from missing list should succeed: %v", err)
	}

	created, err := m.CreateList(ctx, domain.List{Name: "Work", Items: domain.SeedItems()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	added, err := m.AppendListItem(ctx, "Work", domain.Item{Name: "Email"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.PullListItem(ctx, "Work", created.Items[0].ID); err != nil {
		t.Fatalf("pull: %v", err)
	}

	list, err := m.FindList(ctx, "Work")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(list.Items) != 2 || list.Items[1] != added {
		t.Fatalf("unexpected list items: %#v", list.Items)
	}
}

func TestMemoryFindListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.CreateList(ctx, domain.List{Name: "Work", Items: domain.SeedItems()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, _ := m.FindList(ctx, "Work")
	list.Items[0].Name = "mutated"

	again, _ := m.FindList(ctx, "Work")
	if again.Items[0].Name == "mutated" {
		t.Fatal("FindList leaked internal state")
	}
}

func TestMemoryCreateListAllowsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for i := 0; i < 2; i++ {
		if _, err := m.CreateList(ctx, domain.List{Name: "Work"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if n := m.CountLists("Work"); n != 2 {
		t.Fatalf("expected 2 lists named Work, got %d", n)
	}
}
