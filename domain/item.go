package domain

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultListName labels the list backed by the top-level item collection.
const DefaultListName = "Today"

// ErrListNotFound is returned when no list document matches a name.
var ErrListNotFound = errors.New("list not found")

// Item represents a single entry on a to-do list.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List represents a user-named to-do list with its items embedded.
type List struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

var seedItemNames = []string{"Test item1", "Test item2"}

// SeedItems returns fresh, unsaved copies of the placeholder items.
func SeedItems() []Item {
	items := make([]Item, len(seedItemNames))
	for i, name := range seedItemNames {
		items[i] = Item{Name: name}
	}
	return items
}

// NormalizeListName upper-cases the first rune of name and lower-cases the rest.
func NormalizeListName(name string) string {
	if name == "" {
		return name
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
}

// IsDefaultList reports whether the normalized form of name is the default list.
func IsDefaultList(name string) bool {
	return NormalizeListName(name) == DefaultListName
}

// ChangeKind identifies a mutation published to the change feed.
type ChangeKind string

const (
	ChangeItemAdded   ChangeKind = "item-added"
	ChangeItemDeleted ChangeKind = "item-deleted"
	ChangeListCreated ChangeKind = "list-created"
)

// Change describes a successful mutation of a list.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	List     string     `json:"list"`
	ItemID   string     `json:"itemId,omitempty"`
	ItemName string     `json:"itemName,omitempty"`
	Time     int64      `json:"time"`
}

// NewChange stamps a change with a strictly increasing timestamp.
func NewChange(kind ChangeKind, list string, item Item) Change {
	return Change{
		Kind:     kind,
		List:     list,
		ItemID:   item.ID,
		ItemName: item.Name,
		Time:     nextTimestamp(),
	}
}
