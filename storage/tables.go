package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"todo-web/domain"
)

const (
	itemsPartition = "items"
	listsPartition = "lists"

	// listUpdateAttempts bounds ETag conflict retries on list documents.
	listUpdateAttempts = 3
)

// Tables stores the default list and custom lists in Azure Table Storage.
// Each custom list is one entity whose items are kept as a JSON array.
type Tables struct {
	svc        *aztables.ServiceClient
	itemsTable *aztables.Client
	listsTable *aztables.Client
}

// NewTables creates a Tables instance from the given connection string.
func NewTables(connStr, itemsTable, listsTable string) (*Tables, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	return &Tables{
		svc:        svc,
		itemsTable: svc.NewClient(itemsTable),
		listsTable: svc.NewClient(listsTable),
	}, nil
}

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type itemEntity struct {
	entityKeys
	Name string `json:"Name"`
}

type listEntity struct {
	entityKeys
	Name  string `json:"Name"`
	Items string `json:"Items"`
}

func (t *Tables) Ping(ctx context.Context) error {
	_, err := t.svc.GetProperties(ctx, nil)
	return err
}

func (t *Tables) FetchItems(ctx context.Context) ([]domain.Item, error) {
	filter := "PartitionKey eq '" + itemsPartition + "'"
	pager := t.itemsTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	items := []domain.Item{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent itemEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			items = append(items, domain.Item{ID: ent.RowKey, Name: ent.Name})
		}
	}
	return items, nil
}

// InsertItems adds all items in one entity group transaction.
func (t *Tables) InsertItems(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	saved := make([]domain.Item, len(items))
	actions := make([]aztables.TransactionAction, len(items))
	for i, it := range items {
		saved[i] = domain.Item{ID: uuid.NewString(), Name: it.Name}
		payload, err := json.Marshal(itemEntity{
			entityKeys: entityKeys{PartitionKey: itemsPartition, RowKey: saved[i].ID},
			Name:       it.Name,
		})
		if err != nil {
			return nil, err
		}
		actions[i] = aztables.TransactionAction{ActionType: aztables.TransactionTypeAdd, Entity: payload}
	}
	if _, err := t.itemsTable.SubmitTransaction(ctx, actions, nil); err != nil {
		return nil, fmt.Errorf("insert items: %w", err)
	}
	return saved, nil
}

func (t *Tables) DeleteItem(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	_, err := t.itemsTable.DeleteEntity(ctx, itemsPartition, id, nil)
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

func (t *Tables) FindList(ctx context.Context, name string) (domain.List, error) {
	ent, err := t.findListEntity(ctx, name)
	if err != nil {
		return domain.List{}, err
	}
	return decodeListEntity(ent)
}

// CreateList adds a new list entity keyed by a fresh id, so a second list
// with the same name is accepted.
func (t *Tables) CreateList(ctx context.Context, list domain.List) (domain.List, error) {
	list.ID = uuid.NewString()
	items := make([]domain.Item, len(list.Items))
	for i, it := range list.Items {
		items[i] = domain.Item{ID: uuid.NewString(), Name: it.Name}
	}
	list.Items = items
	payload, err := encodeListEntity(list)
	if err != nil {
		return domain.List{}, err
	}
	if _, err := t.listsTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.List{}, fmt.Errorf("add list %q: %w", list.Name, err)
	}
	return list, nil
}

func (t *Tables) AppendListItem(ctx context.Context, name string, item domain.Item) (domain.Item, error) {
	item.ID = uuid.NewString()
	err := t.updateList(ctx, name, func(l *domain.List) bool {
		l.Items = append(l.Items, item)
		return true
	})
	if err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func (t *Tables) PullListItem(ctx context.Context, name, itemID string) error {
	err := t.updateList(ctx, name, func(l *domain.List) bool {
		kept := l.Items[:0]
		for _, it := range l.Items {
			if it.ID != itemID {
				kept = append(kept, it)
			}
		}
		changed := len(kept) != len(l.Items)
		l.Items = kept
		return changed
	})
	if errors.Is(err, domain.ErrListNotFound) {
		return nil
	}
	return err
}

// updateList applies mutate to the first list named name and merges the
// result back conditioned on the entity's ETag, retrying on conflicts.
func (t *Tables) updateList(ctx context.Context, name string, mutate func(*domain.List) bool) error {
	var lastErr error
	for attempt := 0; attempt < listUpdateAttempts; attempt++ {
		found, err := t.findListEntity(ctx, name)
		if err != nil {
			return err
		}
		var keys entityKeys
		if err := json.Unmarshal(found, &keys); err != nil {
			return err
		}
		resp, err := t.listsTable.GetEntity(ctx, keys.PartitionKey, keys.RowKey, nil)
		if err != nil {
			if isStatus(err, http.StatusNotFound) {
				return domain.ErrListNotFound
			}
			return err
		}
		list, err := decodeListEntity(resp.Value)
		if err != nil {
			return err
		}
		if !mutate(&list) {
			return nil
		}
		payload, err := encodeListEntity(list)
		if err != nil {
			return err
		}
		etag := resp.ETag
		_, err = t.listsTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeMerge})
		if err == nil {
			return nil
		}
		if !isStatus(err, http.StatusPreconditionFailed) {
			return fmt.Errorf("update list %q: %w", name, err)
		}
		lastErr = err
	}
	return fmt.Errorf("update list %q: %w", name, lastErr)
}

func (t *Tables) findListEntity(ctx context.Context, name string) ([]byte, error) {
	filter := listNameFilter(name)
	top := int32(1)
	pager := t.listsTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("find list %q: %w", name, err)
		}
		if len(resp.Entities) > 0 {
			return resp.Entities[0], nil
		}
	}
	return nil, domain.ErrListNotFound
}

func listNameFilter(name string) string {
	return "PartitionKey eq '" + listsPartition + "' and Name eq '" + strings.ReplaceAll(name, "'", "''") + "'"
}

func encodeListEntity(list domain.List) ([]byte, error) {
	items := list.Items
	if items == nil {
		items = []domain.Item{}
	}
	data, err := sonic.Marshal(items)
	if err != nil {
		return nil, err
	}
	return json.Marshal(listEntity{
		entityKeys: entityKeys{PartitionKey: listsPartition, RowKey: list.ID},
		Name:       list.Name,
		Items:      string(data),
	})
}

func decodeListEntity(data []byte) (domain.List, error) {
	var ent listEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.List{}, err
	}
	items := []domain.Item{}
	if ent.Items != "" {
		if err := sonic.UnmarshalString(ent.Items, &items); err != nil {
			return domain.List{}, fmt.Errorf("decode items of list %q: %w", ent.Name, err)
		}
	}
	return domain.List{ID: ent.RowKey, Name: ent.Name, Items: items}, nil
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
