package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"todo-web/domain"
)

// Mongo stores the default list in an items collection and custom lists,
// with their items embedded, in a lists collection.
type Mongo struct {
	client *mongo.Client
	items  *mongo.Collection
	lists  *mongo.Collection
}

// MongoConfig names the database objects used by Mongo.
type MongoConfig struct {
	URI             string
	Database        string
	ItemsCollection string
	ListsCollection string
}

type itemDocument struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Name string             `bson:"name"`
}

type listDocument struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Items []itemDocument     `bson:"items"`
}

// NewMongo connects to MongoDB and verifies the connection.
func NewMongo(ctx context.Context, cfg MongoConfig) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(10 * time.Second).
		SetRetryWrites(true)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(cfg.Database)
	return &Mongo{
		client: client,
		items:  db.Collection(cfg.ItemsCollection),
		lists:  db.Collection(cfg.ListsCollection),
	}, nil
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the lookup index on list names. The index is not
// unique: concurrent first visits to a new name may create two lists.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.lists.Indexes().CreateOne(ctx, listNameIndex())
	if err != nil {
		return fmt.Errorf("create lists index: %w", err)
	}
	return nil
}

func (m *Mongo) FetchItems(ctx context.Context) ([]domain.Item, error) {
	cur, err := m.items.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	var docs []itemDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return toDomainItems(docs), nil
}

func (m *Mongo) InsertItems(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	if len(items) == 0 {
		return nil, nil
	}
	docs := newItemDocuments(items)
	payload := make([]interface{}, len(docs))
	for i := range docs {
		payload[i] = docs[i]
	}
	if _, err := m.items.InsertMany(ctx, payload); err != nil {
		return nil, fmt.Errorf("insert items: %w", err)
	}
	return toDomainItems(docs), nil
}

// DeleteItem removes an item from the default list. Unknown or malformed
// ids are not an error.
func (m *Mongo) DeleteItem(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := m.items.DeleteOne(ctx, idFilter(oid)); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

func (m *Mongo) FindList(ctx context.Context, name string) (domain.List, error) {
	var doc listDocument
	err := m.lists.FindOne(ctx, nameFilter(name)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.List{}, domain.ErrListNotFound
	}
	if err != nil {
		return domain.List{}, fmt.Errorf("find list %q: %w", name, err)
	}
	return toDomainList(doc), nil
}

func (m *Mongo) CreateList(ctx context.Context, list domain.List) (domain.List, error) {
	doc := listDocument{
		ID:    primitive.NewObjectID(),
		Name:  list.Name,
		Items: newItemDocuments(list.Items),
	}
	if _, err := m.lists.InsertOne(ctx, doc); err != nil {
		return domain.List{}, fmt.Errorf("insert list %q: %w", list.Name, err)
	}
	return toDomainList(doc), nil
}

// AppendListItem pushes the item onto the first list named name in a
// single document update.
func (m *Mongo) AppendListItem(ctx context.Context, name string, item domain.Item) (domain.Item, error) {
	doc := itemDocument{ID: primitive.NewObjectID(), Name: item.Name}
	err := m.lists.FindOneAndUpdate(ctx, nameFilter(name), pushItemUpdate(doc)).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Item{}, domain.ErrListNotFound
	}
	if err != nil {
		return domain.Item{}, fmt.Errorf("push item to %q: %w", name, err)
	}
	return domain.Item{ID: doc.ID.Hex(), Name: doc.Name}, nil
}

func (m *Mongo) PullListItem(ctx context.Context, name, itemID string) error {
	oid, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return nil
	}
	if _, err := m.lists.UpdateOne(ctx, nameFilter(name), pullItemUpdate(oid)); err != nil {
		return fmt.Errorf("pull item %s from %q: %w", itemID, name, err)
	}
	return nil
}

func listNameIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName("name_1"),
	}
}

func idFilter(oid primitive.ObjectID) bson.D {
	return bson.D{{Key: "_id", Value: oid}}
}

func nameFilter(name string) bson.D {
	return bson.D{{Key: "name", Value: name}}
}

func pushItemUpdate(doc itemDocument) bson.D {
	return bson.D{{Key: "$push", Value: bson.D{{Key: "items", Value: doc}}}}
}

func pullItemUpdate(oid primitive.ObjectID) bson.D {
	return bson.D{{Key: "$pull", Value: bson.D{{Key: "items", Value: idFilter(oid)}}}}
}

func newItemDocuments(items []domain.Item) []itemDocument {
	docs := make([]itemDocument, len(items))
	for i, it := range items {
		docs[i] = itemDocument{ID: primitive.NewObjectID(), Name: it.Name}
	}
	return docs
}

func toDomainItems(docs []itemDocument) []domain.Item {
	items := make([]domain.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, domain.Item{ID: d.ID.Hex(), Name: d.Name})
	}
	return items
}

func toDomainList(doc listDocument) domain.List {
	return domain.List{ID: doc.ID.Hex(), Name: doc.Name, Items: toDomainItems(doc.Items)}
}
