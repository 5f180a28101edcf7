// Command storage-init provisions the tables, queues and indexes todo-web
// expects. It is safe to run repeatedly.
package main

import (
	"context"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-web/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	mongoURI := os.Getenv("MONGODB_URI")
	if connStr == "" && mongoURI == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING or MONGODB_URI")
	}

	if connStr != "" {
		if err := storage.CreateTables(ctx, connStr, []string{
			envOr("ITEMS_TABLE", "items"),
			envOr("LISTS_TABLE", "lists"),
		}); err != nil {
			log.Fatalf("create tables: %v", err)
		}
		if err := storage.CreateQueues(ctx, connStr, []string{os.Getenv("CHANGES_QUEUE")}); err != nil {
			log.Fatalf("create queues: %v", err)
		}
		log.Debug("azure storage provisioned")
	}

	if mongoURI != "" {
		m, err := storage.NewMongo(ctx, storage.MongoConfig{
			URI:             mongoURI,
			Database:        envOr("MONGODB_DATABASE", "toDoListDB"),
			ItemsCollection: envOr("ITEMS_COLLECTION", "items"),
			ListsCollection: envOr("LISTS_COLLECTION", "lists"),
		})
		if err != nil {
			log.Fatalf("mongo: %v", err)
		}
		defer m.Close(context.Background())
		if err := m.EnsureIndexes(ctx); err != nil {
			log.Fatalf("mongo indexes: %v", err)
		}
		log.Debug("mongo indexes ensured")
	}

	log.Info("storage init complete")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
