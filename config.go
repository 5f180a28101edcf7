package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	backendMongo  = "mongo"
	backendTables = "tables"
	backendMemory = "memory"
)

type config struct {
	Port    string
	Debug   bool
	Backend string

	MongoURI        string
	MongoDatabase   string
	ItemsCollection string
	ListsCollection string

	StorageConnStr string
	ItemsTable     string
	ListsTable     string
	ChangesQueue   string

	ChangeFeedWorkers        int
	ChangeFeedBuffer         int
	ChangeFeedTimeout        time.Duration
	ChangeFeedHandoffTimeout time.Duration

	RedisConnStr string
	CacheTTL     time.Duration
	StoreTimeout time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		Port:            envString("PORT", "3000"),
		Backend:         strings.ToLower(envString("STORE_BACKEND", backendMongo)),
		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   envString("MONGODB_DATABASE", "toDoListDB"),
		ItemsCollection: envString("ITEMS_COLLECTION", "items"),
		ListsCollection: envString("LISTS_COLLECTION", "lists"),
		StorageConnStr:  os.Getenv("STORAGE_CONNECTION_STRING"),
		ItemsTable:      envString("ITEMS_TABLE", "items"),
		ListsTable:      envString("LISTS_TABLE", "lists"),
		ChangesQueue:    os.Getenv("CHANGES_QUEUE"),
		RedisConnStr:    os.Getenv("REDIS_CONNECTION_STRING"),
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}

	var err error
	if cfg.ChangeFeedWorkers, err = envInt("CHANGEFEED_WORKERS", 4); err != nil {
		return config{}, err
	}
	if cfg.ChangeFeedBuffer, err = envInt("CHANGEFEED_BUFFER", 256); err != nil {
		return config{}, err
	}
	if cfg.ChangeFeedTimeout, err = envDuration("CHANGEFEED_TIMEOUT", 10*time.Second); err != nil {
		return config{}, err
	}
	if cfg.ChangeFeedHandoffTimeout, err = envDuration("CHANGEFEED_HANDOFF_TIMEOUT", 15*time.Millisecond); err != nil {
		return config{}, err
	}
	if cfg.CacheTTL, err = envDuration("CACHE_TTL", 5*time.Minute); err != nil {
		return config{}, err
	}
	if cfg.StoreTimeout, err = envDuration("STORE_TIMEOUT", 10*time.Second); err != nil {
		return config{}, err
	}

	switch cfg.Backend {
	case backendMongo:
		if cfg.MongoURI == "" {
			return config{}, fmt.Errorf("missing MONGODB_URI for %s backend", cfg.Backend)
		}
	case backendTables:
		if cfg.StorageConnStr == "" {
			return config{}, fmt.Errorf("missing STORAGE_CONNECTION_STRING for %s backend", cfg.Backend)
		}
	case backendMemory:
	default:
		return config{}, fmt.Errorf("invalid STORE_BACKEND %q", cfg.Backend)
	}
	if cfg.ChangesQueue != "" && cfg.StorageConnStr == "" {
		return config{}, fmt.Errorf("missing STORAGE_CONNECTION_STRING for CHANGES_QUEUE")
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return d, nil
}
