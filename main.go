package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"todo-web/api"
	"todo-web/storage"
)

// maxFormBody caps add/delete form submissions.
const maxFormBody = "64K"

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func(context.Context) error
	var backend storage.Backend
	switch cfg.Backend {
	case backendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		m, err := storage.NewMongo(connectCtx, storage.MongoConfig{
			URI:             cfg.MongoURI,
			Database:        cfg.MongoDatabase,
			ItemsCollection: cfg.ItemsCollection,
			ListsCollection: cfg.ListsCollection,
		})
		cancel()
		if err != nil {
			log.Fatalf("mongo: %v", err)
		}
		closers = append(closers, m.Close)
		backend = m
	case backendTables:
		t, err := storage.NewTables(cfg.StorageConnStr, cfg.ItemsTable, cfg.ListsTable)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		backend = t
	default:
		log.Warn("using in-memory store; data is lost on restart")
		backend = storage.NewMemory()
	}

	var store api.Storage = backend
	if cfg.RedisConnStr != "" {
		rc := redis.NewClient(storage.ParseRedisOptions(cfg.RedisConnStr))
		closers = append(closers, func(context.Context) error { return rc.Close() })
		store = storage.NewCache(backend, rc, cfg.CacheTTL)
	}

	var feed *api.ChangeFeed
	if cfg.ChangesQueue != "" {
		queue, err := storage.NewChangeQueue(cfg.StorageConnStr, cfg.ChangesQueue)
		if err != nil {
			log.Fatalf("change queue: %v", err)
		}
		feed = api.NewChangeFeed(queue, api.ChangeFeedConfig{
			Workers:        cfg.ChangeFeedWorkers,
			Buffer:         cfg.ChangeFeedBuffer,
			Timeout:        cfg.ChangeFeedTimeout,
			HandoffTimeout: cfg.ChangeFeedHandoffTimeout,
		}, logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Decompress())
	e.Use(middleware.BodyLimit(maxFormBody))
	e.Use(middleware.Gzip())
	e.Use(middleware.ContextTimeout(cfg.StoreTimeout))

	api.Register(e, store, feed, logger)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()
	log.WithFields(log.Fields{"port": cfg.Port, "backend": cfg.Backend}).Info("todo-web listening")

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	feed.Close()
	for _, closeFn := range closers {
		if err := closeFn(shutdownCtx); err != nil {
			log.WithError(err).Warn("close store")
		}
	}
}
