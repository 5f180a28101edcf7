package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-web/domain"
)

// ChangeFeedConfig sizes the change feed worker pool.
type ChangeFeedConfig struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

// ChangeFeed publishes list mutations in the background so handlers can
// redirect without waiting on the queue.
type ChangeFeed struct {
	publisher ChangePublisher
	logger    *log.Logger
	cfg       ChangeFeedConfig

	jobs      chan domain.Change
	workerWG  sync.WaitGroup
	closeOnce sync.Once
}

// NewChangeFeed starts cfg.Workers goroutines draining a buffered channel.
func NewChangeFeed(publisher ChangePublisher, cfg ChangeFeedConfig, logger *log.Logger) *ChangeFeed {
	if publisher == nil {
		panic("change publisher is required")
	}
	if logger == nil {
		panic("Logger is not initialized")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	f := &ChangeFeed{
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		jobs:      make(chan domain.Change, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		f.workerWG.Add(1)
		go f.worker(i)
	}
	logger.Infof("change feed started, workers: %d, buffer: %d, timeout: %v, handoff: %v", cfg.Workers, cfg.Buffer, cfg.Timeout, cfg.HandoffTimeout)
	return f
}

// Publish hands the change to a worker. When the buffer stays full past the
// handoff timeout the change is published inline.
func (f *ChangeFeed) Publish(change domain.Change) {
	if f == nil {
		return
	}
	ok, closed := f.trySend(change)
	if closed {
		f.logger.WithField("kind", change.Kind).Warn("change feed closed; dropping change")
		return
	}
	if ok {
		return
	}

	f.logger.Warn("change feed buffer saturated; publishing inline")
	f.publish(-1, change)
}

// Close stops accepting changes and waits for the workers to drain.
func (f *ChangeFeed) Close() {
	if f == nil {
		return
	}
	f.closeOnce.Do(func() {
		close(f.jobs)
	})
	f.workerWG.Wait()
}

func (f *ChangeFeed) worker(id int) {
	defer f.workerWG.Done()
	for change := range f.jobs {
		f.publish(id, change)
	}
}

func (f *ChangeFeed) publish(worker int, change domain.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.Timeout)
	err := f.publisher.PublishChange(ctx, change)
	cancel()
	if err != nil {
		f.logger.WithFields(log.Fields{
			"kind":   change.Kind,
			"list":   change.List,
			"worker": worker,
		}).Errorf("publish change failed: %v", err)
	}
}

func (f *ChangeFeed) trySend(change domain.Change) (ok bool, closed bool) {
	if ok, closed := trySendNonBlocking(f.jobs, change); closed || ok {
		return ok, closed
	}

	if f.cfg.HandoffTimeout <= 0 {
		return false, false
	}

	timer := time.NewTimer(f.cfg.HandoffTimeout)
	defer timer.Stop()

	return sendWithTimer(f.jobs, change, timer.C)
}

func trySendNonBlocking(ch chan domain.Change, change domain.Change) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- change:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan domain.Change, change domain.Change, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- change:
		return true, false
	case <-timer:
		return false, false
	}
}
