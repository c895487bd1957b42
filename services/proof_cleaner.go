package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/metrics"
	"github.com/cppla/gymchallenge/storage"
	"github.com/cppla/gymchallenge/store"
)

const cleanBatch = 100

// ProofCleaner periodically deletes proof photos that were superseded by a
// retake more than retention ago. It is best-effort and logs failures.
type ProofCleaner struct {
	proofs    store.ProofFileStore
	storage   storage.ProofStorage
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	log       *zap.Logger

	stopOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewProofCleaner(proofs store.ProofFileStore, st storage.ProofStorage, retention, interval time.Duration, log *zap.Logger) *ProofCleaner {
	if retention <= 0 {
		retention = time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProofCleaner{
		proofs:    proofs,
		storage:   st,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		log:       log.Named("proof-cleaner"),
	}
}

// Start launches the background loop. Stop ends it and waits for the current sweep.
func (c *ProofCleaner) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		t := time.NewTicker(c.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := c.Sweep(ctx); err != nil {
					c.log.Warn("proof sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

func (c *ProofCleaner) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		<-c.done
	})
}

// Sweep removes one batch of expired proofs and returns how many rows were deleted.
func (c *ProofCleaner) Sweep(ctx context.Context) (int, error) {
	items, err := c.proofs.ListExpired(ctx, c.now().Add(-c.retention), cleanBatch)
	if err != nil {
		return 0, unavailable("list expired proofs", err)
	}
	deleted := 0
	for _, it := range items {
		if err := c.storage.Remove(ctx, it.FilePath); err != nil {
			c.log.Warn("remove proof file failed", zap.String("path", it.FilePath), zap.Error(err))
		}
		// Remove row regardless of file deletion outcome
		if err := c.proofs.Delete(ctx, it.ID); err != nil {
			c.log.Warn("delete proof row failed", zap.Uint("id", it.ID), zap.Error(err))
			continue
		}
		metrics.ProofDeleted()
		deleted++
	}
	if deleted > 0 {
		c.log.Info("superseded proofs removed", zap.Int("count", deleted))
	}
	return deleted, nil
}
