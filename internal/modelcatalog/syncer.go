package modelcatalog

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultRefreshTimeout = 30 * time.Second

// Syncer refreshes the catalog cache on a fixed interval.
type Syncer struct {
	catalog  *Service
	interval time.Duration
	timeout  time.Duration
}

// NewSyncer constructs a catalog syncer; it returns nil when disabled.
func NewSyncer(catalog *Service, interval time.Duration) *Syncer {
	if catalog == nil || interval <= 0 {
		return nil
	}
	return &Syncer{
		catalog:  catalog,
		interval: interval,
		timeout:  defaultRefreshTimeout,
	}
}

// Start runs the refresh loop in the background.
func (s *Syncer) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("model catalog syncer started (interval=%s)", s.interval)
}

func (s *Syncer) run(ctx context.Context) {
	if errSync := s.SyncOnce(ctx); errSync != nil {
		log.WithError(errSync).Warn("model catalog syncer: initial sync failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if errSync := s.SyncOnce(ctx); errSync != nil {
				log.WithError(errSync).Warn("model catalog syncer: sync failed")
			}
		}
	}
}

// SyncOnce refreshes the catalog once.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	if s == nil || s.catalog == nil {
		return fmt.Errorf("model catalog syncer: nil catalog")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := s.timeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	models := s.catalog.RefreshCache(requestCtx)
	if len(models) == 0 {
		return fmt.Errorf("model catalog syncer: empty payload")
	}
	log.WithField("models", len(models)).Debug("model catalog syncer: synced")
	return nil
}
