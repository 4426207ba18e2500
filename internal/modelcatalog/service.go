package modelcatalog

import (
	"context"
	"sync"
	"time"

	"github.com/router-for-me/disqord/internal/openrouter"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultCacheTTL is how long a fetched catalog is served before refetching.
	DefaultCacheTTL = time.Hour
	// FreePriceSentinel is the literal upstream price for free models.
	// Only exact matches count; "0.0" is not treated as free.
	FreePriceSentinel = "0"
)

// ValidationError names why a model selection was rejected.
type ValidationError string

const (
	ErrModelNotFound ValidationError = "MODEL_NOT_FOUND"
	ErrModelNotFree  ValidationError = "MODEL_NOT_FREE"
)

// Validation is the result of ValidateModelSelection.
type Validation struct {
	Valid bool
	Error ValidationError
}

// CacheStatus describes the catalog slot.
type CacheStatus struct {
	LastUpdatedAt *time.Time
	ModelCount    int
	IsExpired     bool
}

// Options controls catalog reads.
type Options struct {
	NoCache bool
}

// ModelLister fetches the upstream catalog.
type ModelLister interface {
	ListModelsWithPricing(ctx context.Context) []openrouter.Model
}

type cacheEntry struct {
	data      []openrouter.Model
	expiresAt time.Time
}

// Service caches the upstream model catalog in a single TTL slot.
type Service struct {
	client ModelLister
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	entry *cacheEntry
}

// NewService constructs a catalog Service with the default TTL.
func NewService(client ModelLister) *Service {
	return &Service{
		client: client,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
	}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Service) cacheTTL() time.Duration {
	if s.ttl <= 0 {
		return DefaultCacheTTL
	}
	return s.ttl
}

// GetAllModels returns the cached catalog, fetching when the slot is empty,
// expired or NoCache is set. An empty fetch result still replaces the slot.
func (s *Service) GetAllModels(ctx context.Context, opts Options) []openrouter.Model {
	if s == nil {
		return []openrouter.Model{}
	}
	if !opts.NoCache {
		s.mu.RLock()
		entry := s.entry
		s.mu.RUnlock()
		if entry != nil && s.clock().Before(entry.expiresAt) {
			return cloneModels(entry.data)
		}
	}

	fetchedAt := s.clock()
	var models []openrouter.Model
	if s.client != nil {
		models = s.client.ListModelsWithPricing(ctx)
	}
	if models == nil {
		models = []openrouter.Model{}
	}
	fresh := &cacheEntry{data: cloneModels(models), expiresAt: fetchedAt.Add(s.cacheTTL())}

	s.mu.Lock()
	s.entry = fresh
	s.mu.Unlock()

	log.WithField("models", len(models)).Debug("model catalog: cache refreshed")
	return cloneModels(models)
}

// GetFreeModels returns the catalog entries priced at the free sentinel.
func (s *Service) GetFreeModels(ctx context.Context, opts Options) []openrouter.Model {
	all := s.GetAllModels(ctx, opts)
	free := make([]openrouter.Model, 0, len(all))
	for _, m := range all {
		if IsFree(m) {
			free = append(free, m)
		}
	}
	return free
}

// GetModel returns the catalog entry for id.
func (s *Service) GetModel(ctx context.Context, id string) (openrouter.Model, bool) {
	for _, m := range s.GetAllModels(ctx, Options{}) {
		if m.ID == id {
			return m, true
		}
	}
	return openrouter.Model{}, false
}

// IsModelAvailable reports whether id is in the catalog.
func (s *Service) IsModelAvailable(ctx context.Context, id string) bool {
	_, ok := s.GetModel(ctx, id)
	return ok
}

// IsFreeModel reports whether id is in the free subset.
func (s *Service) IsFreeModel(ctx context.Context, id string) bool {
	for _, m := range s.GetFreeModels(ctx, Options{}) {
		if m.ID == id {
			return true
		}
	}
	return false
}

// ValidateModelSelection checks existence first, then the free-only policy.
func (s *Service) ValidateModelSelection(ctx context.Context, id string, freeOnly bool) Validation {
	model, ok := s.GetModel(ctx, id)
	if !ok {
		return Validation{Valid: false, Error: ErrModelNotFound}
	}
	if freeOnly && !IsFree(model) {
		return Validation{Valid: false, Error: ErrModelNotFree}
	}
	return Validation{Valid: true}
}

// RefreshCache refetches the catalog regardless of TTL.
func (s *Service) RefreshCache(ctx context.Context) []openrouter.Model {
	return s.GetAllModels(ctx, Options{NoCache: true})
}

// GetCacheStatus reports the slot state without fetching.
func (s *Service) GetCacheStatus() CacheStatus {
	if s == nil {
		return CacheStatus{IsExpired: true}
	}
	s.mu.RLock()
	entry := s.entry
	s.mu.RUnlock()
	if entry == nil {
		return CacheStatus{IsExpired: true}
	}
	updated := entry.expiresAt.Add(-s.cacheTTL())
	return CacheStatus{
		LastUpdatedAt: &updated,
		ModelCount:    len(entry.data),
		IsExpired:     !s.clock().Before(entry.expiresAt),
	}
}

// IsFree reports whether both prompt and completion prices equal the free sentinel.
func IsFree(m openrouter.Model) bool {
	return m.Pricing.Prompt == FreePriceSentinel && m.Pricing.Completion == FreePriceSentinel
}

func cloneModels(in []openrouter.Model) []openrouter.Model {
	out := make([]openrouter.Model, len(in))
	copy(out, in)
	return out
}
