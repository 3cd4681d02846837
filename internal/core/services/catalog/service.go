// Package catalog provides a lazily-initialized, idempotent in-memory
// snapshot of the clothing asset catalog, grounded on original_source's
// JsonAssetRetriever.initialize double-checked-locking pattern.
package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/outfitwx/platform/internal/core/domain"
)

// FileReader loads the catalog's backing assets. Implemented by
// internal/adapters/secondary/catalogfile.Loader.
type FileReader interface {
	Load() ([]*domain.AssetItem, error)
}

// Service holds the currently-loaded catalog snapshot and an index by asset
// name.
type Service struct {
	reader FileReader
	logger *zap.Logger

	mu      sync.RWMutex
	loaded  bool
	assets  []*domain.AssetItem
	byName  map[string]*domain.AssetItem
}

// NewService constructs a catalog Service backed by reader.
func NewService(reader FileReader, logger *zap.Logger) *Service {
	return &Service{
		reader: reader,
		logger: logger,
	}
}

// Initialize loads the catalog exactly once. Concurrent callers block on the
// first load and then return immediately; this is the explicit
// double-checked-locking form of the original's asyncio.Lock guard.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.RLock()
	if s.loaded {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}

	return s.load()
}

// Reload forces a re-read of the backing catalog source regardless of
// whether it was already loaded.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *Service) load() error {
	assets, err := s.reader.Load()
	if err != nil {
		s.logger.Error("failed to load asset catalog", zap.Error(err))
		return err
	}

	byName := make(map[string]*domain.AssetItem, len(assets))
	for _, asset := range assets {
		if _, dup := byName[asset.AssetName]; dup {
			dupErr := domain.NewServiceError(domain.KindInternal, "duplicate asset_name in catalog: "+asset.AssetName, nil)
			s.logger.Error("failed to load asset catalog", zap.Error(dupErr))
			return dupErr
		}
		byName[asset.AssetName] = asset
	}

	s.assets = assets
	s.byName = byName
	s.loaded = true

	s.logger.Info("loaded asset catalog", zap.Int("count", len(assets)))

	return nil
}

// Assets returns the current immutable snapshot of catalog items. Callers
// must call Initialize first; an uninitialized catalog returns nil.
func (s *Service) Assets() []*domain.AssetItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.assets
}

// ByName looks up a single asset by its catalog name.
func (s *Service) ByName(name string) (*domain.AssetItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.byName[name]
	return asset, ok
}
