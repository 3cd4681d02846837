package filter

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/outfitwx/platform/internal/core/domain"
)

// Pipeline runs a fixed ordered set of predicates over the catalog in
// parallel chunks, preserving input order in the output, grounded on
// original_source's ParallelFilterSystem.filter_assets_parallel.
type Pipeline struct {
	predicates []Predicate
	maxWorkers int
	logger     *zap.Logger
}

// NewPipeline constructs a Pipeline with the given predicates. maxWorkers of
// 0 defaults to runtime.GOMAXPROCS(0), the closest Go analogue to the
// original's default ThreadPoolExecutor sizing.
func NewPipeline(predicates []Predicate, maxWorkers int, logger *zap.Logger) *Pipeline {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	return &Pipeline{predicates: predicates, maxWorkers: maxWorkers, logger: logger}
}

// Apply filters assets against every predicate in order, returning only the
// assets that survive all of them. The result preserves the relative order
// of the input.
func (p *Pipeline) Apply(ctx context.Context, assets []*domain.AssetItem, weather domain.WeatherSnapshot, prefs domain.Preferences) ([]*domain.AssetItem, error) {
	if len(assets) == 0 {
		return nil, nil
	}

	chunkSize := (len(assets) + p.maxWorkers - 1) / p.maxWorkers
	if chunkSize < 1 {
		chunkSize = 1
	}

	var chunks [][]*domain.AssetItem
	for i := 0; i < len(assets); i += chunkSize {
		end := i + chunkSize
		if end > len(assets) {
			end = len(assets)
		}
		chunks = append(chunks, assets[i:end])
	}

	results := make([][]*domain.AssetItem, len(chunks))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = p.filterChunk(chunk, weather, prefs)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	var filtered []*domain.AssetItem
	for _, chunkResult := range results {
		filtered = append(filtered, chunkResult...)
	}

	p.logger.Debug("filter pipeline completed",
		zap.Int("input", len(assets)),
		zap.Int("output", len(filtered)),
	)

	return filtered, nil
}

func (p *Pipeline) filterChunk(chunk []*domain.AssetItem, weather domain.WeatherSnapshot, prefs domain.Preferences) []*domain.AssetItem {
	var survivors []*domain.AssetItem

	for _, asset := range chunk {
		if p.matchesAll(asset, weather, prefs) {
			survivors = append(survivors, asset)
		}
	}

	return survivors
}

func (p *Pipeline) matchesAll(asset *domain.AssetItem, weather domain.WeatherSnapshot, prefs domain.Preferences) bool {
	for _, predicate := range p.predicates {
		if !predicate(asset, weather, prefs) {
			return false
		}
	}
	return true
}
