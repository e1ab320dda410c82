package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vendbees/backend-go/internal/analytics"
	"github.com/andresuchdata/vendbees/backend-go/internal/cache"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
	"github.com/andresuchdata/vendbees/backend-go/internal/repository"
)

// MaxTrendDays bounds the trend window a caller may ask for
const MaxTrendDays = 365

type DashboardService struct {
	store  repository.SnapshotReader
	engine *analytics.Engine
	cache  cache.DashboardCache
}

func NewDashboardService(store repository.SnapshotReader, engine *analytics.Engine, cacheImpl cache.DashboardCache) *DashboardService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopDashboardCache()
	}
	return &DashboardService{store: store, engine: engine, cache: cacheImpl}
}

// GetDashboard computes (or serves from cache) the dashboard of the current snapshot
func (s *DashboardService) GetDashboard(ctx context.Context, filter domain.DashboardFilter) (*domain.Dashboard, error) {
	if err := s.validate(&filter); err != nil {
		return nil, err
	}

	snap := s.store.Current()
	day := s.engine.Today()

	if d, ok, err := s.cache.GetDashboard(ctx, snap.Version, day, filter); err == nil && ok {
		return d, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("dashboard: cache get failed")
	}

	d, err := s.engine.Dashboard(snap, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetDashboard(ctx, snap.Version, day, filter, d); err != nil {
		log.Warn().Err(err).Msg("dashboard: cache set failed")
	}

	return d, nil
}

func (s *DashboardService) GetMetrics(ctx context.Context, filter domain.DashboardFilter) (domain.MetricsSnapshot, error) {
	if err := s.validate(&filter); err != nil {
		return domain.MetricsSnapshot{}, err
	}
	return s.engine.Summary(s.store.Current(), filter)
}

func (s *DashboardService) GetTrend(ctx context.Context, days int, machineID string) (domain.Trend, error) {
	filter := domain.DashboardFilter{MachineID: machineID, Days: days}
	if err := s.validate(&filter); err != nil {
		return domain.Trend{}, err
	}
	if filter.Days <= 0 {
		filter.Days = analytics.DefaultTrendDays
	}
	return s.engine.Trend(s.store.Current(), filter.Days, filter.MachineID), nil
}

func (s *DashboardService) GetRestock(ctx context.Context, machineID string) domain.RestockReport {
	return s.engine.LowStock(s.store.Current(), machineID)
}

func (s *DashboardService) TaxBuckets() []analytics.TaxBucket {
	return s.engine.Buckets().List()
}

// Invalidate drops every cached dashboard. Cache keys carry the snapshot version, so this
// only reclaims memory early.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("dashboard: cache invalidate failed")
	}
}

func (s *DashboardService) validate(filter *domain.DashboardFilter) error {
	if filter.Days < 0 || filter.Days > MaxTrendDays {
		return fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidFilter, MaxTrendDays)
	}
	if _, err := s.engine.Buckets().Parse(filter.TaxBucket); err != nil {
		return err
	}
	return nil
}
