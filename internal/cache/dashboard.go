package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/vendbees/backend-go/internal/config"
	"github.com/andresuchdata/vendbees/backend-go/internal/domain"
)

const (
	dashboardKeyPrefix = "dashboard"
	scanBatchSize      = 100
)

// DashboardCache keeps computed dashboards per snapshot version, day and filter.
// A new snapshot version or a new day never reuses an older entry.
type DashboardCache interface {
	GetDashboard(ctx context.Context, version uint64, day string, filter domain.DashboardFilter) (*domain.Dashboard, bool, error)
	SetDashboard(ctx context.Context, version uint64, day string, filter domain.DashboardFilter, dashboard *domain.Dashboard) error
	InvalidateAll(ctx context.Context) error
}

type redisDashboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDashboardCache struct{}

func NewDashboardCache(cfg config.CacheConfig) (DashboardCache, error) {
	if !cfg.Enabled {
		return &noopDashboardCache{}, nil
	}

	client, err := connectRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisDashboardCache{
		client: client,
		ttl:    dashboardTTL(cfg),
	}, nil
}

func NewNoopDashboardCache() DashboardCache {
	return &noopDashboardCache{}
}

func (c *redisDashboardCache) GetDashboard(ctx context.Context, version uint64, day string, filter domain.DashboardFilter) (*domain.Dashboard, bool, error) {
	key := buildDashboardKey(version, day, filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var dashboard domain.Dashboard
	if err := json.Unmarshal(payload, &dashboard); err != nil {
		return nil, false, fmt.Errorf("decode dashboard cache: %w", err)
	}

	return &dashboard, true, nil
}

func (c *redisDashboardCache) SetDashboard(ctx context.Context, version uint64, day string, filter domain.DashboardFilter, dashboard *domain.Dashboard) error {
	key := buildDashboardKey(version, day, filter)
	payload, err := json.Marshal(dashboard)
	if err != nil {
		return fmt.Errorf("encode dashboard cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisDashboardCache) InvalidateAll(ctx context.Context) error {
	_, err := unlinkMatching(ctx, c.client, dashboardKeyPrefix+":*", scanBatchSize)
	return err
}

func (n *noopDashboardCache) GetDashboard(ctx context.Context, version uint64, day string, filter domain.DashboardFilter) (*domain.Dashboard, bool, error) {
	return nil, false, nil
}

func (n *noopDashboardCache) SetDashboard(ctx context.Context, version uint64, day string, filter domain.DashboardFilter, dashboard *domain.Dashboard) error {
	return nil
}

func (n *noopDashboardCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildDashboardKey(version uint64, day string, filter domain.DashboardFilter) string {
	base := fmt.Sprintf("%s:v%d:%s", dashboardKeyPrefix, version, day)

	var parts []string
	if m := strings.TrimSpace(filter.MachineID); m != "" && !strings.EqualFold(m, "all") {
		parts = append(parts, "machine="+m)
	}
	if b := strings.TrimSpace(filter.TaxBucket); b != "" && !strings.EqualFold(b, "all") {
		parts = append(parts, "tax="+strings.ToLower(b))
	}
	if filter.Days > 0 {
		parts = append(parts, fmt.Sprintf("days=%d", filter.Days))
	}

	if len(parts) == 0 {
		return base + ":default"
	}

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:%s", base, hex.EncodeToString(hash[:]))
}
