package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func TestCacheKeyNormalisesParts(t *testing.T) {
	assert.Equal(t, "directory:faculty:_", cacheKey(cacheKeyFaculty, "  "))
	assert.Equal(t, "directory:faculty:ada", cacheKey(cacheKeyFaculty, " Ada "))
	assert.Equal(t, "grades:courses", cacheKey(cacheKeyCourses))
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	store := newMemoryCache()
	svc := NewCacheService(store, nil, time.Minute, nil, false)
	require.NoError(t, svc.Set(context.Background(), "k", []string{"v"}, 0))

	var out []string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, store.keys())

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceRecordsHitsAndMisses(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCache(), metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var out []string
	hit, err := svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", []string{"v"}, 0))
	hit, err = svc.Get(ctx, "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"v"}, out)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
	assert.InDelta(t, 0.5, snap.CacheHitRatio, 0.001)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	svc := NewCacheService(brokenCache{}, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()

	var out []string
	hit, err := svc.Get(ctx, "k", &out)
	assert.False(t, hit)
	assert.Error(t, err)
	assert.Error(t, svc.Set(ctx, "k", out, 0))
	assert.Error(t, svc.Invalidate(ctx, "k*"))
}
