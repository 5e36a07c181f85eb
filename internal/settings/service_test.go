package settings

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
)

type mockRepo struct {
	values   map[string]string
	getCalls int
}

func (m *mockRepo) Get(ctx context.Context, key string) (string, error) {
	m.getCalls++
	value, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *mockRepo) Set(ctx context.Context, key, value string) error {
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := &mockRepo{}
	return NewService(repo, client, time.Minute), repo
}

func TestGetReadsThroughCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "theme", "dark"))

	for i := 0; i < 3; i++ {
		value, err := svc.Get(ctx, "theme")
		require.NoError(t, err)
		require.Equal(t, "dark", value)
	}
	require.Equal(t, 1, repo.getCalls, "second and third reads must hit the cache")
}

func TestSetInvalidatesCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "theme", "dark"))
	value, err := svc.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "dark", value)

	require.NoError(t, svc.Set(ctx, "theme", "light"))
	value, err = svc.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "light", value)
}

func TestGetMissing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPricingMethodDefaultsToFIFO(t *testing.T) {
	svc, _ := newTestService(t)

	method, err := svc.PricingMethod(context.Background())
	require.NoError(t, err)
	require.Equal(t, inventory.MethodFIFO, method)
}

func TestSetPricingMethodRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetPricingMethod(ctx, inventory.MethodWeightedAverage))
	method, err := svc.PricingMethod(ctx)
	require.NoError(t, err)
	require.Equal(t, inventory.MethodWeightedAverage, method)
}

func TestSetPricingMethodRejectsUnknown(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.SetPricingMethod(context.Background(), inventory.PricingMethod("average"))
	require.ErrorIs(t, err, inventory.ErrUnknownPricingMethod)
}

func TestPricingMethodRejectsCorruptStoredValue(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, KeyPricingMethod, "bogus"))

	_, err := svc.PricingMethod(ctx)
	require.ErrorIs(t, err, inventory.ErrUnknownPricingMethod)
}

func TestServiceWorksWithoutRedis(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil, 0)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "theme", "dark"))
	value, err := svc.Get(ctx, "theme")
	require.NoError(t, err)
	require.Equal(t, "dark", value)
}
