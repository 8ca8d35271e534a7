package cachemanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockCacheManager is a testify mock of CacheManager.
type mockCacheManager[K ~string, V any] struct {
	mock.Mock
}

func (m *mockCacheManager[K, V]) Get(ctx context.Context, key K) (V, bool) {
	args := m.Called(ctx, key)
	return args.Get(0).(V), args.Bool(1)
}

func (m *mockCacheManager[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *mockCacheManager[K, V]) Delete(ctx context.Context, keys ...K) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockCacheManager[K, V]) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockCacheManager[K, V]) Stats() Stats {
	return m.Called().Get(0).(Stats)
}

type pairInput struct {
	imp, exp string
}

func TestReadThroughCache_SkipCacheCallsLoader(t *testing.T) {
	managerMock := &mockCacheManager[pairKey, bool]{}
	calls := 0

	rt := NewReadThroughCache[pairKey, bool, pairInput](
		managerMock,
		func(ctx context.Context, in pairInput) (bool, error) {
			calls++
			return in.imp == in.exp, nil
		},
		true,
	)

	got, err := rt.Get(context.Background(), "k", pairInput{imp: "a", exp: "a"}, time.Minute)
	require.NoError(t, err)
	require.True(t, got)
	require.Equal(t, 1, calls)
	managerMock.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestReadThroughCache_Hit(t *testing.T) {
	managerMock := &mockCacheManager[pairKey, bool]{}
	managerMock.On("Get", mock.Anything, pairKey("k")).Return(true, true).Once()

	rt := NewReadThroughCache[pairKey, bool, pairInput](
		managerMock,
		func(ctx context.Context, in pairInput) (bool, error) {
			t.Fatal("loader must not run on a hit")
			return false, nil
		},
		false,
	)

	got, err := rt.Get(context.Background(), "k", pairInput{}, time.Minute)
	require.NoError(t, err)
	require.True(t, got)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_MissStoresValue(t *testing.T) {
	managerMock := &mockCacheManager[pairKey, bool]{}
	managerMock.On("Get", mock.Anything, pairKey("k")).Return(false, false).Once()
	managerMock.On("Set", mock.Anything, pairKey("k"), false, time.Minute).Once()

	rt := NewReadThroughCache[pairKey, bool, pairInput](
		managerMock,
		func(ctx context.Context, in pairInput) (bool, error) {
			return false, nil
		},
		false,
	)

	got, err := rt.Get(context.Background(), "k", pairInput{}, time.Minute)
	require.NoError(t, err)
	require.False(t, got)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_LoaderErrorNotCached(t *testing.T) {
	managerMock := &mockCacheManager[pairKey, bool]{}
	managerMock.On("Get", mock.Anything, pairKey("k")).Return(false, false).Once()

	loadErr := errors.New("unknown type")
	rt := NewReadThroughCache[pairKey, bool, pairInput](
		managerMock,
		func(ctx context.Context, in pairInput) (bool, error) {
			return false, loadErr
		},
		false,
	)

	_, err := rt.Get(context.Background(), "k", pairInput{}, time.Minute)
	require.ErrorIs(t, err, loadErr)
	managerMock.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_InvalidateWithRealCache(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[pairKey, bool]("acceptance", DefaultExpiration, DefaultCleanupInterval)
	calls := 0
	rt := NewReadThroughCache[pairKey, bool, pairInput](
		cache,
		func(ctx context.Context, in pairInput) (bool, error) {
			calls++
			return true, nil
		},
		false,
	)

	for i := 0; i < 3; i++ {
		_, err := rt.Get(ctx, "k", pairInput{}, 0)
		require.NoError(t, err)
	}
	require.Equal(t, 1, calls)
	require.Equal(t, uint64(2), rt.Stats().Hits)

	require.NoError(t, rt.Invalidate(ctx))
	_, err := rt.Get(ctx, "k", pairInput{}, 0)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestReadThroughCache_InvalidateDuringLoadDropsValue(t *testing.T) {
	managerMock := &mockCacheManager[pairKey, bool]{}
	managerMock.On("Get", mock.Anything, pairKey("k")).Return(false, false).Once()
	managerMock.On("Flush", mock.Anything).Return(nil).Once()

	var rt *ReadThroughCache[pairKey, bool, pairInput]
	rt = NewReadThroughCache[pairKey, bool, pairInput](
		managerMock,
		func(ctx context.Context, in pairInput) (bool, error) {
			require.NoError(t, rt.Invalidate(ctx))
			return true, nil
		},
		false,
	)

	got, err := rt.Get(context.Background(), "k", pairInput{}, time.Minute)
	require.NoError(t, err)
	require.True(t, got, "the caller still receives the loaded value")
	managerMock.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_StaleLoadNotServedAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[pairKey, bool]("acceptance", DefaultExpiration, DefaultCleanupInterval)
	accepted := true
	mutate := false

	var rt *ReadThroughCache[pairKey, bool, pairInput]
	rt = NewReadThroughCache[pairKey, bool, pairInput](
		cache,
		func(ctx context.Context, in pairInput) (bool, error) {
			decision := accepted
			if mutate {
				// the state changes after the decision was computed
				mutate = false
				accepted = false
				require.NoError(t, rt.Invalidate(ctx))
			}
			return decision, nil
		},
		false,
	)

	mutate = true
	got, err := rt.Get(ctx, "k", pairInput{}, 0)
	require.NoError(t, err)
	require.True(t, got)

	got, err = rt.Get(ctx, "k", pairInput{}, 0)
	require.NoError(t, err)
	require.False(t, got, "the decision from before the mutation was not cached")
	require.Equal(t, 1, cache.Stats().Items)
}
