package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dishCacheStore is an in-memory SlotStore for the catalog listing cache.
type dishCacheStore struct {
	dishes []models.CatalogDish
	warm   bool
	sets   int
}

func (d *dishCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	if !d.warm {
		return cache.ErrCacheMiss
	}
	*dest.(*[]models.CatalogDish) = d.dishes
	return nil
}

func (d *dishCacheStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	d.dishes = value.([]models.CatalogDish)
	d.warm = true
	d.sets++
	return nil
}

func (d *dishCacheStore) Delete(ctx context.Context, key string) error {
	d.warm = false
	d.dishes = nil
	return nil
}

type fakeCatalogLister struct {
	categories []models.CatalogCategory
	err        error
	calls      int
}

func (f *fakeCatalogLister) ListDishes(ctx context.Context) ([]models.CatalogCategory, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.categories, nil
}

func menuFixture() []models.CatalogCategory {
	return []models.CatalogCategory{
		{Category: "Mains", Dishes: []models.CatalogDish{
			{ID: "cat-7", Name: "Butter Chicken", Price: 12.5},
			{ID: "cat-8", Name: "Palak Paneer", Price: 11},
		}},
		{Category: "Sides", Dishes: []models.CatalogDish{
			{ID: "cat-21", Name: "Garlic Naan", Price: 3.5},
		}},
	}
}

func TestDishesFlattensCategoriesAndCaches(t *testing.T) {
	lister := &fakeCatalogLister{categories: menuFixture()}
	store := &dishCacheStore{}
	svc := NewCatalogService(lister, store)

	dishes, err := svc.Dishes(context.Background())
	require.NoError(t, err)
	require.Len(t, dishes, 3)
	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, 1, store.sets)

	// second call is served from cache
	dishes, err = svc.Dishes(context.Background())
	require.NoError(t, err)
	require.Len(t, dishes, 3)
	assert.Equal(t, 1, lister.calls)
}

func TestResolveDishIDIsCaseInsensitive(t *testing.T) {
	svc := NewCatalogService(&fakeCatalogLister{categories: menuFixture()}, &dishCacheStore{})

	id, err := svc.ResolveDishID(context.Background(), "butter chicken")
	require.NoError(t, err)
	assert.Equal(t, "cat-7", id)

	id, err = svc.ResolveDishID(context.Background(), "GARLIC NAAN")
	require.NoError(t, err)
	assert.Equal(t, "cat-21", id)
}

func TestResolveDishIDMiss(t *testing.T) {
	svc := NewCatalogService(&fakeCatalogLister{categories: menuFixture()}, &dishCacheStore{})

	_, err := svc.ResolveDishID(context.Background(), "Pizza")
	assert.ErrorIs(t, err, ErrDishNotFound)
}

func TestDishesPropagatesUpstreamError(t *testing.T) {
	lister := &fakeCatalogLister{err: errors.New("upstream down")}
	svc := NewCatalogService(lister, &dishCacheStore{})

	_, err := svc.Dishes(context.Background())
	assert.Error(t, err)

	_, err = svc.ResolveDishID(context.Background(), "Butter Chicken")
	assert.Error(t, err)
}
