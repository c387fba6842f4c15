package services

import (
	"context"
	"strings"
	"time"

	"golang-ordering-backend/internal/models"
)

const (
	catalogCacheKey = "catalog:dishes"
	catalogCacheTTL = 5 * time.Minute
)

// CatalogLister is the slice of the dish-listing gateway the catalog
// service needs. Satisfied by gateways.CatalogGateway.
type CatalogLister interface {
	ListDishes(ctx context.Context) ([]models.CatalogCategory, error)
}

// CatalogService resolves dish names to canonical catalog ids at checkout
// time. The flattened listing is cached briefly so mapping a whole cart
// costs one upstream fetch at most.
type CatalogService struct {
	lister CatalogLister
	cache  SlotStore
}

func NewCatalogService(lister CatalogLister, cache SlotStore) *CatalogService {
	return &CatalogService{
		lister: lister,
		cache:  cache,
	}
}

func (s *CatalogService) Dishes(ctx context.Context) ([]models.CatalogDish, error) {
	var cached []models.CatalogDish
	if err := s.cache.Get(ctx, catalogCacheKey, &cached); err == nil {
		return cached, nil
	}

	categories, err := s.lister.ListDishes(ctx)
	if err != nil {
		return nil, err
	}

	var dishes []models.CatalogDish
	for _, category := range categories {
		dishes = append(dishes, category.Dishes...)
	}

	// best effort; a cold cache just means another fetch
	s.cache.Set(ctx, catalogCacheKey, dishes, catalogCacheTTL)

	return dishes, nil
}

// ResolveDishID matches a dish name case-insensitively against the listing
// and returns the canonical id. Returns ErrDishNotFound on a miss; callers
// degrade to the cart line's own id.
func (s *CatalogService) ResolveDishID(ctx context.Context, name string) (string, error) {
	dishes, err := s.Dishes(ctx)
	if err != nil {
		return "", err
	}

	for _, dish := range dishes {
		if strings.EqualFold(dish.Name, name) {
			return dish.ID, nil
		}
	}
	return "", ErrDishNotFound
}
