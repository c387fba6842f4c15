package gateways

import (
	"context"
	"fmt"
	"net/http"

	"golang-ordering-backend/internal/models"
)

// CatalogGateway reads the public dish listing. The catalog itself lives in
// the upstream service; we only consume it for checkout-time id mapping.
type CatalogGateway struct {
	baseURL string
	client  *http.Client
}

func NewCatalogGateway(baseURL string) *CatalogGateway {
	return &CatalogGateway{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (g *CatalogGateway) ListDishes(ctx context.Context) ([]models.CatalogCategory, error) {
	var categories []models.CatalogCategory
	if err := doJSON(ctx, g.client, http.MethodGet, g.baseURL+"/dishes", "", nil, &categories); err != nil {
		return nil, fmt.Errorf("failed to fetch dish listing: %w", err)
	}
	return categories, nil
}
