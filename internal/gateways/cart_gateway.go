package gateways

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang-ordering-backend/internal/models"
)

// CartGateway is the stateless client for the upstream service that owns
// authenticated users' carts. Every call requires the user's bearer token.
type CartGateway struct {
	baseURL string
	client  *http.Client
}

func NewCartGateway(baseURL string) *CartGateway {
	return &CartGateway{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

type remoteCartItem struct {
	DishID   string  `json:"dishId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
}

type remoteCartResponse struct {
	Items []remoteCartItem `json:"items"`
}

type addOrUpdateRequest struct {
	DishID   string `json:"dishId"`
	Quantity int    `json:"quantity"`
}

func (g *CartGateway) GetCart(ctx context.Context, token string) ([]models.CartLine, error) {
	var resp remoteCartResponse
	if err := doJSON(ctx, g.client, http.MethodGet, g.baseURL+"/cart", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch remote cart: %w", err)
	}

	lines := make([]models.CartLine, 0, len(resp.Items))
	for _, item := range resp.Items {
		lines = append(lines, models.CartLine{
			DishID:   item.DishID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: item.Quantity,
			Image:    item.Image,
		})
	}
	return lines, nil
}

// AddOrUpdate sets the absolute quantity for a dish; the server creates the
// line when it does not exist yet.
func (g *CartGateway) AddOrUpdate(ctx context.Context, token, dishID string, quantity int) error {
	body := addOrUpdateRequest{DishID: dishID, Quantity: quantity}
	if err := doJSON(ctx, g.client, http.MethodPost, g.baseURL+"/cart/add-or-update", token, body, nil); err != nil {
		return fmt.Errorf("failed to push cart line: %w", err)
	}
	return nil
}

func (g *CartGateway) Remove(ctx context.Context, token, dishID string) error {
	endpoint := g.baseURL + "/cart/remove/" + url.PathEscape(dishID)
	if err := doJSON(ctx, g.client, http.MethodDelete, endpoint, token, nil, nil); err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

func (g *CartGateway) Clear(ctx context.Context, token string) error {
	if err := doJSON(ctx, g.client, http.MethodDelete, g.baseURL+"/cart/clear", token, nil, nil); err != nil {
		return fmt.Errorf("failed to clear remote cart: %w", err)
	}
	return nil
}
