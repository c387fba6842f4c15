package handlers

import (
	"context"

	"golang-ordering-backend/internal/models"
)

// CartServiceInterface defines the cart operations the handler layer needs
type CartServiceInterface interface {
	GetCart(ctx context.Context, sess *models.Session) (models.CartState, error)
	AddItem(ctx context.Context, sess *models.Session, line models.CartLine) (models.CartState, error)
	UpdateItem(ctx context.Context, sess *models.Session, dishID string, quantity int) (models.CartState, error)
	RemoveItem(ctx context.Context, sess *models.Session, dishID string) (models.CartState, error)
	ClearCart(ctx context.Context, sess *models.Session) (models.CartState, error)
	MigrateGuestCart(ctx context.Context, sess *models.Session, guestSessionID string) (models.CartState, error)
}
