package handlers

import (
	"context"

	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/internal/services"
)

// CheckoutServiceInterface defines the checkout operations the handler layer needs
type CheckoutServiceInterface interface {
	Checkout(ctx context.Context, sess *models.Session, cart models.CartState, req *services.CheckoutRequest) (*services.CheckoutResult, error)
	Confirm(ctx context.Context, sess *models.Session, paymentID string) (*models.PaymentAttempt, error)
	RetryStatus(ctx context.Context, paymentID string) (*services.RetryStatusResult, error)
}
