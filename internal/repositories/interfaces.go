package repositories

import (
	"context"

	"golang-ordering-backend/internal/models"
)

// PaymentAttemptRepository persists the ledger of payment initiations. The
// gateway's payment id is the lookup key; retried attempts update the same
// row instead of creating a new one.
type PaymentAttemptRepository interface {
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	GetByPaymentID(ctx context.Context, paymentID string) (*models.PaymentAttempt, error)
	Update(ctx context.Context, attempt *models.PaymentAttempt) error
	GetBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]models.PaymentAttempt, error)
}
