package repositories

import (
	"context"

	"golang-ordering-backend/internal/models"

	"gorm.io/gorm"
)

type paymentAttemptRepository struct {
	db *gorm.DB
}

func NewPaymentAttemptRepository(db *gorm.DB) PaymentAttemptRepository {
	return &paymentAttemptRepository{db: db}
}

func (r *paymentAttemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *paymentAttemptRepository) GetByPaymentID(ctx context.Context, paymentID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *paymentAttemptRepository) Update(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Save(attempt).Error
}

func (r *paymentAttemptRepository) GetBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
