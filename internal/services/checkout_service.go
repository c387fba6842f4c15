package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"golang-ordering-backend/internal/gateways"
	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/internal/repositories"
	"golang-ordering-backend/pkg/messaging"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DeliveryMethodDelivery = "delivery"
	DeliveryMethodPickup   = "pickup"

	PaymentModeSandbox = "SANDBOX"

	defaultMaxRetries = 3

	orderEventsTopic        = "order_events"
	notificationEventsTopic = "notification_events"
)

var (
	emailPattern  = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nonDigits     = regexp.MustCompile(`\D`)
	postalPattern = regexp.MustCompile(`^\d{5}$`)
)

// PaymentAPI is the slice of the payment gateway the orchestrator drives.
// Satisfied by gateways.PaymentGateway.
type PaymentAPI interface {
	InitiatePayment(ctx context.Context, req *gateways.InitiatePaymentRequest) (*gateways.InitiatePaymentResponse, error)
	SimulateSuccess(ctx context.Context, paymentID string) (string, error)
	RetryStatus(ctx context.Context, paymentID string) (*gateways.RetryStatusResponse, error)
}

// DishResolver maps a dish name to its canonical catalog id.
type DishResolver interface {
	ResolveDishID(ctx context.Context, name string) (string, error)
}

// CartClearer empties a session's cart after a completed order.
type CartClearer interface {
	ClearSession(ctx context.Context, sess *models.Session) error
}

// EventPublisher is satisfied by messaging.KafkaProducer.
type EventPublisher interface {
	SendMessage(topic string, brokers []string, key string, value interface{}) error
}

// CheckoutService validates order preconditions, maps cart lines to catalog
// ids, and drives the payment initiate / complete / retry protocol. One
// call covers one attempt; user-initiated retries are fresh calls carrying
// the prior payment id, with the gateway enforcing the ceiling.
type CheckoutService struct {
	payments PaymentAPI
	catalog  DishResolver
	attempts repositories.PaymentAttemptRepository
	carts    CartClearer
	producer EventPublisher
	brokers  []string
}

func NewCheckoutService(
	payments PaymentAPI,
	catalog DishResolver,
	attempts repositories.PaymentAttemptRepository,
	carts CartClearer,
	producer EventPublisher,
	brokers []string,
) *CheckoutService {
	return &CheckoutService{
		payments: payments,
		catalog:  catalog,
		attempts: attempts,
		carts:    carts,
		producer: producer,
		brokers:  brokers,
	}
}

type CheckoutRequest struct {
	FirstName        string
	LastName         string
	Email            string
	Phone            string
	DeliveryMethod   string
	Street           string
	PostalCode       string
	City             string
	AddressValidated bool
	Tip              float64
	CouponCode       string
	RetryPaymentID   string
}

type CheckoutResult struct {
	PaymentID   string  `json:"payment_id"`
	OrderID     string  `json:"order_id,omitempty"`
	CheckoutURL string  `json:"checkout_url,omitempty"`
	Mode        string  `json:"mode"`
	Subtotal    float64 `json:"subtotal"`
	Total       float64 `json:"total"`
	// Degraded marks a sandbox payment that exists but whose order
	// materialization failed; support reconciles via the attempt ledger.
	Degraded bool `json:"degraded,omitempty"`
}

type RetryStatusResult struct {
	Gateway *gateways.RetryStatusResponse `json:"gateway"`
	Attempt *models.PaymentAttempt        `json:"attempt,omitempty"`
}

// Checkout runs one attempt: Validating -> Mapping -> Initiating ->
// sandbox completion or hosted-checkout redirect.
func (s *CheckoutService) Checkout(ctx context.Context, sess *models.Session, cart models.CartState, req *CheckoutRequest) (*CheckoutResult, error) {
	if violations := validateCheckout(cart, req); len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	draft := s.buildDraft(ctx, cart, req)

	resp, err := s.payments.InitiatePayment(ctx, &gateways.InitiatePaymentRequest{
		Draft:          draft,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Street:         req.Street,
		PostalCode:     req.PostalCode,
		City:           req.City,
		CouponCode:     req.CouponCode,
		RetryPaymentID: req.RetryPaymentID,
	})
	if err != nil {
		s.recordFailure(ctx, req.RetryPaymentID, err)
		if errors.Is(err, ErrRetryLimitExceeded) {
			s.publishRetryExhausted(sess, req.RetryPaymentID)
			return nil, ErrRetryLimitExceeded
		}
		return nil, fmt.Errorf("payment initiation failed: %w", err)
	}

	attempt := s.recordAttempt(ctx, sess, resp, draft, req)
	result := &CheckoutResult{
		PaymentID: resp.PaymentID,
		Mode:      resp.Mode,
		Subtotal:  draft.Subtotal,
		Total:     draft.Total,
	}

	if strings.EqualFold(resp.Mode, PaymentModeSandbox) {
		s.completeSandbox(ctx, sess, attempt, result)
	} else {
		// hosted checkout: hand the URL back and keep the cart intact so
		// an abandoned payment can be retried; Confirm clears it later
		result.CheckoutURL = resp.CheckoutURL
		s.updateAttempt(ctx, attempt, models.AttemptStatusRedirect)
	}

	return result, nil
}

func (s *CheckoutService) completeSandbox(ctx context.Context, sess *models.Session, attempt *models.PaymentAttempt, result *CheckoutResult) {
	orderID, err := s.payments.SimulateSuccess(ctx, result.PaymentID)
	if err != nil {
		// the payment exists, so the attempt still counts as a success;
		// only the order id is missing
		log.Printf("Sandbox completion failed for payment %s: %v", result.PaymentID, err)
		result.Degraded = true
		if attempt != nil {
			attempt.LastFailureReason = err.Error()
		}
		s.updateAttempt(ctx, attempt, models.AttemptStatusDegraded)
	} else {
		result.OrderID = orderID
		if attempt != nil {
			attempt.OrderID = orderID
		}
		s.updateAttempt(ctx, attempt, models.AttemptStatusCompleted)
	}

	if err := s.carts.ClearSession(ctx, sess); err != nil {
		log.Printf("Warning: cart clear after checkout failed for session %s: %v", sess.ID, err)
	}

	s.producer.SendMessage(orderEventsTopic, s.brokers, result.PaymentID, messaging.OrderEvent{
		Type:      "ORDER_PLACED",
		PaymentID: result.PaymentID,
		OrderID:   result.OrderID,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Total:     result.Total,
	})
}

// Confirm is the explicit post-redirect step that marks a hosted-checkout
// attempt paid and clears the session's cart.
func (s *CheckoutService) Confirm(ctx context.Context, sess *models.Session, paymentID string) (*models.PaymentAttempt, error) {
	attempt, err := s.attempts.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("unknown payment attempt %s: %w", paymentID, err)
	}

	attempt.Status = models.AttemptStatusConfirmed
	if err := s.attempts.Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to confirm payment attempt: %w", err)
	}

	if err := s.carts.ClearSession(ctx, sess); err != nil {
		log.Printf("Warning: cart clear after confirmation failed for session %s: %v", sess.ID, err)
	}

	s.producer.SendMessage(orderEventsTopic, s.brokers, attempt.PaymentID, messaging.OrderEvent{
		Type:      "ORDER_CONFIRMED",
		PaymentID: attempt.PaymentID,
		OrderID:   attempt.OrderID,
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Total:     attempt.Total,
	})

	return attempt, nil
}

// RetryStatus combines the gateway's authoritative eligibility with the
// local attempt row.
func (s *CheckoutService) RetryStatus(ctx context.Context, paymentID string) (*RetryStatusResult, error) {
	status, err := s.payments.RetryStatus(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	result := &RetryStatusResult{Gateway: status}
	if attempt, err := s.attempts.GetByPaymentID(ctx, paymentID); err == nil {
		result.Attempt = attempt
	}
	return result, nil
}

// Validate exposes the precondition check on its own so the UI can pre-
// flight a form without initiating payment.
func (s *CheckoutService) Validate(cart models.CartState, req *CheckoutRequest) []string {
	return validateCheckout(cart, req)
}

// validateCheckout collects every violation in order instead of stopping at
// the first, so the UI can render the complete list before any network call.
func validateCheckout(cart models.CartState, req *CheckoutRequest) []string {
	var violations []string

	if cart.Empty() {
		violations = append(violations, "cart is empty")
	}
	if strings.TrimSpace(req.FirstName) == "" {
		violations = append(violations, "first name is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		violations = append(violations, "last name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		violations = append(violations, "email is required")
	} else if !emailPattern.MatchString(req.Email) {
		violations = append(violations, "email is invalid")
	}
	digits := nonDigits.ReplaceAllString(req.Phone, "")
	if digits == "" {
		violations = append(violations, "phone is required")
	} else if len(digits) < 10 || len(digits) > 15 {
		violations = append(violations, "phone must contain 10 to 15 digits")
	}

	if req.DeliveryMethod == DeliveryMethodDelivery {
		if len(strings.TrimSpace(req.Street)) < 3 {
			violations = append(violations, "street must be at least 3 characters")
		}
		if !postalPattern.MatchString(req.PostalCode) {
			violations = append(violations, "postal code must be 5 digits")
		}
		if strings.TrimSpace(req.City) == "" {
			violations = append(violations, "city is required")
		}
		if !req.AddressValidated {
			violations = append(violations, "delivery address is not validated")
		}
	}

	return violations
}

// buildDraft maps cart lines to order items and computes totals. A catalog
// miss falls back to the line's own id; mapping never aborts a checkout.
func (s *CheckoutService) buildDraft(ctx context.Context, cart models.CartState, req *CheckoutRequest) models.OrderDraft {
	items := make([]models.OrderDraftItem, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		catalogID, err := s.catalog.ResolveDishID(ctx, line.Name)
		if err != nil {
			catalogID = line.DishID
		}
		items = append(items, models.OrderDraftItem{
			CatalogID: catalogID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
		})
	}

	subtotal := cart.Subtotal()
	return models.OrderDraft{
		Items:          items,
		Subtotal:       subtotal,
		Tip:            req.Tip,
		Total:          subtotal + req.Tip,
		DeliveryMethod: req.DeliveryMethod,
	}
}

// recordAttempt writes the ledger row for this initiation. A retried
// attempt resumes the same payment id, so the existing row is bumped
// instead of inserting a duplicate. Ledger failures are logged, never
// propagated; the payment already exists at this point.
func (s *CheckoutService) recordAttempt(ctx context.Context, sess *models.Session, resp *gateways.InitiatePaymentResponse, draft models.OrderDraft, req *CheckoutRequest) *models.PaymentAttempt {
	if req.RetryPaymentID != "" {
		attempt, err := s.attempts.GetByPaymentID(ctx, resp.PaymentID)
		if err == nil {
			attempt.RetryCount++
			attempt.Status = models.AttemptStatusInitiated
			attempt.LastFailureReason = ""
			if err := s.attempts.Update(ctx, attempt); err != nil {
				log.Printf("Warning: failed to bump payment attempt %s: %v", resp.PaymentID, err)
			}
			return attempt
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Warning: failed to load payment attempt %s: %v", resp.PaymentID, err)
		}
	}

	attempt := &models.PaymentAttempt{
		ID:         uuid.New(),
		PaymentID:  resp.PaymentID,
		Mode:       resp.Mode,
		Status:     models.AttemptStatusInitiated,
		MaxRetries: defaultMaxRetries,
		SessionID:  sess.ID,
		UserID:     sess.UserID,
		Subtotal:   draft.Subtotal,
		Tip:        draft.Tip,
		Total:      draft.Total,
		CouponCode: req.CouponCode,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		log.Printf("Warning: failed to record payment attempt %s: %v", resp.PaymentID, err)
	}
	return attempt
}

func (s *CheckoutService) updateAttempt(ctx context.Context, attempt *models.PaymentAttempt, status string) {
	if attempt == nil {
		return
	}
	attempt.Status = status
	if err := s.attempts.Update(ctx, attempt); err != nil {
		log.Printf("Warning: failed to update payment attempt %s: %v", attempt.PaymentID, err)
	}
}

func (s *CheckoutService) recordFailure(ctx context.Context, retryPaymentID string, cause error) {
	if retryPaymentID == "" {
		return
	}
	attempt, err := s.attempts.GetByPaymentID(ctx, retryPaymentID)
	if err != nil {
		return
	}
	attempt.Status = models.AttemptStatusFailed
	attempt.LastFailureReason = cause.Error()
	if err := s.attempts.Update(ctx, attempt); err != nil {
		log.Printf("Warning: failed to record payment failure %s: %v", retryPaymentID, err)
	}
}

func (s *CheckoutService) publishRetryExhausted(sess *models.Session, paymentID string) {
	s.producer.SendMessage(notificationEventsTopic, s.brokers, sess.ID, messaging.NotificationEvent{
		Type:    "PAYMENT_RETRY_EXHAUSTED",
		UserID:  sess.UserID,
		Title:   "Payment could not be completed",
		Message: "The payment retry limit was reached. Please contact support.",
		Metadata: map[string]interface{}{
			"payment_id": paymentID,
		},
	})
}
