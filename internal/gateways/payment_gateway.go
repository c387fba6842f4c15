package gateways

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang-ordering-backend/internal/models"
)

// ErrRetryLimitExceeded marks an initiation refused because the attempt has
// reached the gateway's retry ceiling. The gateway is authoritative for the
// ceiling; we only classify its refusal.
var ErrRetryLimitExceeded = errors.New("payment retry limit exceeded")

const retryLimitCode = "RETRY_LIMIT_EXCEEDED"

// PaymentGateway drives payment sessions. Sandbox mode completes
// synchronously through the simulate-success endpoint; production mode
// returns a hosted checkout URL instead.
type PaymentGateway struct {
	baseURL string
	client  *http.Client
}

func NewPaymentGateway(baseURL string) *PaymentGateway {
	return &PaymentGateway{
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

type InitiatePaymentRequest struct {
	Draft          models.OrderDraft `json:"order"`
	FirstName      string            `json:"firstName"`
	LastName       string            `json:"lastName"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	Street         string            `json:"street,omitempty"`
	PostalCode     string            `json:"postalCode,omitempty"`
	City           string            `json:"city,omitempty"`
	CouponCode     string            `json:"couponCode,omitempty"`
	RetryPaymentID string            `json:"retryPaymentId,omitempty"`
}

type InitiatePaymentResponse struct {
	PaymentID   string `json:"paymentId"`
	Mode        string `json:"mode"` // SANDBOX or PRODUCTION
	CheckoutURL string `json:"checkoutUrl,omitempty"`
}

type simulateSuccessRequest struct {
	PaymentID string `json:"paymentId"`
}

type simulateSuccessResponse struct {
	OrderID string `json:"orderId"`
}

type RetryStatusResponse struct {
	PaymentID  string `json:"paymentId"`
	Eligible   bool   `json:"eligible"`
	RetryCount int    `json:"retryCount"`
	MaxRetries int    `json:"maxRetries"`
	Reason     string `json:"reason,omitempty"`
}

func (g *PaymentGateway) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	var resp InitiatePaymentResponse
	err := doJSON(ctx, g.client, http.MethodPost, g.baseURL+"/payments/initiate", "", req, &resp)
	if err != nil {
		if isRetryLimit(err) {
			return nil, ErrRetryLimitExceeded
		}
		return nil, fmt.Errorf("payment initiation failed: %w", err)
	}
	return &resp, nil
}

// SimulateSuccess materializes an order for a sandbox payment and returns
// the created order id.
func (g *PaymentGateway) SimulateSuccess(ctx context.Context, paymentID string) (string, error) {
	var resp simulateSuccessResponse
	body := simulateSuccessRequest{PaymentID: paymentID}
	err := doJSON(ctx, g.client, http.MethodPost, g.baseURL+"/payments/test/simulate-success", "", body, &resp)
	if err != nil {
		return "", fmt.Errorf("sandbox completion failed: %w", err)
	}
	return resp.OrderID, nil
}

func (g *PaymentGateway) RetryStatus(ctx context.Context, paymentID string) (*RetryStatusResponse, error) {
	var resp RetryStatusResponse
	endpoint := g.baseURL + "/payments/retry-status/" + url.PathEscape(paymentID)
	if err := doJSON(ctx, g.client, http.MethodGet, endpoint, "", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch retry status: %w", err)
	}
	return &resp, nil
}

func isRetryLimit(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		if upstream.Code == retryLimitCode {
			return true
		}
		return strings.Contains(strings.ToLower(upstream.Message), "retry limit")
	}
	return false
}
