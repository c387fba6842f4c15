package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionMode tells the cart layer which storage backend owns the session's
// cart. It is derived per request, never stored.
type SessionMode string

const (
	ModeAnonymous     SessionMode = "anonymous"
	ModeAuthenticated SessionMode = "authenticated"
)

// Session is the per-request identity the middleware hands to the services.
// Anonymous sessions carry a guest id; authenticated sessions carry the
// user id plus the bearer token forwarded to the upstream cart API.
type Session struct {
	ID     string
	Mode   SessionMode
	UserID string
	Token  string
}

func (s *Session) Authenticated() bool {
	return s.Mode == ModeAuthenticated
}

// CartLine is one dish and its quantity within a cart. Invariant: at most
// one line per dish id, quantity always >= 1 (a line never stores zero).
type CartLine struct {
	DishID   string  `json:"dish_id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
}

// CartState is the cart snapshot owned by the cart store. Callers always
// receive copies; mutating a snapshot never touches store state.
type CartState struct {
	Lines []CartLine `json:"lines"`
}

func (c CartState) Clone() CartState {
	out := CartState{}
	if c.Lines != nil {
		out.Lines = make([]CartLine, len(c.Lines))
		copy(out.Lines, c.Lines)
	}
	return out
}

func (c CartState) Empty() bool {
	return len(c.Lines) == 0
}

func (c CartState) Subtotal() float64 {
	var total float64
	for _, line := range c.Lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// Find returns the index of the line with the given dish id, or -1.
func (c CartState) Find(dishID string) int {
	for i, line := range c.Lines {
		if line.DishID == dishID {
			return i
		}
	}
	return -1
}

// CatalogDish is one entry of the upstream dish listing, flattened.
type CatalogDish struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
}

// CatalogCategory mirrors the grouped shape of the upstream listing.
type CatalogCategory struct {
	Category string        `json:"category"`
	Dishes   []CatalogDish `json:"dishes"`
}

// OrderDraft is built fresh on each checkout attempt from the cart snapshot
// plus the checkout form; it is never persisted on its own.
type OrderDraft struct {
	Items          []OrderDraftItem `json:"items"`
	Subtotal       float64          `json:"subtotal"`
	Tip            float64          `json:"tip"`
	Total          float64          `json:"total"`
	DeliveryMethod string           `json:"delivery_method"`
}

type OrderDraftItem struct {
	CatalogID string  `json:"catalog_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Payment attempt statuses.
const (
	AttemptStatusInitiated = "initiated"
	AttemptStatusCompleted = "completed"
	AttemptStatusDegraded  = "degraded" // payment exists, order creation failed
	AttemptStatusRedirect  = "redirect" // hosted checkout pending confirmation
	AttemptStatusConfirmed = "confirmed"
	AttemptStatusFailed    = "failed"
)

// PaymentAttempt model - PostgreSQL (join table between our sessions and the
// payment gateway; payment_id is the key used to resume a failed attempt)
type PaymentAttempt struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentID         string    `gorm:"uniqueIndex;not null" json:"payment_id"`
	Mode              string    `gorm:"not null" json:"mode"` // SANDBOX, PRODUCTION
	Status            string    `gorm:"default:initiated" json:"status"`
	RetryCount        int       `gorm:"default:0" json:"retry_count"`
	MaxRetries        int       `gorm:"default:3" json:"max_retries"`
	LastFailureReason string    `json:"last_failure_reason,omitempty"`
	OrderID           string    `json:"order_id,omitempty"`
	SessionID         string    `gorm:"index" json:"session_id"`
	UserID            string    `json:"user_id,omitempty"`
	Subtotal          float64   `json:"subtotal"`
	Tip               float64   `json:"tip"`
	Total             float64   `json:"total"`
	CouponCode        string    `json:"coupon_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
