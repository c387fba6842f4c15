package handlers

import (
	"context"
	"errors"
	"net/http"

	"golang-ordering-backend/internal/middleware"
	"golang-ordering-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkoutService CheckoutServiceInterface
	cartService     CartServiceInterface
}

func NewCheckoutHandler(checkoutService CheckoutServiceInterface, cartService CartServiceInterface) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		cartService:     cartService,
	}
}

// RegisterRoutes registers the routes for checkout
func (h *CheckoutHandler) RegisterRoutes(router *gin.RouterGroup, session *middleware.SessionMiddleware) {
	checkout := router.Group("/checkout", session.Resolve())
	{
		// Run one checkout attempt (validation, mapping, payment initiation)
		checkout.POST("", h.Checkout)
		// Gateway retry eligibility plus the local attempt record
		checkout.GET("/retry-status/:payment_id", h.RetryStatus)
		// Post-redirect confirmation; clears the cart
		checkout.POST("/confirm", h.Confirm)
	}
}

// CheckoutPayload carries the checkout form. Field presence is validated by
// the service so the UI receives the complete violation list, not the first
// binding failure.
type CheckoutPayload struct {
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	DeliveryMethod   string  `json:"delivery_method"`
	Street           string  `json:"street"`
	PostalCode       string  `json:"postal_code"`
	City             string  `json:"city"`
	AddressValidated bool    `json:"address_validated"`
	Tip              float64 `json:"tip"`
	CouponCode       string  `json:"coupon_code"`
	RetryPaymentID   string  `json:"retry_payment_id"`
}

func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var payload CheckoutPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	sess := middleware.GetSession(c)
	ctx := context.Background()

	cart, err := h.cartService.GetCart(ctx, sess)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to load cart",
			Message: err.Error(),
		})
		return
	}

	result, err := h.checkoutService.Checkout(ctx, sess, cart, &services.CheckoutRequest{
		FirstName:        payload.FirstName,
		LastName:         payload.LastName,
		Email:            payload.Email,
		Phone:            payload.Phone,
		DeliveryMethod:   payload.DeliveryMethod,
		Street:           payload.Street,
		PostalCode:       payload.PostalCode,
		City:             payload.City,
		AddressValidated: payload.AddressValidated,
		Tip:              payload.Tip,
		CouponCode:       payload.CouponCode,
		RetryPaymentID:   payload.RetryPaymentID,
	})
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":      "Validation failed",
				"violations": validationErr.Violations,
			})
			return
		}
		if errors.Is(err, services.ErrRetryLimitExceeded) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "Retry limit exceeded",
				Message: "The payment retry limit was reached. Please contact support.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Checkout failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) RetryStatus(c *gin.Context) {
	paymentID := c.Param("payment_id")
	ctx := context.Background()

	status, err := h.checkoutService.RetryStatus(ctx, paymentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to get retry status",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

type ConfirmRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
}

func (h *CheckoutHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	sess := middleware.GetSession(c)
	ctx := context.Background()

	attempt, err := h.checkoutService.Confirm(ctx, sess, req.PaymentID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Failed to confirm payment",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, attempt)
}
