package handlers

import (
	"context"
	"errors"
	"net/http"

	"golang-ordering-backend/internal/middleware"
	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type CartHandler struct {
	cartService CartServiceInterface
}

func NewCartHandler(cartService CartServiceInterface) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// RegisterRoutes registers the routes for cart management
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup, session *middleware.SessionMiddleware) {
	cart := router.Group("/cart", session.Resolve())
	{
		// Get the session's cart
		cart.GET("", h.GetCart)
		// Add item to cart
		cart.POST("/items", h.AddItem)
		// Update cart item quantity
		cart.PUT("/items/:dish_id", h.UpdateItem)
		// Remove item from cart
		cart.DELETE("/items/:dish_id", h.RemoveItem)
		// Clear cart
		cart.DELETE("", h.ClearCart)
		// Replay a guest cart into the authenticated cart after login
		cart.POST("/migrate", session.AuthRequired(), h.MigrateGuestCart)
	}
}

// CartViewResponse is the cart snapshot handed to the UI. Warning is set
// when the mutation landed in memory but could not be fully synced; the
// state shown is still the last known-good cart.
type CartViewResponse struct {
	Items    []models.CartLine `json:"items"`
	Subtotal float64           `json:"subtotal"`
	Warning  string            `json:"warning,omitempty"`
}

func newCartView(state models.CartState) CartViewResponse {
	items := state.Lines
	if items == nil {
		items = []models.CartLine{}
	}
	return CartViewResponse{
		Items:    items,
		Subtotal: state.Subtotal(),
	}
}

// respondCartState maps a cart operation outcome to HTTP: a degraded sync
// is a 200 with a warning, everything else fails the request.
func respondCartState(c *gin.Context, state models.CartState, err error) {
	if err == nil {
		c.JSON(http.StatusOK, newCartView(state))
		return
	}

	var syncErr *services.CartSyncError
	if errors.As(err, &syncErr) {
		view := newCartView(state)
		view.Warning = "cart could not be synced; showing last known state"
		c.JSON(http.StatusOK, view)
		return
	}

	if errors.Is(err, services.ErrInvalidQuantity) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid quantity",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "Cart operation failed",
		Message: err.Error(),
	})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	sess := middleware.GetSession(c)
	ctx := context.Background()

	state, err := h.cartService.GetCart(ctx, sess)
	respondCartState(c, state, err)
}

type AddItemRequest struct {
	DishID   string  `json:"dish_id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"gte=0"`
	Quantity int     `json:"quantity" binding:"required,min=1"`
	Image    string  `json:"image"`
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	sess := middleware.GetSession(c)
	ctx := context.Background()

	state, err := h.cartService.AddItem(ctx, sess, models.CartLine{
		DishID:   req.DishID,
		Name:     req.Name,
		Price:    req.Price,
		Quantity: req.Quantity,
		Image:    req.Image,
	})
	respondCartState(c, state, err)
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	dishID := c.Param("dish_id")

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	sess := middleware.GetSession(c)
	ctx := context.Background()

	state, err := h.cartService.UpdateItem(ctx, sess, dishID, req.Quantity)
	respondCartState(c, state, err)
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	dishID := c.Param("dish_id")

	sess := middleware.GetSession(c)
	ctx := context.Background()

	state, err := h.cartService.RemoveItem(ctx, sess, dishID)
	respondCartState(c, state, err)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	sess := middleware.GetSession(c)
	ctx := context.Background()

	state, err := h.cartService.ClearCart(ctx, sess)
	respondCartState(c, state, err)
}

type MigrateCartRequest struct {
	GuestSessionID string `json:"guest_session_id" binding:"required"`
}

func (h *CartHandler) MigrateGuestCart(c *gin.Context) {
	var req MigrateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	sess := middleware.GetSession(c)
	ctx := context.Background()

	state, err := h.cartService.MigrateGuestCart(ctx, sess, req.GuestSessionID)
	if errors.Is(err, services.ErrAuthRequired) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Authentication required",
			Message: err.Error(),
		})
		return
	}
	respondCartState(c, state, err)
}
