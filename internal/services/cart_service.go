package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/pkg/cache"
)

// CartService owns one CartStore per session and picks the storage backend
// from the session mode: anonymous carts live in a durable guest slot,
// authenticated carts mirror the upstream cart API.
type CartService struct {
	slots   SlotStore
	cartAPI RemoteCartAPI

	mu     sync.Mutex
	stores map[string]*sessionStore
}

type sessionStore struct {
	store *CartStore
	// remote is set for authenticated sessions so the bearer token can be
	// refreshed on every request.
	remote *RemoteBackend
}

func NewCartService(slots SlotStore, cartAPI RemoteCartAPI) *CartService {
	return &CartService{
		slots:   slots,
		cartAPI: cartAPI,
		stores:  make(map[string]*sessionStore),
	}
}

func (s *CartService) storeFor(ctx context.Context, sess *models.Session) (*CartStore, error) {
	key := "guest:" + sess.ID
	if sess.Authenticated() {
		key = "user:" + sess.UserID
	}

	s.mu.Lock()
	if entry, ok := s.stores[key]; ok {
		if entry.remote != nil {
			entry.remote.UpdateToken(sess.Token)
		}
		s.mu.Unlock()
		return entry.store, nil
	}

	entry := &sessionStore{}
	if sess.Authenticated() {
		entry.remote = NewRemoteBackend(s.cartAPI, sess.Token)
		entry.store = NewCartStore(entry.remote)
	} else {
		entry.store = NewCartStore(NewLocalBackend(s.slots, sess.ID))
	}
	s.mu.Unlock()

	if _, err := entry.store.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to hydrate cart: %w", err)
	}

	s.mu.Lock()
	s.stores[key] = entry
	s.mu.Unlock()
	return entry.store, nil
}

func (s *CartService) GetCart(ctx context.Context, sess *models.Session) (models.CartState, error) {
	store, err := s.storeFor(ctx, sess)
	if err != nil {
		return models.CartState{}, err
	}
	return store.Snapshot(), nil
}

func (s *CartService) AddItem(ctx context.Context, sess *models.Session, line models.CartLine) (models.CartState, error) {
	store, err := s.storeFor(ctx, sess)
	if err != nil {
		return models.CartState{}, err
	}
	return store.AddItem(ctx, line)
}

func (s *CartService) UpdateItem(ctx context.Context, sess *models.Session, dishID string, quantity int) (models.CartState, error) {
	store, err := s.storeFor(ctx, sess)
	if err != nil {
		return models.CartState{}, err
	}
	return store.UpdateItem(ctx, dishID, quantity)
}

func (s *CartService) RemoveItem(ctx context.Context, sess *models.Session, dishID string) (models.CartState, error) {
	store, err := s.storeFor(ctx, sess)
	if err != nil {
		return models.CartState{}, err
	}
	return store.RemoveItem(ctx, dishID)
}

func (s *CartService) ClearCart(ctx context.Context, sess *models.Session) (models.CartState, error) {
	store, err := s.storeFor(ctx, sess)
	if err != nil {
		return models.CartState{}, err
	}
	return store.ClearCart(ctx)
}

// ClearSession is the checkout orchestrator's hook for emptying the cart
// after a completed order.
func (s *CartService) ClearSession(ctx context.Context, sess *models.Session) error {
	_, err := s.ClearCart(ctx, sess)
	return err
}

// MigrateGuestCart replays the lines persisted for an anonymous session
// into the authenticated cart, quantity-accumulating with whatever the
// remote cart already holds, then deletes the guest slot. Nothing happens
// implicitly at login; the caller decides when to invoke this.
func (s *CartService) MigrateGuestCart(ctx context.Context, sess *models.Session, guestSessionID string) (models.CartState, error) {
	if !sess.Authenticated() {
		return models.CartState{}, ErrAuthRequired
	}

	store, err := s.storeFor(ctx, sess)
	if err != nil {
		return models.CartState{}, err
	}

	var guest models.CartState
	err = s.slots.Get(ctx, GuestCartKey(guestSessionID), &guest)
	if errors.Is(err, cache.ErrCacheMiss) {
		return store.Snapshot(), nil
	}
	if err != nil {
		return store.Snapshot(), fmt.Errorf("failed to read guest cart: %w", err)
	}

	state := store.Snapshot()
	var syncErr error
	for _, line := range guest.Lines {
		state, err = store.AddItem(ctx, line)
		if err != nil {
			// keep replaying; a degraded sync is non-fatal, but the slot
			// must survive so the lines are not lost
			syncErr = err
		}
	}

	if syncErr != nil {
		return state, syncErr
	}

	if err := s.slots.Delete(ctx, GuestCartKey(guestSessionID)); err != nil {
		return state, &CartSyncError{Cause: err}
	}
	return state, nil
}
