package services

import (
	"context"
	"errors"
	"time"

	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/pkg/cache"
)

// MutationKind identifies which cart operation a backend must persist.
type MutationKind int

const (
	MutationAdd MutationKind = iota
	MutationSet
	MutationRemove
	MutationClear
)

// CartMutation describes a single confirmed store mutation. Quantity is the
// absolute quantity after the optimistic apply, so remote add-or-update
// calls are idempotent.
type CartMutation struct {
	Kind     MutationKind
	DishID   string
	Quantity int
}

// CartBackend is the storage strategy behind a cart store. Persist pushes a
// mutation (with the optimistic snapshot for whole-state backends); Fetch
// returns the authoritative state used to reconcile the snapshot.
type CartBackend interface {
	Persist(ctx context.Context, snapshot models.CartState, m CartMutation) error
	Fetch(ctx context.Context) (models.CartState, error)
}

// SlotStore is the durable key-value surface the anonymous backend writes
// to. Satisfied by cache.RedisCache.
type SlotStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

const guestCartSlotPrefix = "guest_cart:"

// GuestCartKey names the slot holding an anonymous session's cart.
func GuestCartKey(sessionID string) string {
	return guestCartSlotPrefix + sessionID
}

// LocalBackend serializes the whole cart into one durable slot per guest
// session. An empty cart deletes the slot instead of storing an empty
// structure, so a stale empty cart can never be resurrected.
type LocalBackend struct {
	slots SlotStore
	key   string
}

func NewLocalBackend(slots SlotStore, sessionID string) *LocalBackend {
	return &LocalBackend{
		slots: slots,
		key:   GuestCartKey(sessionID),
	}
}

func (b *LocalBackend) Persist(ctx context.Context, snapshot models.CartState, m CartMutation) error {
	if snapshot.Empty() {
		return b.slots.Delete(ctx, b.key)
	}
	return b.slots.Set(ctx, b.key, snapshot, 0)
}

func (b *LocalBackend) Fetch(ctx context.Context) (models.CartState, error) {
	var state models.CartState
	err := b.slots.Get(ctx, b.key, &state)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.CartState{}, nil
	}
	if err != nil {
		return models.CartState{}, err
	}
	return state, nil
}

// RemoteCartAPI is the slice of the upstream cart gateway the remote
// backend needs. Satisfied by gateways.CartGateway.
type RemoteCartAPI interface {
	GetCart(ctx context.Context, token string) ([]models.CartLine, error)
	AddOrUpdate(ctx context.Context, token, dishID string, quantity int) error
	Remove(ctx context.Context, token, dishID string) error
	Clear(ctx context.Context, token string) error
}

// RemoteBackend issues one upstream call per mutation and treats the
// server's cart as the source of truth on every Fetch.
type RemoteBackend struct {
	api   RemoteCartAPI
	token string
}

func NewRemoteBackend(api RemoteCartAPI, token string) *RemoteBackend {
	return &RemoteBackend{api: api, token: token}
}

// UpdateToken swaps in the bearer token of the current request; the token
// rotates while the session (and its store) lives on.
func (b *RemoteBackend) UpdateToken(token string) {
	b.token = token
}

func (b *RemoteBackend) Persist(ctx context.Context, snapshot models.CartState, m CartMutation) error {
	switch m.Kind {
	case MutationAdd, MutationSet:
		return b.api.AddOrUpdate(ctx, b.token, m.DishID, m.Quantity)
	case MutationRemove:
		return b.api.Remove(ctx, b.token, m.DishID)
	case MutationClear:
		return b.api.Clear(ctx, b.token)
	}
	return nil
}

func (b *RemoteBackend) Fetch(ctx context.Context) (models.CartState, error) {
	lines, err := b.api.GetCart(ctx, b.token)
	if err != nil {
		return models.CartState{}, err
	}
	return models.CartState{Lines: lines}, nil
}
