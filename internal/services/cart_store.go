package services

import (
	"context"
	"sync"

	"golang-ordering-backend/internal/models"
)

// CartStore owns one session's cart state. Mutations apply optimistically
// to the in-memory snapshot (so readers see the change before any network
// round-trip), then persist through the backend, then reconcile against the
// backend's authoritative state. Failed syncs never roll the snapshot back;
// the last known-good state stands and the caller gets a CartSyncError.
//
// The mutex only guards snapshot install and read. It is released across
// backend calls, so two overlapping mutations reconcile last-write-wins;
// the UI is expected to issue one mutation at a time.
type CartStore struct {
	backend CartBackend

	mu      sync.Mutex
	state   models.CartState
	subs    map[int]func(models.CartState)
	nextSub int
}

func NewCartStore(backend CartBackend) *CartStore {
	return &CartStore{
		backend: backend,
		subs:    make(map[int]func(models.CartState)),
	}
}

// Load hydrates the snapshot from the backend. Called once when the session
// first touches its cart.
func (s *CartStore) Load(ctx context.Context) (models.CartState, error) {
	state, err := s.backend.Fetch(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	return s.install(state), nil
}

// Snapshot returns a copy of the current state; mutating it never affects
// the store.
func (s *CartStore) Snapshot() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers an observer invoked with every installed snapshot.
// The returned function unsubscribes.
func (s *CartStore) Subscribe(fn func(models.CartState)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// AddItem accumulates quantity onto an existing line with the same dish id,
// or appends a new line.
func (s *CartStore) AddItem(ctx context.Context, line models.CartLine) (models.CartState, error) {
	if line.Quantity < 1 {
		return s.Snapshot(), ErrInvalidQuantity
	}

	m := CartMutation{Kind: MutationAdd, DishID: line.DishID}
	return s.mutate(ctx, func(state *models.CartState) bool {
		if i := state.Find(line.DishID); i >= 0 {
			state.Lines[i].Quantity += line.Quantity
			m.Quantity = state.Lines[i].Quantity
		} else {
			state.Lines = append(state.Lines, line)
			m.Quantity = line.Quantity
		}
		return true
	}, &m)
}

// UpdateItem sets the absolute quantity of an existing line. A quantity
// below 1 is rejected; an absent dish id is a no-op without a backend call,
// so a stale update cannot resurrect a removed line.
func (s *CartStore) UpdateItem(ctx context.Context, dishID string, quantity int) (models.CartState, error) {
	if quantity < 1 {
		return s.Snapshot(), ErrInvalidQuantity
	}

	m := CartMutation{Kind: MutationSet, DishID: dishID, Quantity: quantity}
	return s.mutate(ctx, func(state *models.CartState) bool {
		i := state.Find(dishID)
		if i < 0 {
			return false
		}
		state.Lines[i].Quantity = quantity
		return true
	}, &m)
}

// RemoveItem deletes the line if present; removing an absent id is a no-op,
// not an error.
func (s *CartStore) RemoveItem(ctx context.Context, dishID string) (models.CartState, error) {
	m := CartMutation{Kind: MutationRemove, DishID: dishID}
	return s.mutate(ctx, func(state *models.CartState) bool {
		i := state.Find(dishID)
		if i < 0 {
			return false
		}
		state.Lines = append(state.Lines[:i], state.Lines[i+1:]...)
		return true
	}, &m)
}

// ClearCart empties the cart unconditionally.
func (s *CartStore) ClearCart(ctx context.Context) (models.CartState, error) {
	m := CartMutation{Kind: MutationClear}
	return s.mutate(ctx, func(state *models.CartState) bool {
		state.Lines = nil
		return true
	}, &m)
}

// mutate runs the optimistic-update / persist / reconcile sequence. The
// optimistic snapshot is installed and observers notified before the
// backend call; the reconciling fetch always runs afterwards, even when the
// persist failed, and the authoritative result supersedes the guess.
func (s *CartStore) mutate(ctx context.Context, apply func(*models.CartState) bool, m *CartMutation) (models.CartState, error) {
	s.mu.Lock()
	if !apply(&s.state) {
		snap := s.state.Clone()
		s.mu.Unlock()
		return snap, nil
	}
	snap := s.state.Clone()
	s.mu.Unlock()
	s.notify(snap)

	pushErr := s.backend.Persist(ctx, snap, *m)

	authoritative, fetchErr := s.backend.Fetch(ctx)
	if fetchErr == nil {
		snap = s.install(authoritative)
	}

	if pushErr != nil {
		return snap, &CartSyncError{Cause: pushErr}
	}
	if fetchErr != nil {
		return snap, &CartSyncError{Cause: fetchErr}
	}
	return snap, nil
}

func (s *CartStore) install(state models.CartState) models.CartState {
	s.mu.Lock()
	s.state = state.Clone()
	snap := s.state.Clone()
	s.mu.Unlock()
	s.notify(snap)
	return snap
}

func (s *CartStore) notify(snap models.CartState) {
	s.mu.Lock()
	fns := make([]func(models.CartState), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap.Clone())
	}
}
