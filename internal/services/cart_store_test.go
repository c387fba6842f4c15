package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-ordering-backend/internal/models"
	"golang-ordering-backend/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySlotStore is an in-memory SlotStore for exercising the local backend.
type memorySlotStore struct {
	data map[string]models.CartState
}

func newMemorySlotStore() *memorySlotStore {
	return &memorySlotStore{data: make(map[string]models.CartState)}
}

func (m *memorySlotStore) Get(ctx context.Context, key string, dest interface{}) error {
	state, ok := m.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	*dest.(*models.CartState) = state.Clone()
	return nil
}

func (m *memorySlotStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.data[key] = value.(models.CartState).Clone()
	return nil
}

func (m *memorySlotStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// fakeBackend scripts backend behavior per call.
type fakeBackend struct {
	persistErr error
	fetchErr   error
	// fetchState is returned on Fetch when fetchErr is nil. When trackPersist
	// is set, Fetch echoes the last persisted snapshot instead.
	fetchState   models.CartState
	trackPersist bool

	persisted []CartMutation
}

func (b *fakeBackend) Persist(ctx context.Context, snapshot models.CartState, m CartMutation) error {
	b.persisted = append(b.persisted, m)
	if b.persistErr != nil {
		return b.persistErr
	}
	if b.trackPersist {
		b.fetchState = snapshot.Clone()
	}
	return nil
}

func (b *fakeBackend) Fetch(ctx context.Context) (models.CartState, error) {
	if b.fetchErr != nil {
		return models.CartState{}, b.fetchErr
	}
	return b.fetchState.Clone(), nil
}

func line(dishID string, qty int) models.CartLine {
	return models.CartLine{DishID: dishID, Name: dishID, Price: 10, Quantity: qty}
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	_, err := store.AddItem(context.Background(), line("d1", 2))
	require.NoError(t, err)

	state, err := store.AddItem(context.Background(), line("d1", 3))
	require.NoError(t, err)

	require.Len(t, state.Lines, 1)
	assert.Equal(t, 5, state.Lines[0].Quantity)
	// the persisted mutation carries the absolute quantity
	assert.Equal(t, 5, backend.persisted[1].Quantity)
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	_, err := store.AddItem(context.Background(), line("d1", 0))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, backend.persisted)
}

func TestUpdateItemSetsAbsoluteQuantity(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	_, err := store.AddItem(context.Background(), line("d1", 2))
	require.NoError(t, err)

	state, err := store.UpdateItem(context.Background(), "d1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, state.Lines[0].Quantity)
}

func TestUpdateItemRejectsQuantityBelowOne(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	_, err := store.AddItem(context.Background(), line("d1", 2))
	require.NoError(t, err)

	_, err = store.UpdateItem(context.Background(), "d1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	state := store.Snapshot()
	assert.Equal(t, 2, state.Lines[0].Quantity)
}

func TestUpdateAbsentItemIsNoOpWithoutBackendCall(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	state, err := store.UpdateItem(context.Background(), "ghost", 4)
	require.NoError(t, err)
	assert.True(t, state.Empty())
	assert.Empty(t, backend.persisted)
}

func TestRemoveAbsentItemIsNoOp(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	_, err := store.AddItem(context.Background(), line("d1", 1))
	require.NoError(t, err)
	calls := len(backend.persisted)

	state, err := store.RemoveItem(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Len(t, state.Lines, 1)
	assert.Len(t, backend.persisted, calls)
}

func TestRemoveItemDeletesLine(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	_, err := store.AddItem(context.Background(), line("d1", 1))
	require.NoError(t, err)
	_, err = store.AddItem(context.Background(), line("d2", 2))
	require.NoError(t, err)

	state, err := store.RemoveItem(context.Background(), "d1")
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, "d2", state.Lines[0].DishID)
}

func TestReconcileReplacesOptimisticState(t *testing.T) {
	// the backend's authoritative cart disagrees with the optimistic guess;
	// the fetched state must win
	backend := &fakeBackend{
		fetchState: models.CartState{Lines: []models.CartLine{line("d1", 9)}},
	}
	store := NewCartStore(backend)

	state, err := store.AddItem(context.Background(), line("d1", 1))
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 9, state.Lines[0].Quantity)
	assert.Equal(t, 9, store.Snapshot().Lines[0].Quantity)
}

func TestPersistFailureKeepsReconciledStateAndReportsSyncError(t *testing.T) {
	backend := &fakeBackend{
		persistErr: errors.New("upstream down"),
		fetchState: models.CartState{Lines: []models.CartLine{line("d1", 2)}},
	}
	store := NewCartStore(backend)

	state, err := store.AddItem(context.Background(), line("d1", 1))

	var syncErr *CartSyncError
	require.ErrorAs(t, err, &syncErr)
	// the fetch succeeded, so the authoritative state was still installed
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 2, state.Lines[0].Quantity)
}

func TestFullSyncFailureKeepsOptimisticState(t *testing.T) {
	backend := &fakeBackend{
		persistErr: errors.New("upstream down"),
		fetchErr:   errors.New("upstream down"),
	}
	store := NewCartStore(backend)

	state, err := store.AddItem(context.Background(), line("d1", 3))

	var syncErr *CartSyncError
	require.ErrorAs(t, err, &syncErr)
	// no rollback: the optimistic snapshot stands as last known state
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 3, state.Lines[0].Quantity)
	assert.Equal(t, 3, store.Snapshot().Lines[0].Quantity)
}

func TestSnapshotIsACopy(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	_, err := store.AddItem(context.Background(), line("d1", 1))
	require.NoError(t, err)

	snap := store.Snapshot()
	snap.Lines[0].Quantity = 99

	assert.Equal(t, 1, store.Snapshot().Lines[0].Quantity)
}

func TestSubscribeNotifiesAndUnsubscribes(t *testing.T) {
	backend := &fakeBackend{trackPersist: true}
	store := NewCartStore(backend)

	var seen []int
	unsubscribe := store.Subscribe(func(state models.CartState) {
		total := 0
		for _, l := range state.Lines {
			total += l.Quantity
		}
		seen = append(seen, total)
	})

	_, err := store.AddItem(context.Background(), line("d1", 2))
	require.NoError(t, err)
	// optimistic install plus reconcile both notify
	require.NotEmpty(t, seen)
	assert.Equal(t, 2, seen[len(seen)-1])

	unsubscribe()
	before := len(seen)
	_, err = store.AddItem(context.Background(), line("d1", 1))
	require.NoError(t, err)
	assert.Equal(t, before, len(seen))
}

func TestLocalBackendDeletesSlotWhenCartEmpties(t *testing.T) {
	slots := newMemorySlotStore()
	store := NewCartStore(NewLocalBackend(slots, "guest-1"))

	_, err := store.AddItem(context.Background(), line("d1", 1))
	require.NoError(t, err)
	_, ok := slots.data[GuestCartKey("guest-1")]
	require.True(t, ok)

	state, err := store.RemoveItem(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, state.Empty())

	_, ok = slots.data[GuestCartKey("guest-1")]
	assert.False(t, ok, "empty cart must delete the slot, not store an empty value")
}

func TestLocalBackendFetchTreatsMissAsEmptyCart(t *testing.T) {
	slots := newMemorySlotStore()
	store := NewCartStore(NewLocalBackend(slots, "guest-2"))

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Empty())
}

func TestLocalBackendRoundTrip(t *testing.T) {
	slots := newMemorySlotStore()
	store := NewCartStore(NewLocalBackend(slots, "guest-3"))

	_, err := store.AddItem(context.Background(), line("d1", 2))
	require.NoError(t, err)

	// a fresh store over the same slot sees the persisted cart
	rehydrated := NewCartStore(NewLocalBackend(slots, "guest-3"))
	state, err := rehydrated.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 2, state.Lines[0].Quantity)
}

// fakeRemoteCartAPI records calls and serves a scripted server-side cart.
type fakeRemoteCartAPI struct {
	lines  []models.CartLine
	tokens []string
}

func (f *fakeRemoteCartAPI) GetCart(ctx context.Context, token string) ([]models.CartLine, error) {
	f.tokens = append(f.tokens, token)
	out := make([]models.CartLine, len(f.lines))
	copy(out, f.lines)
	return out, nil
}

func (f *fakeRemoteCartAPI) AddOrUpdate(ctx context.Context, token, dishID string, quantity int) error {
	f.tokens = append(f.tokens, token)
	for i := range f.lines {
		if f.lines[i].DishID == dishID {
			f.lines[i].Quantity = quantity
			return nil
		}
	}
	f.lines = append(f.lines, models.CartLine{DishID: dishID, Name: dishID, Quantity: quantity})
	return nil
}

func (f *fakeRemoteCartAPI) Remove(ctx context.Context, token, dishID string) error {
	f.tokens = append(f.tokens, token)
	for i := range f.lines {
		if f.lines[i].DishID == dishID {
			f.lines = append(f.lines[:i], f.lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRemoteCartAPI) Clear(ctx context.Context, token string) error {
	f.tokens = append(f.tokens, token)
	f.lines = nil
	return nil
}

func TestRemoteBackendPushesAbsoluteQuantityAndRefetches(t *testing.T) {
	api := &fakeRemoteCartAPI{}
	store := NewCartStore(NewRemoteBackend(api, "token-1"))

	_, err := store.AddItem(context.Background(), line("d1", 2))
	require.NoError(t, err)

	state, err := store.AddItem(context.Background(), line("d1", 3))
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 5, state.Lines[0].Quantity)
	require.Len(t, api.lines, 1)
	assert.Equal(t, 5, api.lines[0].Quantity)
}

func TestRemoteBackendClear(t *testing.T) {
	api := &fakeRemoteCartAPI{lines: []models.CartLine{line("d1", 2)}}
	store := NewCartStore(NewRemoteBackend(api, "token-1"))

	_, err := store.Load(context.Background())
	require.NoError(t, err)

	state, err := store.ClearCart(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Empty())
	assert.Empty(t, api.lines)
}

func TestCartServiceMigrateGuestCartReplaysAndDeletesSlot(t *testing.T) {
	slots := newMemorySlotStore()
	slots.data[GuestCartKey("guest-9")] = models.CartState{Lines: []models.CartLine{
		line("d1", 2),
		line("d2", 1),
	}}
	api := &fakeRemoteCartAPI{lines: []models.CartLine{line("d1", 1)}}
	svc := NewCartService(slots, api)

	sess := &models.Session{ID: "u1", Mode: models.ModeAuthenticated, UserID: "u1", Token: "tok"}
	state, err := svc.MigrateGuestCart(context.Background(), sess, "guest-9")
	require.NoError(t, err)

	// quantities accumulate with the remote cart's existing line
	require.Len(t, state.Lines, 2)
	assert.Equal(t, 3, state.Lines[state.Find("d1")].Quantity)
	assert.Equal(t, 1, state.Lines[state.Find("d2")].Quantity)

	_, ok := slots.data[GuestCartKey("guest-9")]
	assert.False(t, ok, "guest slot must be deleted after a clean migration")
}

func TestCartServiceMigrateRequiresAuthenticatedSession(t *testing.T) {
	svc := NewCartService(newMemorySlotStore(), &fakeRemoteCartAPI{})

	sess := &models.Session{ID: "guest-1", Mode: models.ModeAnonymous}
	_, err := svc.MigrateGuestCart(context.Background(), sess, "guest-1")
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestCartServiceMigrateMissingSlotIsNoOp(t *testing.T) {
	api := &fakeRemoteCartAPI{lines: []models.CartLine{line("d1", 1)}}
	svc := NewCartService(newMemorySlotStore(), api)

	sess := &models.Session{ID: "u1", Mode: models.ModeAuthenticated, UserID: "u1", Token: "tok"}
	state, err := svc.MigrateGuestCart(context.Background(), sess, "never-existed")
	require.NoError(t, err)
	require.Len(t, state.Lines, 1)
	assert.Equal(t, 1, state.Lines[0].Quantity)
}

func TestCartServiceSeparatesGuestAndUserCarts(t *testing.T) {
	slots := newMemorySlotStore()
	api := &fakeRemoteCartAPI{}
	svc := NewCartService(slots, api)

	guest := &models.Session{ID: "guest-1", Mode: models.ModeAnonymous}
	user := &models.Session{ID: "u1", Mode: models.ModeAuthenticated, UserID: "u1", Token: "tok"}

	_, err := svc.AddItem(context.Background(), guest, line("d1", 1))
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), user, line("d2", 2))
	require.NoError(t, err)

	guestCart, err := svc.GetCart(context.Background(), guest)
	require.NoError(t, err)
	require.Len(t, guestCart.Lines, 1)
	assert.Equal(t, "d1", guestCart.Lines[0].DishID)

	userCart, err := svc.GetCart(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, userCart.Lines, 1)
	assert.Equal(t, "d2", userCart.Lines[0].DishID)
}
