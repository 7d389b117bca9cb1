package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rizki-dev/backend-warung/internal/lock"
)

type memStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]Reservation
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]Reservation{}}
}

func (m *memStore) Insert(_ context.Context, in CreateInput) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	r := Reservation{
		ID:           uuid.New(),
		RestaurantID: in.RestaurantID,
		DinerID:      in.DinerID,
		PartySize:    in.PartySize,
		SlotAt:       in.SlotAt,
		Status:       StatusBooked,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.rows[r.ID] = r
	return r, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return r, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	if r.Status != from {
		return Reservation{}, ErrInvalidTransition
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	m.rows[id] = r
	return r, nil
}

func (m *memStore) CountActiveAtSlot(_ context.Context, restaurantID uuid.UUID, slotAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.RestaurantID == restaurantID && r.SlotAt.Equal(slotAt) &&
			(r.Status == StatusBooked || r.Status == StatusCheckedIn) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListByDiner(_ context.Context, dinerID uuid.UUID) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, r := range m.rows {
		if r.DinerID == dinerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) ListByRestaurant(_ context.Context, restaurantID uuid.UUID, _ time.Time) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Reservation
	for _, r := range m.rows {
		if r.RestaurantID == restaurantID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixedCapacity int

func (f fixedCapacity) TableCount(context.Context, uuid.UUID) (int, error) {
	return int(f), nil
}

func newTestService(t *testing.T, store Store, tables int) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &Service{
		Store:    store,
		Capacity: fixedCapacity(tables),
		Locker:   lock.Locker{R: client, RetryBackoff: 2 * time.Millisecond},
		HoldTTL:  time.Second,
	}
}

func futureSlot() time.Time {
	return time.Now().UTC().Add(2 * time.Hour).Truncate(time.Minute)
}

func TestCreateBooksSlot(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 2)

	resv, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: uuid.New(),
		DinerID:      uuid.New(),
		PartySize:    4,
		SlotAt:       futureSlot(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusBooked, resv.Status)
	require.NotEqual(t, uuid.Nil, resv.ID)
}

func TestCreateRejectsPastSlot(t *testing.T) {
	svc := newTestService(t, newMemStore(), 2)

	_, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: uuid.New(),
		DinerID:      uuid.New(),
		PartySize:    2,
		SlotAt:       time.Now().Add(-time.Hour),
	})
	require.ErrorIs(t, err, ErrPastSlot)
}

func TestCreateEnforcesCapacity(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 1)
	restaurantID := uuid.New()
	slot := futureSlot()

	_, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID, DinerID: uuid.New(), PartySize: 2, SlotAt: slot,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID, DinerID: uuid.New(), PartySize: 2, SlotAt: slot,
	})
	require.ErrorIs(t, err, ErrSlotFull)
}

func TestConcurrentBookingOnlyOneWins(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 1)
	restaurantID := uuid.New()
	slot := futureSlot()

	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateInput{
				RestaurantID: restaurantID, DinerID: uuid.New(), PartySize: 2, SlotAt: slot,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won, lost := 0, 0
	for err := range errs {
		if err == nil {
			won++
		} else {
			require.ErrorIs(t, err, ErrSlotFull)
			lost++
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, racers-1, lost)
}

func TestLifecycleTransitions(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 2)

	resv, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: uuid.New(), DinerID: uuid.New(), PartySize: 2, SlotAt: futureSlot(),
	})
	require.NoError(t, err)

	// Completing before check-in is rejected.
	_, err = svc.Complete(context.Background(), resv.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	checked, err := svc.CheckIn(context.Background(), resv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCheckedIn, checked.Status)

	// Checked-in reservations cannot be canceled.
	_, err = svc.Cancel(context.Background(), resv.ID, uuid.Nil)
	require.ErrorIs(t, err, ErrInvalidTransition)

	done, err := svc.Complete(context.Background(), resv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)
}

func TestCancelOwnership(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 2)
	diner := uuid.New()

	resv, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: uuid.New(), DinerID: diner, PartySize: 2, SlotAt: futureSlot(),
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), resv.ID, uuid.New())
	require.ErrorIs(t, err, ErrForbidden)

	canceled, err := svc.Cancel(context.Background(), resv.ID, diner)
	require.NoError(t, err)
	require.Equal(t, StatusCanceled, canceled.Status)
}

func TestCanceledSlotFreesCapacity(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 1)
	restaurantID := uuid.New()
	diner := uuid.New()
	slot := futureSlot()

	resv, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID, DinerID: diner, PartySize: 2, SlotAt: slot,
	})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), resv.ID, diner)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID, DinerID: uuid.New(), PartySize: 2, SlotAt: slot,
	})
	require.NoError(t, err)
}

type ownerOnlyAuth struct {
	allowed uuid.UUID
}

func (a ownerOnlyAuth) AuthorizeOwner(_ context.Context, restaurantID uuid.UUID) error {
	if restaurantID != a.allowed {
		return ErrForbidden
	}
	return nil
}

func TestCheckInRequiresRestaurantOwner(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, 2)
	restaurantID := uuid.New()

	resv, err := svc.Create(context.Background(), CreateInput{
		RestaurantID: restaurantID, DinerID: uuid.New(), PartySize: 2, SlotAt: futureSlot(),
	})
	require.NoError(t, err)

	svc.Auth = ownerOnlyAuth{allowed: uuid.New()}
	_, err = svc.CheckIn(context.Background(), resv.ID)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Complete(context.Background(), resv.ID)
	require.ErrorIs(t, err, ErrForbidden)

	svc.Auth = ownerOnlyAuth{allowed: restaurantID}
	checked, err := svc.CheckIn(context.Background(), resv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCheckedIn, checked.Status)
}
