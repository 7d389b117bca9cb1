package favorites

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	favs map[[2]uuid.UUID]time.Time
}

func newMemStore() *memStore {
	return &memStore{favs: map[[2]uuid.UUID]time.Time{}}
}

func (m *memStore) AddFavorite(_ context.Context, dinerID, restaurantID uuid.UUID) error {
	m.favs[[2]uuid.UUID{dinerID, restaurantID}] = time.Now()
	return nil
}

func (m *memStore) RemoveFavorite(_ context.Context, dinerID, restaurantID uuid.UUID) error {
	delete(m.favs, [2]uuid.UUID{dinerID, restaurantID})
	return nil
}

func (m *memStore) ListFavorites(_ context.Context, dinerID uuid.UUID) ([]Favorite, error) {
	var out []Favorite
	for key, at := range m.favs {
		if key[0] == dinerID {
			out = append(out, Favorite{RestaurantID: key[1], CreatedAt: at})
		}
	}
	return out, nil
}

func (m *memStore) HasFavorite(_ context.Context, dinerID, restaurantID uuid.UUID) (bool, error) {
	_, ok := m.favs[[2]uuid.UUID{dinerID, restaurantID}]
	return ok, nil
}

func TestToggleFlipsState(t *testing.T) {
	svc := &Service{Store: newMemStore()}
	dinerID := uuid.New()
	restaurantID := uuid.New()

	favored, err := svc.Toggle(context.Background(), dinerID, restaurantID)
	require.NoError(t, err)
	require.True(t, favored)

	favored, err = svc.Toggle(context.Background(), dinerID, restaurantID)
	require.NoError(t, err)
	require.False(t, favored)

	list, err := svc.List(context.Background(), dinerID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestListIsScopedToDiner(t *testing.T) {
	store := newMemStore()
	svc := &Service{Store: store}
	alice := uuid.New()
	bob := uuid.New()
	restaurantID := uuid.New()

	_, err := svc.Toggle(context.Background(), alice, restaurantID)
	require.NoError(t, err)

	list, err := svc.List(context.Background(), bob)
	require.NoError(t, err)
	require.Empty(t, list)

	list, err = svc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, restaurantID, list[0].RestaurantID)
}
