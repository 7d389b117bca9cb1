package restaurant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	restaurants []Restaurant
	menus       map[uuid.UUID][]MenuItem
	listCalls   int
	menuCalls   int
}

func (f *fakeStore) ListRestaurants(_ context.Context, p ListParams) ([]Restaurant, int64, error) {
	f.listCalls++
	var out []Restaurant
	for _, r := range f.restaurants {
		if p.City != "" && r.City != p.City {
			continue
		}
		if p.Cuisine != "" && r.Cuisine != p.Cuisine {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeStore) GetRestaurantBySlug(_ context.Context, slug string) (Restaurant, error) {
	for _, r := range f.restaurants {
		if r.Slug == slug {
			return r, nil
		}
	}
	return Restaurant{}, ErrNotFound
}

func (f *fakeStore) GetRestaurantByID(_ context.Context, id uuid.UUID) (Restaurant, error) {
	for _, r := range f.restaurants {
		if r.ID == id {
			return r, nil
		}
	}
	return Restaurant{}, ErrNotFound
}

func (f *fakeStore) ListMenu(_ context.Context, id uuid.UUID, _ bool) ([]MenuItem, error) {
	f.menuCalls++
	return f.menus[id], nil
}

func newTestHandler(t *testing.T, store *fakeStore) (*Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewService(ServiceConfig{
		Store:        store,
		Cache:        NewCache(client, time.Minute),
		DefaultLimit: 20,
		MaxLimit:     50,
	})
	require.NoError(t, err)
	return NewHandler(HandlerConfig{Service: svc}), mr
}

func seedStore() *fakeStore {
	warungID := uuid.New()
	padangID := uuid.New()
	return &fakeStore{
		restaurants: []Restaurant{
			{ID: warungID, Name: "Warung Nasi Uduk", Slug: "warung-nasi-uduk", Cuisine: "indonesian", City: "Jakarta", TableCount: 12},
			{ID: padangID, Name: "Rumah Makan Padang", Slug: "rumah-makan-padang", Cuisine: "padang", City: "Bandung", TableCount: 8},
		},
		menus: map[uuid.UUID][]MenuItem{
			warungID: {
				{ID: uuid.New(), RestaurantID: warungID, Name: "Nasi Uduk", Category: "mains", PriceMinor: 2500000, Available: true},
				{ID: uuid.New(), RestaurantID: warungID, Name: "Es Teh", Category: "drinks", PriceMinor: 500000, Available: true},
			},
		},
	}
}

func TestListFiltersAndPagination(t *testing.T) {
	store := seedStore()
	h, _ := newTestHandler(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants?city=Jakarta", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	require.Contains(t, rec.Body.String(), "warung-nasi-uduk")
	require.NotContains(t, rec.Body.String(), "rumah-makan-padang")
}

func TestListServedFromCache(t *testing.T) {
	store := seedStore()
	h, _ := newTestHandler(t, store)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants?cuisine=padang", nil)
		rec := httptest.NewRecorder()
		h.List(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Equal(t, 1, store.listCalls, "repeated identical queries should hit the cache")
}

func TestDetailNotFound(t *testing.T) {
	h, _ := newTestHandler(t, seedStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants/no-such-place", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", "no-such-place")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Detail(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestMenuBySlug(t *testing.T) {
	store := seedStore()
	h, _ := newTestHandler(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants/warung-nasi-uduk/menu", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("slug", "warung-nasi-uduk")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Menu(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Nasi Uduk")
	require.Contains(t, rec.Body.String(), "Es Teh")
	require.Equal(t, 1, store.menuCalls)

	// Second read comes from Redis.
	rec = httptest.NewRecorder()
	h.Menu(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, store.menuCalls)
}

func TestListParamsClampLimit(t *testing.T) {
	svc, err := NewService(ServiceConfig{Store: &fakeStore{}, DefaultLimit: 20, MaxLimit: 50})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/restaurants?limit=500&page=3", nil)
	p := svc.ParseListParams(req.URL.Query())
	require.Equal(t, 50, p.Limit)
	require.Equal(t, 3, p.Page)
}
