package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rizki-dev/backend-warung/internal/analytics"
)

type stubQuerier struct {
	revenueCalls int
	topCalls     int
}

func (s *stubQuerier) RevenueDailyRange(_ context.Context, _ uuid.UUID, from, _ time.Time) ([]analytics.RevenueDay, error) {
	s.revenueCalls++
	return []analytics.RevenueDay{{Day: from, BillCount: 2, GrossMinor: 320000, TaxMinor: 32000, TotalMinor: 352000}}, nil
}

func (s *stubQuerier) TopDishes(context.Context, uuid.UUID, int32, int32) ([]analytics.TopDish, error) {
	s.topCalls++
	return []analytics.TopDish{{DishName: "Nasi Goreng", Quantity: 12, RevenueMinor: 540000}}, nil
}

func TestRevenueRangeCached(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	querier := &stubQuerier{}
	svc := &analytics.Service{Q: querier, R: rdb, TTL: time.Minute, DefaultRange: 30}
	restaurantID := uuid.New()
	from := time.Now().Add(-24 * time.Hour).Truncate(24 * time.Hour)
	to := time.Now().Truncate(24 * time.Hour)
	if _, err := svc.RevenueRange(context.Background(), restaurantID, from, to); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.RevenueRange(context.Background(), restaurantID, from, to); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if querier.revenueCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", querier.revenueCalls)
	}
}

func TestTopDishesCachePerRestaurant(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	querier := &stubQuerier{}
	svc := &analytics.Service{Q: querier, R: rdb, TTL: time.Minute}

	a, b := uuid.New(), uuid.New()
	if _, err := svc.TopDishes(context.Background(), a, 10, 0); err != nil {
		t.Fatalf("restaurant a: %v", err)
	}
	if _, err := svc.TopDishes(context.Background(), b, 10, 0); err != nil {
		t.Fatalf("restaurant b: %v", err)
	}
	if _, err := svc.TopDishes(context.Background(), a, 10, 0); err != nil {
		t.Fatalf("restaurant a again: %v", err)
	}
	if querier.topCalls != 2 {
		t.Fatalf("expected one DB call per restaurant, got %d", querier.topCalls)
	}
}
