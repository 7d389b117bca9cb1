package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RevenueDay aggregates paid bills for one calendar day.
type RevenueDay struct {
	Day           time.Time `json:"day"`
	BillCount     int64     `json:"bill_count"`
	GrossMinor    int64     `json:"gross"`
	DiscountMinor int64     `json:"discount"`
	TaxMinor      int64     `json:"tax"`
	TotalMinor    int64     `json:"total"`
}

// TopDish ranks menu items by quantity sold on paid bills.
type TopDish struct {
	DishName     string `json:"dish_name"`
	Quantity     int64  `json:"quantity"`
	RevenueMinor int64  `json:"revenue"`
}

// Querier defines the database access required for analytics operations.
type Querier interface {
	RevenueDailyRange(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]RevenueDay, error)
	TopDishes(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]TopDish, error)
}

// Service provides cached access to billing aggregates.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// RevenueRange returns the daily revenue summary between the provided bounds,
// inclusive of from and exclusive of to.
func (s *Service) RevenueRange(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]RevenueDay, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "rev", restaurantID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if rows, ok := s.revenueFromCache(ctx, key); ok {
		return rows, nil
	}
	rows, err := s.Q.RevenueDailyRange(ctx, restaurantID, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopDishes returns paginated best sellers ordered by quantity sold.
func (s *Service) TopDishes(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]TopDish, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	key := cacheKey("an", "top", restaurantID, limit, offset)
	if rows, ok := s.topFromCache(ctx, key); ok {
		return rows, nil
	}
	rows, err := s.Q.TopDishes(ctx, restaurantID, limit, offset)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

func (s *Service) revenueFromCache(ctx context.Context, key string) ([]RevenueDay, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []RevenueDay
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) topFromCache(ctx context.Context, key string) ([]TopDish, bool) {
	if s.R == nil || s.TTL <= 0 {
		return nil, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rows []TopDish
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
