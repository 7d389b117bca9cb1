package restaurant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested restaurant could not be located.
var ErrNotFound = errors.New("restaurant: not found")

// Restaurant is a venue visible in the discovery listing.
type Restaurant struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Cuisine     string    `json:"cuisine"`
	City        string    `json:"city"`
	Address     string    `json:"address"`
	Description string    `json:"description,omitempty"`
	TableCount  int       `json:"table_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// MenuItem is one orderable dish.
type MenuItem struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	PriceMinor   int64     `json:"price"`
	Available    bool      `json:"available"`
}

// ListParams captures discovery filters.
type ListParams struct {
	Query   string
	Cuisine string
	City    string
	Page    int
	Limit   int
}

// ListResult is a page of restaurants plus the unfiltered total.
type ListResult struct {
	Items []Restaurant
	Total int64
	Page  int
	Limit int
}

// Store defines the persistence operations the discovery service needs.
type Store interface {
	ListRestaurants(ctx context.Context, p ListParams) ([]Restaurant, int64, error)
	GetRestaurantBySlug(ctx context.Context, slug string) (Restaurant, error)
	GetRestaurantByID(ctx context.Context, id uuid.UUID) (Restaurant, error)
	ListMenu(ctx context.Context, restaurantID uuid.UUID, availableOnly bool) ([]MenuItem, error)
}

// Service orchestrates discovery queries and caching.
type Service struct {
	store        Store
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a discovery service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("restaurant: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, defaultLimit: defaultLimit, maxLimit: maxLimit}, nil
}

// ParseListParams normalises discovery query values.
func (s *Service) ParseListParams(values url.Values) ListParams {
	p := ListParams{
		Query:   strings.TrimSpace(values.Get("q")),
		Cuisine: strings.TrimSpace(values.Get("cuisine")),
		City:    strings.TrimSpace(values.Get("city")),
		Page:    1,
		Limit:   s.defaultLimit,
	}
	if parsed, err := strconv.Atoi(values.Get("page")); err == nil && parsed > 0 {
		p.Page = parsed
	}
	if parsed, err := strconv.Atoi(values.Get("limit")); err == nil && parsed > 0 {
		p.Limit = parsed
	}
	if p.Limit > s.maxLimit {
		p.Limit = s.maxLimit
	}
	return p
}

// List returns a filtered page of restaurants, served from cache when the
// same filter combination was asked recently.
func (s *Service) List(ctx context.Context, p ListParams) (ListResult, error) {
	key := listCacheKey(p)
	var cached ListResult
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	items, total, err := s.store.ListRestaurants(ctx, p)
	if err != nil {
		return ListResult{}, err
	}
	result := ListResult{Items: items, Total: total, Page: p.Page, Limit: p.Limit}
	_ = s.cache.SetJSON(ctx, key, result)
	return result, nil
}

// Detail fetches one restaurant by slug.
func (s *Service) Detail(ctx context.Context, slug string) (Restaurant, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Restaurant{}, ErrNotFound
	}
	return s.store.GetRestaurantBySlug(ctx, slug)
}

// Menu lists the restaurant's available dishes, cached per restaurant.
func (s *Service) Menu(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error) {
	key := menuCacheKey(restaurantID)
	var cached []MenuItem
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	items, err := s.store.ListMenu(ctx, restaurantID, true)
	if err != nil {
		return nil, err
	}
	_ = s.cache.SetJSON(ctx, key, items)
	return items, nil
}

func listCacheKey(p ListParams) string {
	return fmt.Sprintf("restaurants:list:q=%s:cuisine=%s:city=%s:page=%d:limit=%d",
		strings.ToLower(p.Query), strings.ToLower(p.Cuisine), strings.ToLower(p.City), p.Page, p.Limit)
}

func menuCacheKey(id uuid.UUID) string {
	return "restaurants:menu:" + id.String()
}
