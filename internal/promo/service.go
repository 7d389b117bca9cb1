package promo

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/billing"
)

// ErrNotFound indicates the requested deal could not be located.
var ErrNotFound = errors.New("promo: deal not found")

// ErrInvalidKind is returned when a payload carries an unsupported discount type.
var ErrInvalidKind = errors.New("promo: invalid discount type")

// ErrForbidden is returned when the caller does not own the deal's restaurant.
var ErrForbidden = errors.New("promo: not your restaurant")

// Deal is a persisted promotional rule owned by one restaurant.
type Deal struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Title        string    `json:"title"`
	Kind         string    `json:"discount_type"`
	PercentBps   int32     `json:"-"`
	AmountMinor  int64     `json:"-"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DiscountValue reports the deal's value the way clients express it: a
// decimal percent for percentage deals, a decimal currency amount for
// flat_amount deals, zero for bogo.
func (d Deal) DiscountValue() float64 {
	switch billing.DealKind(d.Kind) {
	case billing.DealPercentage:
		return float64(d.PercentBps) / 100
	case billing.DealFlatAmount:
		return float64(d.AmountMinor) / 100
	default:
		return 0
	}
}

// Input captures a create/update payload after validation.
type Input struct {
	Title         string
	Kind          string
	DiscountValue float64
	Active        bool
}

// Store defines the persistence operations the promo service needs.
type Store interface {
	CreateDeal(ctx context.Context, d Deal) (Deal, error)
	UpdateDeal(ctx context.Context, d Deal) (Deal, error)
	GetDeal(ctx context.Context, id uuid.UUID) (Deal, error)
	ListDeals(ctx context.Context, restaurantID uuid.UUID, onlyActive bool) ([]Deal, error)
}

// OwnerAuthorizer verifies the caller may manage a restaurant's resources.
type OwnerAuthorizer interface {
	AuthorizeOwner(ctx context.Context, restaurantID uuid.UUID) error
}

// Service manages the deal catalog and exposes it to the billing engine.
type Service struct {
	Store Store
	Auth  OwnerAuthorizer
	Now   func() time.Time
}

func (s *Service) authorize(ctx context.Context, restaurantID uuid.UUID) error {
	if s.Auth == nil {
		return nil
	}
	if err := s.Auth.AuthorizeOwner(ctx, restaurantID); err != nil {
		return ErrForbidden
	}
	return nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create persists a new deal for the restaurant.
func (s *Service) Create(ctx context.Context, restaurantID uuid.UUID, in Input) (Deal, error) {
	if s == nil || s.Store == nil {
		return Deal{}, errors.New("promo: service not configured")
	}
	if err := s.authorize(ctx, restaurantID); err != nil {
		return Deal{}, err
	}
	deal, err := fromInput(in)
	if err != nil {
		return Deal{}, err
	}
	deal.ID = uuid.New()
	deal.RestaurantID = restaurantID
	deal.CreatedAt = s.now()
	deal.UpdatedAt = deal.CreatedAt
	return s.Store.CreateDeal(ctx, deal)
}

// Update replaces a deal's rule, keeping its identity.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (Deal, error) {
	if s == nil || s.Store == nil {
		return Deal{}, errors.New("promo: service not configured")
	}
	existing, err := s.Store.GetDeal(ctx, id)
	if err != nil {
		return Deal{}, err
	}
	if err := s.authorize(ctx, existing.RestaurantID); err != nil {
		return Deal{}, err
	}
	updated, err := fromInput(in)
	if err != nil {
		return Deal{}, err
	}
	updated.ID = existing.ID
	updated.RestaurantID = existing.RestaurantID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()
	return s.Store.UpdateDeal(ctx, updated)
}

// Deactivate turns a deal off without deleting it; items still referencing
// it simply stop earning a discount.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (Deal, error) {
	if s == nil || s.Store == nil {
		return Deal{}, errors.New("promo: service not configured")
	}
	existing, err := s.Store.GetDeal(ctx, id)
	if err != nil {
		return Deal{}, err
	}
	if err := s.authorize(ctx, existing.RestaurantID); err != nil {
		return Deal{}, err
	}
	existing.Active = false
	existing.UpdatedAt = s.now()
	return s.Store.UpdateDeal(ctx, existing)
}

// List returns the restaurant's deals, optionally restricted to active ones.
func (s *Service) List(ctx context.Context, restaurantID uuid.UUID, onlyActive bool) ([]Deal, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("promo: service not configured")
	}
	return s.Store.ListDeals(ctx, restaurantID, onlyActive)
}

// Catalog loads the restaurant's full deal set as a billing catalog. The
// catalog includes inactive deals so the engine can apply its documented
// "inactive means zero discount" rule instead of treating them as unknown.
func (s *Service) Catalog(ctx context.Context, restaurantID uuid.UUID) (billing.Deals, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("promo: service not configured")
	}
	deals, err := s.Store.ListDeals(ctx, restaurantID, false)
	if err != nil {
		return nil, err
	}
	return CatalogOf(deals), nil
}

// CatalogOf converts persisted deals into the engine's lookup shape.
func CatalogOf(deals []Deal) billing.Deals {
	catalog := make(billing.Deals, len(deals))
	for _, d := range deals {
		catalog[d.ID.String()] = billing.Deal{
			ID:         d.ID.String(),
			Kind:       billing.DealKind(d.Kind),
			PercentBps: d.PercentBps,
			Amount:     d.AmountMinor,
			Active:     d.Active,
		}
	}
	return catalog
}

func fromInput(in Input) (Deal, error) {
	kind := strings.TrimSpace(strings.ToLower(in.Kind))
	deal := Deal{Title: strings.TrimSpace(in.Title), Kind: kind, Active: in.Active}
	switch billing.DealKind(kind) {
	case billing.DealPercentage:
		if in.DiscountValue <= 0 || in.DiscountValue > 100 {
			return Deal{}, ErrInvalidKind
		}
		deal.PercentBps = int32(billing.PercentToBps(in.DiscountValue))
	case billing.DealFlatAmount:
		if in.DiscountValue < 0 {
			return Deal{}, ErrInvalidKind
		}
		deal.AmountMinor = int64(math.Round(in.DiscountValue * 100))
	case billing.DealBogo:
		// carries no value
	default:
		return Deal{}, ErrInvalidKind
	}
	return deal, nil
}
