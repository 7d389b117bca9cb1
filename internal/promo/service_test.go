package promo

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/billing"
)

type stubStore struct {
	deals map[uuid.UUID]Deal
}

func newStubStore() *stubStore {
	return &stubStore{deals: map[uuid.UUID]Deal{}}
}

func (s *stubStore) CreateDeal(_ context.Context, d Deal) (Deal, error) {
	s.deals[d.ID] = d
	return d, nil
}

func (s *stubStore) UpdateDeal(_ context.Context, d Deal) (Deal, error) {
	if _, ok := s.deals[d.ID]; !ok {
		return Deal{}, ErrNotFound
	}
	s.deals[d.ID] = d
	return d, nil
}

func (s *stubStore) GetDeal(_ context.Context, id uuid.UUID) (Deal, error) {
	d, ok := s.deals[id]
	if !ok {
		return Deal{}, ErrNotFound
	}
	return d, nil
}

func (s *stubStore) ListDeals(_ context.Context, restaurantID uuid.UUID, onlyActive bool) ([]Deal, error) {
	var out []Deal
	for _, d := range s.deals {
		if d.RestaurantID != restaurantID {
			continue
		}
		if onlyActive && !d.Active {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func TestCreateConvertsPercentToBps(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	deal, err := svc.Create(context.Background(), uuid.New(), Input{Title: "Happy hour", Kind: "percentage", DiscountValue: 12.5, Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if deal.PercentBps != 1250 {
		t.Fatalf("expected 1250 bps, got %d", deal.PercentBps)
	}
	if deal.DiscountValue() != 12.5 {
		t.Fatalf("round trip discount value mismatch: %v", deal.DiscountValue())
	}
}

func TestCreateRejectsBadPercent(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	_, err := svc.Create(context.Background(), uuid.New(), Input{Title: "x", Kind: "percentage", DiscountValue: 140})
	if !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestDeactivateKeepsDealResolvable(t *testing.T) {
	store := newStubStore()
	svc := &Service{Store: store}
	restaurantID := uuid.New()
	deal, err := svc.Create(context.Background(), restaurantID, Input{Title: "BOGO sate", Kind: "bogo", Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Deactivate(context.Background(), deal.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	catalog, err := svc.Catalog(context.Background(), restaurantID)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	resolved, ok := catalog.Lookup(deal.ID.String())
	if !ok {
		t.Fatal("deactivated deal must stay in the catalog")
	}
	if resolved.Active {
		t.Fatal("deal should be inactive")
	}
	id := deal.ID.String()
	discount := billing.ItemDiscount(billing.Item{DishName: "Sate", Qty: 4, UnitPrice: 1000, DealID: &id}, catalog)
	if discount != 0 {
		t.Fatalf("inactive deal must grant no discount, got %d", discount)
	}
}

func TestCatalogOfFlatAmount(t *testing.T) {
	id := uuid.New()
	catalog := CatalogOf([]Deal{{ID: id, Kind: "flat_amount", AmountMinor: 2500, Active: true}})
	deal, ok := catalog.Lookup(id.String())
	if !ok || deal.Amount != 2500 || deal.Kind != billing.DealFlatAmount {
		t.Fatalf("unexpected catalog entry %+v ok=%v", deal, ok)
	}
}

func TestUpdateMissingDeal(t *testing.T) {
	svc := &Service{Store: newStubStore()}
	_, err := svc.Update(context.Background(), uuid.New(), Input{Title: "x", Kind: "bogo"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type stubAuthorizer struct {
	allowed uuid.UUID
}

func (a stubAuthorizer) AuthorizeOwner(_ context.Context, restaurantID uuid.UUID) error {
	if restaurantID != a.allowed {
		return errors.New("denied")
	}
	return nil
}

func TestCreateRejectsForeignRestaurant(t *testing.T) {
	owned := uuid.New()
	svc := &Service{Store: newStubStore(), Auth: stubAuthorizer{allowed: owned}}

	_, err := svc.Create(context.Background(), uuid.New(), Input{Title: "x", Kind: "bogo", Active: true})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a foreign restaurant, got %v", err)
	}

	if _, err := svc.Create(context.Background(), owned, Input{Title: "x", Kind: "bogo", Active: true}); err != nil {
		t.Fatalf("owner create should pass: %v", err)
	}
}

func TestUpdateAndDeactivateRejectForeignRestaurant(t *testing.T) {
	store := newStubStore()
	owned := uuid.New()
	svc := &Service{Store: store, Auth: stubAuthorizer{allowed: owned}}

	deal, err := svc.Create(context.Background(), owned, Input{Title: "x", Kind: "bogo", Active: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	foreign := &Service{Store: store, Auth: stubAuthorizer{allowed: uuid.New()}}
	if _, err := foreign.Update(context.Background(), deal.ID, Input{Title: "y", Kind: "bogo"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on update, got %v", err)
	}
	if _, err := foreign.Deactivate(context.Background(), deal.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on deactivate, got %v", err)
	}
}
