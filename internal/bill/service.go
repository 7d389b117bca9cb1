package bill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/billing"
	"github.com/rizki-dev/backend-warung/internal/events"
	"github.com/rizki-dev/backend-warung/internal/obs"
	"github.com/rizki-dev/backend-warung/internal/payment"
	"github.com/rizki-dev/backend-warung/internal/reservation"
)

// Bill statuses.
const (
	StatusUnpaid = "UNPAID"
	StatusPaid   = "PAID"
	StatusFailed = "FAILED"
)

var (
	ErrNotFound           = errors.New("bill: not found")
	ErrAlreadyExists      = errors.New("bill: reservation already billed")
	ErrAlreadyPaid        = errors.New("bill: already paid")
	ErrNotCheckedIn       = errors.New("bill: reservation is not checked in")
	ErrPaymentDeclined    = errors.New("bill: payment declined")
	ErrEmptyItems         = errors.New("bill: at least one item is required")
	ErrReservationMissing = errors.New("bill: reservation not found")
	ErrForbidden          = errors.New("bill: not your restaurant")
)

// Bill is the priced check for one reservation.
type Bill struct {
	ID                    uuid.UUID  `json:"id"`
	ReservationID         uuid.UUID  `json:"reservation_id"`
	RestaurantID          uuid.UUID  `json:"restaurant_id"`
	DinerID               uuid.UUID  `json:"diner_id"`
	Status                string     `json:"status"`
	Currency              string     `json:"currency"`
	Subtotal              int64      `json:"subtotal"`
	Discount              int64      `json:"discount_total"`
	SubtotalAfterDiscount int64      `json:"subtotal_after_discount"`
	Tax                   int64      `json:"tax_amount"`
	Total                 int64      `json:"total"`
	TaxBps                int32      `json:"-"`
	Notes                 string     `json:"notes,omitempty"`
	PaymentRef            string     `json:"payment_ref,omitempty"`
	PaidAt                *time.Time `json:"paid_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Line is one priced dish on a bill.
type Line struct {
	ID         uuid.UUID  `json:"id"`
	BillID     uuid.UUID  `json:"-"`
	DishName   string     `json:"dish_name"`
	Qty        int        `json:"quantity"`
	UnitPrice  int64      `json:"unit_price"`
	Subtotal   int64      `json:"subtotal"`
	Discount   int64      `json:"discount"`
	DealID     *uuid.UUID `json:"promo_id,omitempty"`
	SortOrder  int        `json:"-"`
}

// ItemInput is one unpriced item on a bill request, amounts in minor units.
type ItemInput struct {
	DishName  string
	Qty       int
	UnitPrice int64
	DealID    *uuid.UUID
}

// CreateInput carries a bill creation request.
type CreateInput struct {
	ReservationID uuid.UUID
	Items         []ItemInput
	TaxBps        int32
	Notes         string
}

// Store defines persistence for bills. CreateBill must insert the bill and
// its lines atomically.
type Store interface {
	CreateBill(ctx context.Context, b Bill, lines []Line) (Bill, error)
	GetBill(ctx context.Context, id uuid.UUID) (Bill, error)
	GetBillByReservation(ctx context.Context, reservationID uuid.UUID) (Bill, error)
	ListLines(ctx context.Context, billID uuid.UUID) ([]Line, error)
	Settle(ctx context.Context, id uuid.UUID, status, paymentRef string, paidAt time.Time) (Bill, error)
}

// ReservationReader resolves the reservation a bill is raised against.
type ReservationReader interface {
	Get(ctx context.Context, id uuid.UUID) (reservation.Reservation, error)
}

// CatalogSource resolves a restaurant's deal catalog for pricing.
type CatalogSource interface {
	Catalog(ctx context.Context, restaurantID uuid.UUID) (billing.Deals, error)
}

// OwnerAuthorizer verifies the caller operates the restaurant being billed.
type OwnerAuthorizer interface {
	AuthorizeOwner(ctx context.Context, restaurantID uuid.UUID) error
}

// Service raises and settles bills.
type Service struct {
	Store        Store
	Reservations ReservationReader
	Catalog      CatalogSource
	Auth         OwnerAuthorizer
	Provider     payment.Provider
	Bus          *events.Bus
	Currency     string
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create prices and persists the bill for a checked-in reservation. A
// reservation carries at most one bill.
func (s *Service) Create(ctx context.Context, in CreateInput) (Bill, []Line, error) {
	if s == nil || s.Store == nil || s.Reservations == nil {
		return Bill{}, nil, errors.New("bill: service not configured")
	}
	if len(in.Items) == 0 {
		return Bill{}, nil, ErrEmptyItems
	}

	resv, err := s.Reservations.Get(ctx, in.ReservationID)
	if err != nil {
		if errors.Is(err, reservation.ErrNotFound) {
			return Bill{}, nil, ErrReservationMissing
		}
		return Bill{}, nil, err
	}
	if s.Auth != nil {
		if err := s.Auth.AuthorizeOwner(ctx, resv.RestaurantID); err != nil {
			return Bill{}, nil, ErrForbidden
		}
	}
	if resv.Status != reservation.StatusCheckedIn {
		return Bill{}, nil, ErrNotCheckedIn
	}
	if _, err := s.Store.GetBillByReservation(ctx, in.ReservationID); err == nil {
		return Bill{}, nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return Bill{}, nil, err
	}

	var deals billing.Deals
	if s.Catalog != nil {
		deals, err = s.Catalog.Catalog(ctx, resv.RestaurantID)
		if err != nil {
			return Bill{}, nil, fmt.Errorf("bill: load deal catalog: %w", err)
		}
	}

	items := make([]billing.Item, 0, len(in.Items))
	for _, it := range in.Items {
		item := billing.Item{
			DishName:  strings.TrimSpace(it.DishName),
			Qty:       it.Qty,
			UnitPrice: it.UnitPrice,
		}
		if it.DealID != nil {
			id := it.DealID.String()
			item.DealID = &id
		}
		items = append(items, item)
	}

	taxBps := int(in.TaxBps)
	summary := billing.Compute(items, deals, taxBps)
	priced := billing.ComputeLines(items, deals)

	b := Bill{
		ReservationID:         in.ReservationID,
		RestaurantID:          resv.RestaurantID,
		DinerID:               resv.DinerID,
		Status:                StatusUnpaid,
		Currency:              s.Currency,
		Subtotal:              summary.Subtotal,
		Discount:              summary.Discount,
		SubtotalAfterDiscount: summary.SubtotalAfterDiscount,
		Tax:                   summary.Tax,
		Total:                 summary.Total,
		TaxBps:                in.TaxBps,
		Notes:                 strings.TrimSpace(in.Notes),
	}
	lines := make([]Line, 0, len(priced))
	for i, pl := range priced {
		lines = append(lines, Line{
			DishName:  pl.DishName,
			Qty:       pl.Qty,
			UnitPrice: pl.UnitPrice,
			Subtotal:  pl.Subtotal,
			Discount:  pl.Discount,
			DealID:    in.Items[i].DealID,
			SortOrder: i,
		})
	}

	created, err := s.Store.CreateBill(ctx, b, lines)
	if err != nil {
		countBillCreated("error")
		return Bill{}, nil, err
	}
	countBillCreated("ok")
	if obs.BillTotalAmount != nil {
		obs.BillTotalAmount.Observe(float64(created.Total))
	}
	s.emit(ctx, events.TopicBillCreated, created)

	storedLines, err := s.Store.ListLines(ctx, created.ID)
	if err != nil {
		return created, nil, err
	}
	return created, storedLines, nil
}

// Get fetches one bill with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Bill, []Line, error) {
	b, err := s.Store.GetBill(ctx, id)
	if err != nil {
		return Bill{}, nil, err
	}
	lines, err := s.Store.ListLines(ctx, b.ID)
	if err != nil {
		return Bill{}, nil, err
	}
	return b, lines, nil
}

// GetByReservation fetches the bill raised for a reservation.
func (s *Service) GetByReservation(ctx context.Context, reservationID uuid.UUID) (Bill, []Line, error) {
	b, err := s.Store.GetBillByReservation(ctx, reservationID)
	if err != nil {
		return Bill{}, nil, err
	}
	lines, err := s.Store.ListLines(ctx, b.ID)
	if err != nil {
		return Bill{}, nil, err
	}
	return b, lines, nil
}

// Pay charges the bill through the payment provider and settles it.
func (s *Service) Pay(ctx context.Context, id uuid.UUID, method string) (Bill, error) {
	if s.Provider == nil {
		return Bill{}, errors.New("bill: payment provider not configured")
	}
	b, err := s.Store.GetBill(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if b.Status == StatusPaid {
		return Bill{}, ErrAlreadyPaid
	}

	res, err := s.Provider.Charge(ctx, payment.ChargeRequest{
		BillID:      b.ID.String(),
		AmountMinor: b.Total,
		Currency:    b.Currency,
		Method:      method,
		Reference:   b.ReservationID.String(),
	})
	if err != nil {
		countBillPaid("error")
		return Bill{}, fmt.Errorf("bill: charge: %w", err)
	}

	switch res.Status {
	case payment.StatusPaid:
		paidAt := s.now()
		if res.PaidAtUnix > 0 {
			paidAt = time.Unix(res.PaidAtUnix, 0)
		}
		settled, err := s.Store.Settle(ctx, b.ID, StatusPaid, res.TransactionID, paidAt)
		if err != nil {
			return Bill{}, err
		}
		countBillPaid("ok")
		s.emit(ctx, events.TopicBillPaid, settled)
		return settled, nil
	default:
		failed, err := s.Store.Settle(ctx, b.ID, StatusFailed, res.TransactionID, time.Time{})
		if err != nil {
			return Bill{}, err
		}
		countBillPaid("declined")
		s.emit(ctx, events.TopicPaymentFailed, failed)
		return failed, ErrPaymentDeclined
	}
}

// SettleFromCallback applies a verified gateway callback. Replays of an
// already-paid bill are acknowledged without change.
func (s *Service) SettleFromCallback(ctx context.Context, cb payment.CallbackResult) (Bill, error) {
	if !cb.Valid {
		return Bill{}, errors.New("bill: callback is not verified")
	}
	id, err := uuid.Parse(cb.BillID)
	if err != nil {
		return Bill{}, fmt.Errorf("bill: callback bill id: %w", err)
	}
	b, err := s.Store.GetBill(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if b.Status == StatusPaid {
		return b, nil
	}
	if cb.Status != payment.StatusPaid {
		failed, err := s.Store.Settle(ctx, b.ID, StatusFailed, "", time.Time{})
		if err != nil {
			return Bill{}, err
		}
		countBillPaid("declined")
		s.emit(ctx, events.TopicPaymentFailed, failed)
		return failed, nil
	}
	if cb.AmountMinor != b.Total {
		return Bill{}, fmt.Errorf("bill: callback amount %d does not match total %d", cb.AmountMinor, b.Total)
	}
	settled, err := s.Store.Settle(ctx, b.ID, StatusPaid, "", s.now())
	if err != nil {
		return Bill{}, err
	}
	countBillPaid("ok")
	s.emit(ctx, events.TopicBillPaid, settled)
	return settled, nil
}

func (s *Service) emit(ctx context.Context, topic string, b Bill) {
	if s.Bus == nil {
		return
	}
	// Settlement is already durable; event fan-out failures only log.
	_, _ = s.Bus.Emit(ctx, topic, b.ID, map[string]any{
		"bill_id":        b.ID,
		"reservation_id": b.ReservationID,
		"restaurant_id":  b.RestaurantID,
		"diner_id":       b.DinerID,
		"status":         b.Status,
		"total":          b.Total,
		"currency":       b.Currency,
	})
}

func countBillCreated(result string) {
	if obs.BillsCreatedTotal != nil {
		obs.BillsCreatedTotal.WithLabelValues(result).Inc()
	}
}

func countBillPaid(result string) {
	if obs.BillsPaidTotal != nil {
		obs.BillsPaidTotal.WithLabelValues(result).Inc()
	}
}
