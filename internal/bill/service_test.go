package bill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rizki-dev/backend-warung/internal/billing"
	"github.com/rizki-dev/backend-warung/internal/payment"
	"github.com/rizki-dev/backend-warung/internal/reservation"
)

type stubStore struct {
	bills map[uuid.UUID]Bill
	lines map[uuid.UUID][]Line
}

func newStubStore() *stubStore {
	return &stubStore{bills: map[uuid.UUID]Bill{}, lines: map[uuid.UUID][]Line{}}
}

func (s *stubStore) CreateBill(_ context.Context, b Bill, lines []Line) (Bill, error) {
	for _, existing := range s.bills {
		if existing.ReservationID == b.ReservationID {
			return Bill{}, ErrAlreadyExists
		}
	}
	b.ID = uuid.New()
	b.CreatedAt = time.Now()
	s.bills[b.ID] = b
	for i := range lines {
		lines[i].ID = uuid.New()
		lines[i].BillID = b.ID
	}
	s.lines[b.ID] = lines
	return b, nil
}

func (s *stubStore) GetBill(_ context.Context, id uuid.UUID) (Bill, error) {
	b, ok := s.bills[id]
	if !ok {
		return Bill{}, ErrNotFound
	}
	return b, nil
}

func (s *stubStore) GetBillByReservation(_ context.Context, reservationID uuid.UUID) (Bill, error) {
	for _, b := range s.bills {
		if b.ReservationID == reservationID {
			return b, nil
		}
	}
	return Bill{}, ErrNotFound
}

func (s *stubStore) ListLines(_ context.Context, billID uuid.UUID) ([]Line, error) {
	return s.lines[billID], nil
}

func (s *stubStore) Settle(_ context.Context, id uuid.UUID, status, paymentRef string, paidAt time.Time) (Bill, error) {
	b, ok := s.bills[id]
	if !ok {
		return Bill{}, ErrNotFound
	}
	if b.Status == StatusPaid {
		return Bill{}, ErrAlreadyPaid
	}
	b.Status = status
	b.PaymentRef = paymentRef
	if !paidAt.IsZero() {
		b.PaidAt = &paidAt
	}
	s.bills[id] = b
	return b, nil
}

type stubReservations struct {
	rows map[uuid.UUID]reservation.Reservation
}

func (s *stubReservations) Get(_ context.Context, id uuid.UUID) (reservation.Reservation, error) {
	r, ok := s.rows[id]
	if !ok {
		return reservation.Reservation{}, reservation.ErrNotFound
	}
	return r, nil
}

type stubCatalog struct {
	deals billing.Deals
}

func (s *stubCatalog) Catalog(context.Context, uuid.UUID) (billing.Deals, error) {
	return s.deals, nil
}

type fixture struct {
	svc           *Service
	store         *stubStore
	reservationID uuid.UUID
	dealID        uuid.UUID
	dinerID       uuid.UUID
}

func newFixture(t *testing.T, status reservation.Status) fixture {
	t.Helper()
	reservationID := uuid.New()
	dealID := uuid.New()
	dinerID := uuid.New()
	restaurantID := uuid.New()

	store := newStubStore()
	svc := &Service{
		Store: store,
		Reservations: &stubReservations{rows: map[uuid.UUID]reservation.Reservation{
			reservationID: {
				ID:           reservationID,
				RestaurantID: restaurantID,
				DinerID:      dinerID,
				Status:       status,
			},
		}},
		Catalog: &stubCatalog{deals: billing.Deals{
			dealID.String(): {ID: dealID.String(), Kind: billing.DealPercentage, PercentBps: 2500, Active: true},
		}},
		Provider: payment.Sandbox{SecretKey: "secret"},
		Currency: "IDR",
	}
	return fixture{svc: svc, store: store, reservationID: reservationID, dealID: dealID, dinerID: dinerID}
}

func TestCreateBillPricesCheck(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)

	created, lines, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		TaxBps:        1000,
		Items: []ItemInput{
			{DishName: "Taco", Qty: 2, UnitPrice: 800, DealID: &fx.dealID},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, created.Status)
	require.EqualValues(t, 1600, created.Subtotal)
	require.EqualValues(t, 400, created.Discount)
	require.EqualValues(t, 1200, created.SubtotalAfterDiscount)
	require.EqualValues(t, 120, created.Tax)
	require.EqualValues(t, 1320, created.Total)
	require.Len(t, lines, 1)
	require.EqualValues(t, 400, lines[0].Discount)
	require.Equal(t, fx.dinerID, created.DinerID)
}

func TestCreateBillRequiresCheckIn(t *testing.T) {
	fx := newFixture(t, reservation.StatusBooked)

	_, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		Items:         []ItemInput{{DishName: "Soto", Qty: 1, UnitPrice: 500}},
	})
	require.ErrorIs(t, err, ErrNotCheckedIn)
}

func TestCreateBillOnePerReservation(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)
	in := CreateInput{
		ReservationID: fx.reservationID,
		Items:         []ItemInput{{DishName: "Soto", Qty: 1, UnitPrice: 500}},
	}

	_, _, err := fx.svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, _, err = fx.svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateBillUnknownReservation(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)

	_, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: uuid.New(),
		Items:         []ItemInput{{DishName: "Soto", Qty: 1, UnitPrice: 500}},
	})
	require.ErrorIs(t, err, ErrReservationMissing)
}

func TestCreateBillUnknownDealIsIgnored(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)
	ghost := uuid.New()

	created, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		Items:         []ItemInput{{DishName: "Bakso", Qty: 3, UnitPrice: 400, DealID: &ghost}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1200, created.Subtotal)
	require.EqualValues(t, 0, created.Discount)
	require.EqualValues(t, 1200, created.Total)
}

func TestPaySettlesBill(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)

	created, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		TaxBps:        1000,
		Items:         []ItemInput{{DishName: "Taco", Qty: 2, UnitPrice: 800, DealID: &fx.dealID}},
	})
	require.NoError(t, err)

	settled, err := fx.svc.Pay(context.Background(), created.ID, "qris")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, settled.Status)
	require.NotEmpty(t, settled.PaymentRef)
	require.NotNil(t, settled.PaidAt)

	_, err = fx.svc.Pay(context.Background(), created.ID, "qris")
	require.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestPayDeclinedMarksFailed(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)

	created, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		Items:         []ItemInput{{DishName: "Soto", Qty: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)

	settled, err := fx.svc.Pay(context.Background(), created.ID, "fail_card")
	require.ErrorIs(t, err, ErrPaymentDeclined)
	require.Equal(t, StatusFailed, settled.Status)

	// A declined bill can be retried with a working method.
	retried, err := fx.svc.Pay(context.Background(), created.ID, "qris")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, retried.Status)
}

func TestSettleFromCallbackIsIdempotent(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)
	sbx := payment.Sandbox{SecretKey: "secret"}

	created, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		TaxBps:        1000,
		Items:         []ItemInput{{DishName: "Taco", Qty: 2, UnitPrice: 800, DealID: &fx.dealID}},
	})
	require.NoError(t, err)

	body := sbx.SignCallback(created.ID.String(), "settlement", created.Total)
	cb, err := sbx.VerifyCallback(nil, body)
	require.NoError(t, err)

	first, err := fx.svc.SettleFromCallback(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, first.Status)

	// Replay acknowledges without flipping state.
	second, err := fx.svc.SettleFromCallback(context.Background(), cb)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, second.Status)
}

func TestSettleFromCallbackAmountMismatch(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)
	sbx := payment.Sandbox{SecretKey: "secret"}

	created, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		Items:         []ItemInput{{DishName: "Soto", Qty: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)

	body := sbx.SignCallback(created.ID.String(), "settlement", created.Total+1)
	cb, err := sbx.VerifyCallback(nil, body)
	require.NoError(t, err)

	_, err = fx.svc.SettleFromCallback(context.Background(), cb)
	require.Error(t, err)
}

type restrictedAuth struct {
	allowed uuid.UUID
}

func (a restrictedAuth) AuthorizeOwner(_ context.Context, restaurantID uuid.UUID) error {
	if restaurantID != a.allowed {
		return errors.New("denied")
	}
	return nil
}

func TestCreateBillForeignRestaurantForbidden(t *testing.T) {
	fx := newFixture(t, reservation.StatusCheckedIn)
	fx.svc.Auth = restrictedAuth{allowed: uuid.New()}

	_, _, err := fx.svc.Create(context.Background(), CreateInput{
		ReservationID: fx.reservationID,
		Items:         []ItemInput{{DishName: "Soto", Qty: 1, UnitPrice: 500}},
	})
	require.ErrorIs(t, err, ErrForbidden)
}
