package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rizki-dev/backend-warung/internal/events"
	"github.com/rizki-dev/backend-warung/internal/lock"
	"github.com/rizki-dev/backend-warung/internal/obs"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusCheckedIn Status = "CHECKED_IN"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
)

var (
	ErrNotFound          = errors.New("reservation: not found")
	ErrSlotFull          = errors.New("reservation: slot is fully booked")
	ErrInvalidTransition = errors.New("reservation: invalid status transition")
	ErrPastSlot          = errors.New("reservation: slot is in the past")
	ErrForbidden         = errors.New("reservation: not allowed")
)

// Reservation is a diner's booking at a restaurant for a time slot.
type Reservation struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	DinerID      uuid.UUID `json:"diner_id"`
	PartySize    int       `json:"party_size"`
	SlotAt       time.Time `json:"slot_at"`
	Status       Status    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateInput carries a booking request.
type CreateInput struct {
	RestaurantID uuid.UUID
	DinerID      uuid.UUID
	PartySize    int
	SlotAt       time.Time
	Notes        string
}

// Store defines the persistence operations the reservation service needs.
type Store interface {
	Insert(ctx context.Context, in CreateInput) (Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (Reservation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (Reservation, error)
	CountActiveAtSlot(ctx context.Context, restaurantID uuid.UUID, slotAt time.Time) (int, error)
	ListByDiner(ctx context.Context, dinerID uuid.UUID) ([]Reservation, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, day time.Time) ([]Reservation, error)
}

// CapacityResolver reports how many concurrent reservations a restaurant
// accepts per slot.
type CapacityResolver interface {
	TableCount(ctx context.Context, restaurantID uuid.UUID) (int, error)
}

// Service manages the booking lifecycle. Slot capacity checks run under a
// Redis lock so two diners racing for the last table cannot both book it.
// OwnerAuthorizer verifies the caller operates the reservation's restaurant.
type OwnerAuthorizer interface {
	AuthorizeOwner(ctx context.Context, restaurantID uuid.UUID) error
}

type Service struct {
	Store    Store
	Capacity CapacityResolver
	Auth     OwnerAuthorizer
	Locker   lock.Locker
	Bus      *events.Bus
	HoldTTL  time.Duration
	Now      func() time.Time
}

func (s *Service) authorizeOperator(ctx context.Context, id uuid.UUID) error {
	if s.Auth == nil {
		return nil
	}
	existing, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Auth.AuthorizeOwner(ctx, existing.RestaurantID); err != nil {
		return ErrForbidden
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create books a slot for a diner.
func (s *Service) Create(ctx context.Context, in CreateInput) (Reservation, error) {
	if s == nil || s.Store == nil {
		return Reservation{}, errors.New("reservation: service not configured")
	}
	if in.RestaurantID == uuid.Nil || in.DinerID == uuid.Nil {
		return Reservation{}, errors.New("reservation: restaurant and diner are required")
	}
	if in.PartySize <= 0 {
		return Reservation{}, errors.New("reservation: party size must be positive")
	}
	in.SlotAt = in.SlotAt.UTC().Truncate(time.Minute)
	if !in.SlotAt.After(s.now()) {
		return Reservation{}, ErrPastSlot
	}

	ttl := s.HoldTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	var created Reservation
	err := s.Locker.WithLock(ctx, slotKey(in.RestaurantID, in.SlotAt), ttl, func(ctx context.Context) error {
		capacity := 1
		if s.Capacity != nil {
			tables, err := s.Capacity.TableCount(ctx, in.RestaurantID)
			if err != nil {
				return err
			}
			capacity = tables
		}
		booked, err := s.Store.CountActiveAtSlot(ctx, in.RestaurantID, in.SlotAt)
		if err != nil {
			return err
		}
		if booked >= capacity {
			return ErrSlotFull
		}
		created, err = s.Store.Insert(ctx, in)
		return err
	})
	if err != nil {
		return Reservation{}, err
	}

	countReservation("create", "ok")
	s.emit(ctx, events.TopicReservationCreated, created)
	return created, nil
}

// Get fetches one reservation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Reservation, error) {
	return s.Store.Get(ctx, id)
}

// CheckIn marks the diner as arrived. Only booked reservations can check in,
// and only by an operator of the restaurant.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (Reservation, error) {
	if err := s.authorizeOperator(ctx, id); err != nil {
		return Reservation{}, err
	}
	return s.transition(ctx, id, StatusBooked, StatusCheckedIn, events.TopicReservationCheckedIn)
}

// Complete closes out a checked-in reservation. Operator-owned like CheckIn.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (Reservation, error) {
	if err := s.authorizeOperator(ctx, id); err != nil {
		return Reservation{}, err
	}
	return s.transition(ctx, id, StatusCheckedIn, StatusCompleted, events.TopicReservationCompleted)
}

// Cancel aborts a booked reservation. CallerID must be the diner who owns it;
// pass uuid.Nil for operator-initiated cancellation.
func (s *Service) Cancel(ctx context.Context, id, callerID uuid.UUID) (Reservation, error) {
	if callerID != uuid.Nil {
		existing, err := s.Store.Get(ctx, id)
		if err != nil {
			return Reservation{}, err
		}
		if existing.DinerID != callerID {
			return Reservation{}, ErrForbidden
		}
	}
	return s.transition(ctx, id, StatusBooked, StatusCanceled, events.TopicReservationCanceled)
}

// ListForDiner returns the diner's reservations, newest slot first.
func (s *Service) ListForDiner(ctx context.Context, dinerID uuid.UUID) ([]Reservation, error) {
	return s.Store.ListByDiner(ctx, dinerID)
}

// ListForRestaurant returns reservations for one restaurant on the given day.
func (s *Service) ListForRestaurant(ctx context.Context, restaurantID uuid.UUID, day time.Time) ([]Reservation, error) {
	return s.Store.ListByRestaurant(ctx, restaurantID, day)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to Status, topic string) (Reservation, error) {
	updated, err := s.Store.UpdateStatus(ctx, id, from, to)
	if err != nil {
		countReservation(string(to), "rejected")
		return Reservation{}, err
	}
	countReservation(string(to), "ok")
	s.emit(ctx, topic, updated)
	return updated, nil
}

func countReservation(action, result string) {
	if obs.ReservationsTotal != nil {
		obs.ReservationsTotal.WithLabelValues(action, result).Inc()
	}
}

func (s *Service) emit(ctx context.Context, topic string, r Reservation) {
	if s.Bus == nil {
		return
	}
	payload := map[string]any{
		"reservation_id": r.ID,
		"restaurant_id":  r.RestaurantID,
		"diner_id":       r.DinerID,
		"party_size":     r.PartySize,
		"slot_at":        r.SlotAt,
		"status":         r.Status,
	}
	// Event delivery is best effort; booking state is already committed.
	_, _ = s.Bus.Emit(ctx, topic, r.ID, payload)
}

func slotKey(restaurantID uuid.UUID, slotAt time.Time) string {
	return fmt.Sprintf("resv:slot:%s:%d", restaurantID, slotAt.Unix())
}
