package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	Pool *pgxpool.Pool
}

const reservationColumns = `id, restaurant_id, diner_id, party_size, slot_at, status, notes, created_at, updated_at`

func (s *PgStore) Insert(ctx context.Context, in CreateInput) (Reservation, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO reservations (restaurant_id, diner_id, party_size, slot_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+reservationColumns,
		in.RestaurantID, in.DinerID, in.PartySize, in.SlotAt, StatusBooked, in.Notes)
	return scanReservation(row)
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (Reservation, error) {
	row := s.Pool.QueryRow(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = $1", id)
	return scanReservation(row)
}

// UpdateStatus transitions a reservation only when it currently holds the
// expected status. A row that exists in a different status yields
// ErrInvalidTransition.
func (s *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (Reservation, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE reservations SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+reservationColumns, id, from, to)
	updated, err := scanReservation(row)
	if errors.Is(err, ErrNotFound) {
		if _, getErr := s.Get(ctx, id); getErr == nil {
			return Reservation{}, ErrInvalidTransition
		}
		return Reservation{}, ErrNotFound
	}
	return updated, err
}

func (s *PgStore) CountActiveAtSlot(ctx context.Context, restaurantID uuid.UUID, slotAt time.Time) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM reservations
		WHERE restaurant_id = $1 AND slot_at = $2 AND status IN ($3, $4)`,
		restaurantID, slotAt, StatusBooked, StatusCheckedIn).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

func (s *PgStore) ListByDiner(ctx context.Context, dinerID uuid.UUID) ([]Reservation, error) {
	rows, err := s.Pool.Query(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE diner_id = $1 ORDER BY slot_at DESC", dinerID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

func (s *PgStore) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, day time.Time) ([]Reservation, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	rows, err := s.Pool.Query(ctx, `
		SELECT `+reservationColumns+` FROM reservations
		WHERE restaurant_id = $1 AND slot_at >= $2 AND slot_at < $3
		ORDER BY slot_at ASC`, restaurantID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

func collectReservations(rows pgx.Rows) ([]Reservation, error) {
	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (Reservation, error) {
	var r Reservation
	err := row.Scan(&r.ID, &r.RestaurantID, &r.DinerID, &r.PartySize, &r.SlotAt,
		&r.Status, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrNotFound
		}
		return Reservation{}, fmt.Errorf("scan reservation: %w", err)
	}
	return r, nil
}
