package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists reviews in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

const reviewColumns = `id, restaurant_id, diner_id, rating, COALESCE(comment, ''), created_at`

func (s *PgStore) CreateReview(ctx context.Context, restaurantID, dinerID uuid.UUID, rating int32, comment string) (Review, error) {
	var rv Review
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO reviews (restaurant_id, diner_id, rating, comment)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING `+reviewColumns,
		restaurantID, dinerID, rating, comment).
		Scan(&rv.ID, &rv.RestaurantID, &rv.DinerID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Review{}, ErrAlreadyReviewed
		}
		return Review{}, err
	}
	return rv, nil
}

func (s *PgStore) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]Review, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+reviewColumns+`
		FROM reviews
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, restaurantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.RestaurantID, &rv.DinerID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (s *PgStore) GetStats(ctx context.Context, restaurantID uuid.UUID) (Stats, error) {
	stats := Stats{RestaurantID: restaurantID}
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(AVG(rating), 0)
		FROM reviews
		WHERE restaurant_id = $1`, restaurantID).
		Scan(&stats.ReviewCount, &stats.AverageRating)
	return stats, err
}

func (s *PgStore) DeleteReview(ctx context.Context, id, dinerID uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1 AND diner_id = $2`, id, dinerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) HasReview(ctx context.Context, restaurantID, dinerID uuid.UUID) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reviews WHERE restaurant_id = $1 AND diner_id = $2
		)`, restaurantID, dinerID).Scan(&exists)
	return exists, err
}

// ReservationVisits answers visit checks from the reservations table.
type ReservationVisits struct {
	Pool *pgxpool.Pool
}

func (v ReservationVisits) HasCompletedVisit(ctx context.Context, restaurantID, dinerID uuid.UUID) (bool, error) {
	var exists bool
	err := v.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE restaurant_id = $1 AND diner_id = $2 AND status = 'COMPLETED'
		)`, restaurantID, dinerID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return exists, err
}
