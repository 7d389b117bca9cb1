package favorites

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Favorite marks a restaurant a diner wants to keep track of.
type Favorite struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Cuisine      string    `json:"cuisine"`
	City         string    `json:"city"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store defines the persistence operations for favorites.
type Store interface {
	AddFavorite(ctx context.Context, dinerID, restaurantID uuid.UUID) error
	RemoveFavorite(ctx context.Context, dinerID, restaurantID uuid.UUID) error
	ListFavorites(ctx context.Context, dinerID uuid.UUID) ([]Favorite, error)
	HasFavorite(ctx context.Context, dinerID, restaurantID uuid.UUID) (bool, error)
}

type Service struct {
	Store Store
}

// Toggle adds the restaurant to the diner's favorites, or removes it when
// already present. It reports whether the restaurant is a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, dinerID, restaurantID uuid.UUID) (bool, error) {
	if s == nil || s.Store == nil {
		return false, errors.New("favorites service not configured")
	}
	has, err := s.Store.HasFavorite(ctx, dinerID, restaurantID)
	if err != nil {
		return false, err
	}
	if has {
		return false, s.Store.RemoveFavorite(ctx, dinerID, restaurantID)
	}
	return true, s.Store.AddFavorite(ctx, dinerID, restaurantID)
}

func (s *Service) List(ctx context.Context, dinerID uuid.UUID) ([]Favorite, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("favorites service not configured")
	}
	return s.Store.ListFavorites(ctx, dinerID)
}

// PgStore persists favorites in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

func (s *PgStore) AddFavorite(ctx context.Context, dinerID, restaurantID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO favorites (diner_id, restaurant_id)
		VALUES ($1, $2)
		ON CONFLICT (diner_id, restaurant_id) DO NOTHING`, dinerID, restaurantID)
	return err
}

func (s *PgStore) RemoveFavorite(ctx context.Context, dinerID, restaurantID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `
		DELETE FROM favorites WHERE diner_id = $1 AND restaurant_id = $2`, dinerID, restaurantID)
	return err
}

func (s *PgStore) ListFavorites(ctx context.Context, dinerID uuid.UUID) ([]Favorite, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT f.restaurant_id, r.name, r.slug, r.cuisine, r.city, f.created_at
		FROM favorites f
		JOIN restaurants r ON r.id = f.restaurant_id
		WHERE f.diner_id = $1
		ORDER BY f.created_at DESC`, dinerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.RestaurantID, &f.Name, &f.Slug, &f.Cuisine, &f.City, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *PgStore) HasFavorite(ctx context.Context, dinerID, restaurantID uuid.UUID) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM favorites WHERE diner_id = $1 AND restaurant_id = $2
		)`, dinerID, restaurantID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return exists, err
}
