package restaurant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	Pool *pgxpool.Pool
}

const restaurantColumns = `id, owner_id, name, slug, cuisine, city, address, description, table_count, created_at`

func (s *PgStore) ListRestaurants(ctx context.Context, p ListParams) ([]Restaurant, int64, error) {
	where := []string{"1=1"}
	args := []any{}
	if p.Query != "" {
		args = append(args, "%"+strings.ToLower(p.Query)+"%")
		where = append(where, fmt.Sprintf("lower(name) LIKE $%d", len(args)))
	}
	if p.Cuisine != "" {
		args = append(args, p.Cuisine)
		where = append(where, fmt.Sprintf("lower(cuisine) = lower($%d)", len(args)))
	}
	if p.City != "" {
		args = append(args, p.City)
		where = append(where, fmt.Sprintf("lower(city) = lower($%d)", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM restaurants WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count restaurants: %w", err)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	page := p.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf("SELECT %s FROM restaurants WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		restaurantColumns, cond, len(args)-1, len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	var out []Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *PgStore) GetRestaurantBySlug(ctx context.Context, slug string) (Restaurant, error) {
	row := s.Pool.QueryRow(ctx,
		"SELECT "+restaurantColumns+" FROM restaurants WHERE slug = $1", slug)
	return scanRestaurant(row)
}

func (s *PgStore) GetRestaurantByID(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	row := s.Pool.QueryRow(ctx,
		"SELECT "+restaurantColumns+" FROM restaurants WHERE id = $1", id)
	return scanRestaurant(row)
}

func (s *PgStore) OwnerID(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := s.Pool.QueryRow(ctx,
		"SELECT owner_id FROM restaurants WHERE id = $1", id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("owner id: %w", err)
	}
	return owner, nil
}

func (s *PgStore) ListMenu(ctx context.Context, restaurantID uuid.UUID, availableOnly bool) ([]MenuItem, error) {
	query := `SELECT id, restaurant_id, name, category, price_minor, available
		FROM menu_items WHERE restaurant_id = $1`
	if availableOnly {
		query += " AND available"
	}
	query += " ORDER BY category, name"

	rows, err := s.Pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	defer rows.Close()

	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Category, &m.PriceMinor, &m.Available); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanRestaurant(row pgx.Row) (Restaurant, error) {
	var r Restaurant
	err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Slug, &r.Cuisine, &r.City,
		&r.Address, &r.Description, &r.TableCount, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Restaurant{}, ErrNotFound
		}
		return Restaurant{}, fmt.Errorf("scan restaurant: %w", err)
	}
	return r, nil
}
