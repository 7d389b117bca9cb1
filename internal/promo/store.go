package promo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists deals in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

const dealColumns = `id, restaurant_id, title, kind, percent_bps, amount_minor, active, created_at, updated_at`

// CreateDeal inserts the deal row.
func (s PgStore) CreateDeal(ctx context.Context, d Deal) (Deal, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO deals (id, restaurant_id, title, kind, percent_bps, amount_minor, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+dealColumns,
		d.ID, d.RestaurantID, d.Title, d.Kind, d.PercentBps, d.AmountMinor, d.Active, d.CreatedAt, d.UpdatedAt,
	)
	return scanDeal(row)
}

// UpdateDeal rewrites the mutable columns of an existing deal.
func (s PgStore) UpdateDeal(ctx context.Context, d Deal) (Deal, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE deals
		SET title = $2, kind = $3, percent_bps = $4, amount_minor = $5, active = $6, updated_at = $7
		WHERE id = $1
		RETURNING `+dealColumns,
		d.ID, d.Title, d.Kind, d.PercentBps, d.AmountMinor, d.Active, d.UpdatedAt,
	)
	deal, err := scanDeal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	return deal, err
}

// GetDeal fetches one deal by id.
func (s PgStore) GetDeal(ctx context.Context, id uuid.UUID) (Deal, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id)
	deal, err := scanDeal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Deal{}, ErrNotFound
	}
	return deal, err
}

// ListDeals returns the restaurant's deals, newest first.
func (s PgStore) ListDeals(ctx context.Context, restaurantID uuid.UUID, onlyActive bool) ([]Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE restaurant_id = $1`
	if onlyActive {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC`
	rows, err := s.Pool.Query(ctx, query, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deals []Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

func scanDeal(row pgx.Row) (Deal, error) {
	var d Deal
	err := row.Scan(&d.ID, &d.RestaurantID, &d.Title, &d.Kind, &d.PercentBps, &d.AmountMinor, &d.Active, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}
