package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgQuerier aggregates revenue straight from the billing tables.
type PgQuerier struct {
	Pool *pgxpool.Pool
}

func (q *PgQuerier) RevenueDailyRange(ctx context.Context, restaurantID uuid.UUID, from, to time.Time) ([]RevenueDay, error) {
	rows, err := q.Pool.Query(ctx, `
		SELECT date_trunc('day', paid_at) AS day,
		       COUNT(*),
		       SUM(subtotal),
		       SUM(discount_total),
		       SUM(tax_amount),
		       SUM(total)
		FROM bills
		WHERE restaurant_id = $1
		  AND status = 'PAID'
		  AND paid_at >= $2 AND paid_at < $3
		GROUP BY day
		ORDER BY day`, restaurantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RevenueDay
	for rows.Next() {
		var d RevenueDay
		if err := rows.Scan(&d.Day, &d.BillCount, &d.GrossMinor, &d.DiscountMinor, &d.TaxMinor, &d.TotalMinor); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *PgQuerier) TopDishes(ctx context.Context, restaurantID uuid.UUID, limit, offset int32) ([]TopDish, error) {
	rows, err := q.Pool.Query(ctx, `
		SELECT l.dish_name,
		       SUM(l.qty),
		       SUM(l.subtotal - l.discount)
		FROM bill_lines l
		JOIN bills b ON b.id = l.bill_id
		WHERE b.restaurant_id = $1 AND b.status = 'PAID'
		GROUP BY l.dish_name
		ORDER BY SUM(l.quantity) DESC, l.dish_name
		LIMIT $2 OFFSET $3`, restaurantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopDish
	for rows.Next() {
		var d TopDish
		if err := rows.Scan(&d.DishName, &d.Quantity, &d.RevenueMinor); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
