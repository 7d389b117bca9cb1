package bill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	Pool *pgxpool.Pool
}

const billColumns = `id, reservation_id, restaurant_id, diner_id, status, currency,
	subtotal, discount_total, subtotal_after_discount, tax_amount, total, tax_bps,
	notes, payment_ref, paid_at, created_at`

func (s *PgStore) CreateBill(ctx context.Context, b Bill, lines []Line) (Bill, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Bill{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO bills (reservation_id, restaurant_id, diner_id, status, currency,
			subtotal, discount_total, subtotal_after_discount, tax_amount, total, tax_bps, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+billColumns,
		b.ReservationID, b.RestaurantID, b.DinerID, b.Status, b.Currency,
		b.Subtotal, b.Discount, b.SubtotalAfterDiscount, b.Tax, b.Total, b.TaxBps, b.Notes)
	created, err := scanBill(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Bill{}, ErrAlreadyExists
		}
		return Bill{}, err
	}

	for _, ln := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO bill_lines (bill_id, dish_name, qty, unit_price, subtotal, discount, deal_id, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			created.ID, ln.DishName, ln.Qty, ln.UnitPrice, ln.Subtotal, ln.Discount, ln.DealID, ln.SortOrder)
		if err != nil {
			return Bill{}, fmt.Errorf("insert bill line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Bill{}, err
	}
	return created, nil
}

func (s *PgStore) GetBill(ctx context.Context, id uuid.UUID) (Bill, error) {
	row := s.Pool.QueryRow(ctx, "SELECT "+billColumns+" FROM bills WHERE id = $1", id)
	return scanBill(row)
}

func (s *PgStore) GetBillByReservation(ctx context.Context, reservationID uuid.UUID) (Bill, error) {
	row := s.Pool.QueryRow(ctx, "SELECT "+billColumns+" FROM bills WHERE reservation_id = $1", reservationID)
	return scanBill(row)
}

func (s *PgStore) ListLines(ctx context.Context, billID uuid.UUID) ([]Line, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, bill_id, dish_name, qty, unit_price, subtotal, discount, deal_id, sort_order
		FROM bill_lines WHERE bill_id = $1 ORDER BY sort_order ASC`, billID)
	if err != nil {
		return nil, fmt.Errorf("list bill lines: %w", err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ID, &ln.BillID, &ln.DishName, &ln.Qty, &ln.UnitPrice,
			&ln.Subtotal, &ln.Discount, &ln.DealID, &ln.SortOrder); err != nil {
			return nil, fmt.Errorf("scan bill line: %w", err)
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

// Settle marks the settlement outcome. Paid bills stay paid; only unpaid or
// failed bills can change status.
func (s *PgStore) Settle(ctx context.Context, id uuid.UUID, status, paymentRef string, paidAt time.Time) (Bill, error) {
	var paidAtArg any
	if !paidAt.IsZero() {
		paidAtArg = paidAt
	}
	row := s.Pool.QueryRow(ctx, `
		UPDATE bills SET status = $2, payment_ref = $3, paid_at = $4
		WHERE id = $1 AND status <> $5
		RETURNING `+billColumns, id, status, paymentRef, paidAtArg, StatusPaid)
	settled, err := scanBill(row)
	if errors.Is(err, ErrNotFound) {
		if existing, getErr := s.GetBill(ctx, id); getErr == nil && existing.Status == StatusPaid {
			return Bill{}, ErrAlreadyPaid
		}
		return Bill{}, ErrNotFound
	}
	return settled, err
}

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.ReservationID, &b.RestaurantID, &b.DinerID, &b.Status, &b.Currency,
		&b.Subtotal, &b.Discount, &b.SubtotalAfterDiscount, &b.Tax, &b.Total, &b.TaxBps,
		&b.Notes, &b.PaymentRef, &b.PaidAt, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrNotFound
		}
		return Bill{}, fmt.Errorf("scan bill: %w", err)
	}
	return b, nil
}
