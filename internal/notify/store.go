package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rizki-dev/backend-warung/internal/events"
)

// Delivery status values mirror the webhook_deliveries.status column.
const (
	DeliveryPending    = "PENDING"
	DeliveryDelivering = "DELIVERING"
	DeliveryDelivered  = "DELIVERED"
	DeliveryFailed     = "FAILED"
	DeliveryDLQ        = "DLQ"
)

var ErrEndpointNotFound = errors.New("webhook endpoint not found")

// Endpoint is a registered webhook receiver subscribed to one or more topics.
type Endpoint struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Active    bool      `json:"active"`
	Topics    []string  `json:"topics"`
	CreatedAt time.Time `json:"created_at"`
}

// Delivery tracks one event-to-endpoint delivery attempt chain.
type Delivery struct {
	ID             uuid.UUID `json:"id"`
	EndpointID     uuid.UUID `json:"endpoint_id"`
	EventID        uuid.UUID `json:"event_id"`
	Status         string    `json:"status"`
	Attempt        int32     `json:"attempt"`
	MaxAttempt     int32     `json:"max_attempt"`
	NextAttemptAt  time.Time `json:"next_attempt_at"`
	ResponseStatus int32     `json:"response_status,omitempty"`
	ResponseBody   string    `json:"response_body,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DeliveryFilter narrows delivery listings for the admin surface.
type DeliveryFilter struct {
	EndpointID uuid.UUID
	EventID    uuid.UUID
	Status     string
	Limit      int32
	Offset     int32
}

// Store defines the persistence operations required for webhook management.
type Store interface {
	CreateEndpoint(ctx context.Context, name, url, secret string, active bool, topics []string) (Endpoint, error)
	UpdateEndpoint(ctx context.Context, id uuid.UUID, name, url, secret string, active bool, topics []string) (Endpoint, error)
	GetEndpoint(ctx context.Context, id uuid.UUID) (Endpoint, error)
	ListEndpoints(ctx context.Context, limit, offset int32) ([]Endpoint, error)
	DeleteEndpoint(ctx context.Context, id uuid.UUID) error
	ListActiveEndpointsForTopic(ctx context.Context, topic string) ([]Endpoint, error)

	EnqueueDelivery(ctx context.Context, endpointID, eventID uuid.UUID, maxAttempt int32) (Delivery, error)
	DequeueDueDeliveries(ctx context.Context, limit int32) ([]Delivery, error)
	MarkDelivering(ctx context.Context, id uuid.UUID) error
	MarkDelivered(ctx context.Context, id uuid.UUID, responseStatus int32, responseBody string) error
	MarkFailedWithBackoff(ctx context.Context, id uuid.UUID, delaySec int32, lastError string) error
	MoveToDLQ(ctx context.Context, id uuid.UUID, lastError string) error
	GetDelivery(ctx context.Context, id uuid.UUID) (Delivery, error)
	ResetDeliveryForReplay(ctx context.Context, id uuid.UUID) (Delivery, error)
	ListDeliveries(ctx context.Context, f DeliveryFilter) ([]Delivery, error)
	CountDeliveries(ctx context.Context, f DeliveryFilter) (int64, error)

	GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error)
}

// PgStore persists webhook endpoints and deliveries in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

const endpointColumns = `id, name, url, secret, active, topics, created_at`

func scanEndpoint(row pgx.Row) (Endpoint, error) {
	var ep Endpoint
	err := row.Scan(&ep.ID, &ep.Name, &ep.URL, &ep.Secret, &ep.Active, &ep.Topics, &ep.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Endpoint{}, ErrEndpointNotFound
	}
	return ep, err
}

func (s *PgStore) CreateEndpoint(ctx context.Context, name, url, secret string, active bool, topics []string) (Endpoint, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO webhook_endpoints (name, url, secret, active, topics)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+endpointColumns,
		name, url, secret, active, topics)
	return scanEndpoint(row)
}

func (s *PgStore) UpdateEndpoint(ctx context.Context, id uuid.UUID, name, url, secret string, active bool, topics []string) (Endpoint, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE webhook_endpoints
		SET name = $2, url = $3, secret = $4, active = $5, topics = $6
		WHERE id = $1
		RETURNING `+endpointColumns,
		id, name, url, secret, active, topics)
	return scanEndpoint(row)
}

func (s *PgStore) GetEndpoint(ctx context.Context, id uuid.UUID) (Endpoint, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+endpointColumns+` FROM webhook_endpoints WHERE id = $1`, id)
	return scanEndpoint(row)
}

func (s *PgStore) ListEndpoints(ctx context.Context, limit, offset int32) ([]Endpoint, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+endpointColumns+`
		FROM webhook_endpoints
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEndpoints(rows)
}

func (s *PgStore) DeleteEndpoint(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM webhook_endpoints WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEndpointNotFound
	}
	return nil
}

func (s *PgStore) ListActiveEndpointsForTopic(ctx context.Context, topic string) ([]Endpoint, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+endpointColumns+`
		FROM webhook_endpoints
		WHERE active AND $1 = ANY (topics)
		ORDER BY created_at`, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEndpoints(rows)
}

func collectEndpoints(rows pgx.Rows) ([]Endpoint, error) {
	var out []Endpoint
	for rows.Next() {
		var ep Endpoint
		if err := rows.Scan(&ep.ID, &ep.Name, &ep.URL, &ep.Secret, &ep.Active, &ep.Topics, &ep.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

const deliveryColumns = `id, endpoint_id, event_id, status, attempt, max_attempt, next_attempt_at,
	COALESCE(response_status, 0), COALESCE(response_body, ''), COALESCE(last_error, ''), created_at`

func scanDelivery(row pgx.Row) (Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.EndpointID, &d.EventID, &d.Status, &d.Attempt, &d.MaxAttempt,
		&d.NextAttemptAt, &d.ResponseStatus, &d.ResponseBody, &d.LastError, &d.CreatedAt)
	return d, err
}

func (s *PgStore) EnqueueDelivery(ctx context.Context, endpointID, eventID uuid.UUID, maxAttempt int32) (Delivery, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO webhook_deliveries (endpoint_id, event_id, status, max_attempt, next_attempt_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING `+deliveryColumns,
		endpointID, eventID, DeliveryPending, maxAttempt)
	return scanDelivery(row)
}

// DequeueDueDeliveries claims due rows with SKIP LOCKED so concurrent workers
// never pick up the same delivery.
func (s *PgStore) DequeueDueDeliveries(ctx context.Context, limit int32) ([]Delivery, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM webhook_deliveries
		WHERE status IN ($1, $2) AND next_attempt_at <= now()
		ORDER BY next_attempt_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		DeliveryPending, DeliveryFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.EndpointID, &d.EventID, &d.Status, &d.Attempt, &d.MaxAttempt,
			&d.NextAttemptAt, &d.ResponseStatus, &d.ResponseBody, &d.LastError, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PgStore) MarkDelivering(ctx context.Context, id uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = $2, attempt = attempt + 1
		WHERE id = $1`, id, DeliveryDelivering)
	return err
}

func (s *PgStore) MarkDelivered(ctx context.Context, id uuid.UUID, responseStatus int32, responseBody string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = $2, response_status = NULLIF($3, 0), response_body = NULLIF($4, ''), last_error = NULL
		WHERE id = $1`, id, DeliveryDelivered, responseStatus, responseBody)
	return err
}

func (s *PgStore) MarkFailedWithBackoff(ctx context.Context, id uuid.UUID, delaySec int32, lastError string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE webhook_deliveries
		SET status = $2, last_error = $3, next_attempt_at = now() + make_interval(secs => $4)
		WHERE id = $1`, id, DeliveryFailed, lastError, delaySec)
	return err
}

func (s *PgStore) MoveToDLQ(ctx context.Context, id uuid.UUID, lastError string) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, `
		UPDATE webhook_deliveries SET status = $2, last_error = $3 WHERE id = $1`,
		id, DeliveryDLQ, lastError); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO webhook_dlq (delivery_id, reason) VALUES ($1, $2)
		ON CONFLICT (delivery_id) DO UPDATE SET reason = EXCLUDED.reason`,
		id, lastError); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PgStore) GetDelivery(ctx context.Context, id uuid.UUID) (Delivery, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+deliveryColumns+` FROM webhook_deliveries WHERE id = $1`, id)
	return scanDelivery(row)
}

// ResetDeliveryForReplay returns a delivery to PENDING with a fresh attempt
// counter and removes its DLQ record.
func (s *PgStore) ResetDeliveryForReplay(ctx context.Context, id uuid.UUID) (Delivery, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Delivery{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	row := tx.QueryRow(ctx, `
		UPDATE webhook_deliveries
		SET status = $2, attempt = 0, last_error = NULL, next_attempt_at = now()
		WHERE id = $1
		RETURNING `+deliveryColumns, id, DeliveryPending)
	d, err := scanDelivery(row)
	if err != nil {
		return Delivery{}, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM webhook_dlq WHERE delivery_id = $1`, id); err != nil {
		return Delivery{}, err
	}
	return d, tx.Commit(ctx)
}

func (s *PgStore) ListDeliveries(ctx context.Context, f DeliveryFilter) ([]Delivery, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM webhook_deliveries
		WHERE ($1::uuid IS NULL OR endpoint_id = $1)
		  AND ($2::uuid IS NULL OR event_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`,
		nullableUUID(f.EndpointID), nullableUUID(f.EventID), f.Status, f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.EndpointID, &d.EventID, &d.Status, &d.Attempt, &d.MaxAttempt,
			&d.NextAttemptAt, &d.ResponseStatus, &d.ResponseBody, &d.LastError, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PgStore) CountDeliveries(ctx context.Context, f DeliveryFilter) (int64, error) {
	var total int64
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM webhook_deliveries
		WHERE ($1::uuid IS NULL OR endpoint_id = $1)
		  AND ($2::uuid IS NULL OR event_id = $2)
		  AND ($3 = '' OR status = $3)`,
		nullableUUID(f.EndpointID), nullableUUID(f.EventID), f.Status).Scan(&total)
	return total, err
}

func (s *PgStore) GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error) {
	var ev events.Event
	err := s.Pool.QueryRow(ctx, `
		SELECT id, topic, aggregate_id, payload, occurred_at
		FROM domain_events WHERE id = $1`, id).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
