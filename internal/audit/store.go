package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore persists audit entries in Postgres.
type PgStore struct {
	Pool *pgxpool.Pool
}

const entryColumns = `id, actor_kind, COALESCE(actor_user_id, '00000000-0000-0000-0000-000000000000'),
	action, resource_type, COALESCE(resource_id, ''), method, path, COALESCE(route, ''),
	status, COALESCE(ip, ''), COALESCE(user_agent, ''), COALESCE(request_id, ''), metadata, created_at`

func (s *PgStore) InsertAuditLog(ctx context.Context, e Entry) (Entry, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO audit_logs (actor_kind, actor_user_id, action, resource_type, resource_id,
			method, path, route, status, ip, user_agent, request_id, metadata)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, NULLIF($8, ''), $9,
			NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13)
		RETURNING `+entryColumns,
		e.ActorKind, nullableUUID(e.ActorUserID), e.Action, e.ResourceType, e.ResourceID,
		e.Method, e.Path, e.Route, e.Status, e.IP, e.UserAgent, e.RequestID, e.Metadata)
	var out Entry
	err := row.Scan(&out.ID, &out.ActorKind, &out.ActorUserID, &out.Action, &out.ResourceType,
		&out.ResourceID, &out.Method, &out.Path, &out.Route, &out.Status, &out.IP,
		&out.UserAgent, &out.RequestID, &out.Metadata, &out.CreatedAt)
	return out, err
}

func (s *PgStore) ListAuditLogs(ctx context.Context, limit, offset int32) ([]Entry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorKind, &e.ActorUserID, &e.Action, &e.ResourceType,
			&e.ResourceID, &e.Method, &e.Path, &e.Route, &e.Status, &e.IP,
			&e.UserAgent, &e.RequestID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
