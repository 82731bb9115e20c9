package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PipelineEvent is one row in the audit trail of status changes.
type PipelineEvent struct {
	ID             uuid.UUID
	ConsultationID uuid.UUID
	FromStatus     string
	ToStatus       string
	Actor          *uuid.UUID
	Note           *string
	CreatedAt      time.Time
}

// AppendEvent records a status change in the audit trail.
func (r *Repository) AppendEvent(ctx context.Context, consultationID uuid.UUID, fromStatus, toStatus string, actor *uuid.UUID, note *string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pipeline_events (consultation_id, from_status, to_status, actor, note)
		VALUES ($1, $2, $3, $4, $5)`,
		consultationID, fromStatus, toStatus, actor, note,
	)
	return err
}

// ListEvents returns the audit trail for a consultation, oldest first.
func (r *Repository) ListEvents(ctx context.Context, consultationID uuid.UUID) ([]PipelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, consultation_id, from_status, to_status, actor, note, created_at
		FROM pipeline_events
		WHERE consultation_id = $1
		ORDER BY created_at ASC`,
		consultationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PipelineEvent
	for rows.Next() {
		var e PipelineEvent
		if err := rows.Scan(&e.ID, &e.ConsultationID, &e.FromStatus, &e.ToStatus, &e.Actor, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
