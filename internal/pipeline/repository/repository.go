// Package repository persists consultation requests and their pipeline state.
//
// Every transition is expressed as a single conditional update keyed on the
// expected current status, so two concurrent admin actions on the same record
// cannot both win. Callers receive ErrStaleStatus when the row existed but was
// not in the expected state.
package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"concierge_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the consultation does not exist.
	ErrNotFound = errors.New("consultation not found")
	// ErrStaleStatus indicates a conditional update matched the id but not
	// the expected status. The caller disambiguates expected-state conflicts
	// from missing rows.
	ErrStaleStatus = errors.New("consultation not in expected status")
	// ErrDuplicateEmail indicates an active pipeline run already exists for
	// the email.
	ErrDuplicateEmail = errors.New("active consultation already exists for email")
)

// Consultation is a lead record across its whole lifecycle, from public
// submission to registered client.
type Consultation struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Phone    string

	CurrentRole  *string
	RoleInterest *string
	Message      *string

	TimeSlot1 *time.Time
	TimeSlot2 *time.Time
	TimeSlot3 *time.Time

	PipelineStatus     domain.PipelineStatus
	ConsultationStatus domain.ConsultationStatus
	WorkflowStage      string

	SelectedTimeSlot *int
	ConfirmedTime    *time.Time
	MeetingLink      *string
	MeetingType      *string

	ConsultationOutcome *string
	RejectionReason     *string

	RegistrationTokenHash *string
	TokenExpiresAt        *time.Time
	TokenUsed             bool

	PaymentAmountCents *int64
	PaymentMethod      *string
	PaymentReference   *string
	PaymentReceived    bool
	PaymentReceivedAt  *time.Time

	ReviewedAt   *time.Time
	ApprovedAt   *time.Time
	RegisteredAt *time.Time

	ReviewedBy  *uuid.UUID
	ApprovedBy  *uuid.UUID
	ConfirmedBy *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

const consultationColumns = `
	id, full_name, email, phone, current_role, role_interest, message,
	time_slot_1, time_slot_2, time_slot_3,
	pipeline_status, consultation_status, workflow_stage,
	selected_time_slot, confirmed_time, meeting_link, meeting_type,
	consultation_outcome, rejection_reason,
	registration_token, token_expires_at, token_used,
	payment_amount_cents, payment_method, payment_reference, payment_received, payment_received_at,
	reviewed_at, approved_at, registered_at,
	reviewed_by, approved_by, confirmed_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsultation(row rowScanner) (Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.FullName, &c.Email, &c.Phone, &c.CurrentRole, &c.RoleInterest, &c.Message,
		&c.TimeSlot1, &c.TimeSlot2, &c.TimeSlot3,
		&c.PipelineStatus, &c.ConsultationStatus, &c.WorkflowStage,
		&c.SelectedTimeSlot, &c.ConfirmedTime, &c.MeetingLink, &c.MeetingType,
		&c.ConsultationOutcome, &c.RejectionReason,
		&c.RegistrationTokenHash, &c.TokenExpiresAt, &c.TokenUsed,
		&c.PaymentAmountCents, &c.PaymentMethod, &c.PaymentReference, &c.PaymentReceived, &c.PaymentReceivedAt,
		&c.ReviewedAt, &c.ApprovedAt, &c.RegisteredAt,
		&c.ReviewedBy, &c.ApprovedBy, &c.ConfirmedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// Repository persists consultations using a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a consultation repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateParams holds the public submission fields.
type CreateParams struct {
	FullName     string
	Email        string
	Phone        string
	CurrentRole  *string
	RoleInterest *string
	Message      *string
	TimeSlot1    *time.Time
	TimeSlot2    *time.Time
	TimeSlot3    *time.Time
}

// Create inserts a fresh consultation in lead/pending state. A partial unique
// index on email over non-terminal rows enforces one active run per email.
func (r *Repository) Create(ctx context.Context, p CreateParams) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO consultations (
			full_name, email, phone, current_role, role_interest, message,
			time_slot_1, time_slot_2, time_slot_3,
			pipeline_status, consultation_status, workflow_stage
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+consultationColumns,
		p.FullName, p.Email, p.Phone, p.CurrentRole, p.RoleInterest, p.Message,
		p.TimeSlot1, p.TimeSlot2, p.TimeSlot3,
		domain.StatusLead, domain.ConsultationPending, domain.WorkflowStageConsultation,
	)

	c, err := scanConsultation(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Consultation{}, ErrDuplicateEmail
		}
		return Consultation{}, err
	}
	return c, nil
}

// GetByID fetches a consultation by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+consultationColumns+` FROM consultations WHERE id = $1`, id)
	c, err := scanConsultation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Consultation{}, ErrNotFound
	}
	return c, err
}

// List returns consultations, newest first, optionally filtered by pipeline status.
func (r *Repository) List(ctx context.Context, status *domain.PipelineStatus, limit int) ([]Consultation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + consultationColumns + ` FROM consultations`
	args := []any{}
	if status != nil {
		query += ` WHERE pipeline_status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkUnderReview advances lead -> under_review.
func (r *Repository) MarkUnderReview(ctx context.Context, id, reviewerID uuid.UUID) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET pipeline_status = $3, reviewed_at = now(), reviewed_by = $2, updated_at = now()
		WHERE id = $1 AND pipeline_status = $4
		RETURNING `+consultationColumns,
		id, reviewerID, domain.StatusUnderReview, domain.StatusLead,
	)
	return r.casResult(ctx, id, row)
}

// Approve advances under_review -> approved and stores the freshly issued
// registration token hash.
func (r *Repository) Approve(ctx context.Context, id, approverID uuid.UUID, tokenHash string, expiresAt time.Time) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET pipeline_status = $5, approved_at = now(), approved_by = $2,
		    registration_token = $3, token_expires_at = $4, token_used = FALSE,
		    updated_at = now()
		WHERE id = $1 AND pipeline_status = $6
		RETURNING `+consultationColumns,
		id, approverID, tokenHash, expiresAt, domain.StatusApproved, domain.StatusUnderReview,
	)
	return r.casResult(ctx, id, row)
}

// Reject moves any non-client record to the terminal rejected state. The
// stored token, if any, is cleared so a rejected lead can never register.
func (r *Repository) Reject(ctx context.Context, id uuid.UUID, reason *string) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET pipeline_status = $2, rejection_reason = $3,
		    registration_token = NULL, token_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1 AND pipeline_status <> $4
		RETURNING `+consultationColumns,
		id, domain.StatusRejected, reason, domain.StatusClient,
	)
	return r.casResult(ctx, id, row)
}

// ConfirmTimeSlot advances the scheduling axis pending -> confirmed.
func (r *Repository) ConfirmTimeSlot(ctx context.Context, id, adminID uuid.UUID, slot int, confirmedTime time.Time, meetingLink, meetingType *string) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET consultation_status = $6, selected_time_slot = $2, confirmed_time = $3,
		    meeting_link = $4, meeting_type = $5, confirmed_by = $7, updated_at = now()
		WHERE id = $1 AND consultation_status = $8 AND pipeline_status NOT IN ($9, $10)
		RETURNING `+consultationColumns,
		id, slot, confirmedTime, meetingLink, meetingType,
		domain.ConsultationConfirmed, adminID, domain.ConsultationPending,
		domain.StatusRejected, domain.StatusClient,
	)
	return r.casResult(ctx, id, row)
}

// RequestNewTimes moves pending/confirmed -> awaiting_new_times and clears any
// previously confirmed slot.
func (r *Repository) RequestNewTimes(ctx context.Context, id uuid.UUID) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET consultation_status = $2, selected_time_slot = NULL, confirmed_time = NULL,
		    updated_at = now()
		WHERE id = $1 AND consultation_status IN ($3, $4) AND pipeline_status NOT IN ($5, $6)
		RETURNING `+consultationColumns,
		id, domain.ConsultationAwaitingNewTimes,
		domain.ConsultationPending, domain.ConsultationConfirmed,
		domain.StatusRejected, domain.StatusClient,
	)
	return r.casResult(ctx, id, row)
}

// ResubmitTimeSlots stores the lead's replacement slots and returns the
// scheduling axis to pending.
func (r *Repository) ResubmitTimeSlots(ctx context.Context, id uuid.UUID, s1, s2, s3 *time.Time) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET consultation_status = $5, time_slot_1 = $2, time_slot_2 = $3, time_slot_3 = $4,
		    updated_at = now()
		WHERE id = $1 AND consultation_status = $6
		RETURNING `+consultationColumns,
		id, s1, s2, s3, domain.ConsultationPending, domain.ConsultationAwaitingNewTimes,
	)
	return r.casResult(ctx, id, row)
}

// CompleteConsultation records the consultation outcome.
func (r *Repository) CompleteConsultation(ctx context.Context, id uuid.UUID, outcome string) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET consultation_status = $3, consultation_outcome = $2, updated_at = now()
		WHERE id = $1 AND consultation_status = $4
		RETURNING `+consultationColumns,
		id, outcome, domain.ConsultationCompleted, domain.ConsultationConfirmed,
	)
	return r.casResult(ctx, id, row)
}

// RecordPayment stores the payment and the payment-variant registration token,
// moving the workflow to awaiting registration.
func (r *Repository) RecordPayment(ctx context.Context, id uuid.UUID, amountCents int64, method, reference *string, tokenHash string, expiresAt time.Time) (Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET consultation_status = $6, workflow_stage = $7,
		    payment_amount_cents = $2, payment_method = $3, payment_reference = $4,
		    payment_received = TRUE, payment_received_at = now(),
		    registration_token = $5, token_expires_at = $8, token_used = FALSE,
		    updated_at = now()
		WHERE id = $1 AND consultation_status = $9 AND consultation_outcome = $10
		RETURNING `+consultationColumns,
		id, amountCents, method, reference, tokenHash,
		domain.ConsultationPaymentReceived, domain.WorkflowStageAwaitingRegistration,
		expiresAt, domain.ConsultationCompleted, domain.OutcomeProceeding,
	)
	return r.casResult(ctx, id, row)
}

// casResult turns a zero-row conditional update into ErrStaleStatus when the
// record exists, or ErrNotFound when it does not.
func (r *Repository) casResult(ctx context.Context, id uuid.UUID, row rowScanner) (Consultation, error) {
	c, err := scanConsultation(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Consultation{}, err
	}

	var exists bool
	if probeErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM consultations WHERE id = $1)`, id).Scan(&exists); probeErr != nil {
		return Consultation{}, probeErr
	}
	if !exists {
		return Consultation{}, ErrNotFound
	}
	return Consultation{}, ErrStaleStatus
}
