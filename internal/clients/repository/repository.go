// Package repository persists client accounts and profiles.
//
// Registration is a single transaction spanning the consultation row and the
// new client row: the stored token is consumed (cleared and marked used) with
// a conditional update, the user identity is created, and the client profile
// is inserted. If the token was already consumed the whole transaction fails,
// so a replayed registration link can never create a second account.
package repository

import (
	"context"
	"errors"
	"time"

	"concierge_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the client does not exist.
	ErrNotFound = errors.New("client not found")
	// ErrTokenConsumed indicates the stored token was already used or the
	// consultation already converted.
	ErrTokenConsumed = errors.New("registration token already consumed")
	// ErrEmailTaken indicates a user account already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrOnboardingDone indicates onboarding was already submitted.
	ErrOnboardingDone = errors.New("onboarding already submitted")
	// ErrUnlockBlocked indicates the profile cannot be unlocked in its
	// current onboarding state.
	ErrUnlockBlocked = errors.New("profile cannot be unlocked")
)

// Client is a registered client account with its profile fields.
type Client struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ConsultationID uuid.UUID

	FullName string
	Email    string
	Phone    *string

	LinkedInURL         *string
	CurrentJobTitle     *string
	TargetJobTitle      *string
	YearsExperience     *int
	Country             *string
	Location            *string
	RoleTargets         *string
	LocationPreferences *string
	MinimumSalary       *int64
	ResumeURL           *string

	Age               *int
	ProfilePictureURL *string
	EmploymentStatus  *string
	TargetMarket      *string

	OnboardingCompleted   bool
	OnboardingAnswers     []byte
	OnboardingSubmittedAt *time.Time
	ProfileUnlocked       bool
	ProfileUnlockedAt     *time.Time
	UnlockedBy            *uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConsultationSnapshot is the slice of the consultation row needed for token
// redemption and profile merging.
type ConsultationSnapshot struct {
	ID             uuid.UUID
	FullName       string
	Email          string
	Phone          string
	CurrentRole    *string
	RoleInterest   *string
	PipelineStatus domain.PipelineStatus
	TokenHash      *string
	TokenExpiresAt *time.Time
	TokenUsed      bool
}

const clientColumns = `
	c.id, c.user_id, c.consultation_id, c.full_name, c.email, c.phone,
	c.linkedin_url, c.current_job_title, c.target_job_title, c.years_experience,
	c.country, c.location, c.role_targets, c.location_preferences,
	c.minimum_salary, c.resume_url,
	c.age, c.profile_picture_url, c.employment_status, c.target_market,
	c.onboarding_completed, c.onboarding_answers, c.onboarding_submitted_at,
	c.profile_unlocked, c.profile_unlocked_at, c.unlocked_by,
	c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.UserID, &c.ConsultationID, &c.FullName, &c.Email, &c.Phone,
		&c.LinkedInURL, &c.CurrentJobTitle, &c.TargetJobTitle, &c.YearsExperience,
		&c.Country, &c.Location, &c.RoleTargets, &c.LocationPreferences,
		&c.MinimumSalary, &c.ResumeURL,
		&c.Age, &c.ProfilePictureURL, &c.EmploymentStatus, &c.TargetMarket,
		&c.OnboardingCompleted, &c.OnboardingAnswers, &c.OnboardingSubmittedAt,
		&c.ProfileUnlocked, &c.ProfileUnlockedAt, &c.UnlockedBy,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// Repository persists clients using a pgx pool.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a client repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ConsultationForRegistration loads the consultation fields needed to redeem
// a registration token.
func (r *Repository) ConsultationForRegistration(ctx context.Context, id uuid.UUID) (ConsultationSnapshot, error) {
	var s ConsultationSnapshot
	err := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email, phone, current_role, role_interest,
		       pipeline_status, registration_token, token_expires_at, token_used
		FROM consultations WHERE id = $1`, id,
	).Scan(&s.ID, &s.FullName, &s.Email, &s.Phone, &s.CurrentRole, &s.RoleInterest,
		&s.PipelineStatus, &s.TokenHash, &s.TokenExpiresAt, &s.TokenUsed)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConsultationSnapshot{}, ErrNotFound
	}
	return s, err
}

// RegisterParams holds everything needed to convert a consultation into a
// client account.
type RegisterParams struct {
	ConsultationID uuid.UUID
	FullName       string
	Email          string
	Phone          *string
	CurrentRole    *string
	RoleInterest   *string
	PasswordHash   string
	TokenHash      string
}

// Register converts an approved (or paid) consultation into a client account
// in one transaction: consume the token, create the user identity, insert the
// profile. The UPDATE re-checks the token hash and pipeline state so that a
// reject or token reissue committed after the caller's pre-read cannot slip
// a stale registration through.
func (r *Repository) Register(ctx context.Context, p RegisterParams) (Client, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Client{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE consultations
		SET pipeline_status = $2, workflow_stage = $3,
		    registration_token = NULL, token_used = TRUE,
		    registered_at = now(), updated_at = now()
		WHERE id = $1 AND token_used = FALSE
		  AND registration_token = $4
		  AND pipeline_status NOT IN ($2, $5)`,
		p.ConsultationID, domain.StatusClient, domain.WorkflowStageRegistered,
		p.TokenHash, domain.StatusRejected,
	)
	if err != nil {
		return Client{}, err
	}
	if tag.RowsAffected() == 0 {
		return Client{}, ErrTokenConsumed
	}

	var userID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, 'client')
		RETURNING id`,
		p.Email, p.PasswordHash,
	).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Client{}, ErrEmailTaken
		}
		return Client{}, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO clients AS c (
			user_id, consultation_id, full_name, email, phone,
			current_job_title, target_job_title
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+clientColumns,
		userID, p.ConsultationID, p.FullName, p.Email, p.Phone,
		p.CurrentRole, p.RoleInterest,
	)
	client, err := scanClient(row)
	if err != nil {
		return Client{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Client{}, err
	}
	return client, nil
}

// GetByID fetches a client by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients c WHERE c.id = $1`, id)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// GetByUserID fetches the client owned by an authenticated user.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients c WHERE c.user_id = $1`, userID)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// List returns all clients, newest first.
func (r *Repository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients c ORDER BY c.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateProfileParams carries partial profile updates; nil fields are left
// untouched.
type UpdateProfileParams struct {
	FullName            *string
	Phone               *string
	LinkedInURL         *string
	CurrentJobTitle     *string
	TargetJobTitle      *string
	YearsExperience     *int
	Country             *string
	Location            *string
	RoleTargets         *string
	LocationPreferences *string
	MinimumSalary       *int64
	ResumeURL           *string
	Age                 *int
	ProfilePictureURL   *string
	EmploymentStatus    *string
	TargetMarket        *string
}

// UpdateProfile applies a partial profile update.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p UpdateProfileParams) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients AS c SET
			full_name            = COALESCE($2, full_name),
			phone                = COALESCE($3, phone),
			linkedin_url         = COALESCE($4, linkedin_url),
			current_job_title    = COALESCE($5, current_job_title),
			target_job_title     = COALESCE($6, target_job_title),
			years_experience     = COALESCE($7, years_experience),
			country              = COALESCE($8, country),
			location             = COALESCE($9, location),
			role_targets         = COALESCE($10, role_targets),
			location_preferences = COALESCE($11, location_preferences),
			minimum_salary       = COALESCE($12, minimum_salary),
			resume_url           = COALESCE($13, resume_url),
			age                  = COALESCE($14, age),
			profile_picture_url  = COALESCE($15, profile_picture_url),
			employment_status    = COALESCE($16, employment_status),
			target_market        = COALESCE($17, target_market),
			updated_at           = now()
		WHERE id = $1
		RETURNING `+clientColumns,
		id, p.FullName, p.Phone, p.LinkedInURL, p.CurrentJobTitle, p.TargetJobTitle,
		p.YearsExperience, p.Country, p.Location, p.RoleTargets, p.LocationPreferences,
		p.MinimumSalary, p.ResumeURL, p.Age, p.ProfilePictureURL, p.EmploymentStatus,
		p.TargetMarket,
	)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}

// SubmitOnboarding stores the questionnaire answers and flips
// onboarding_completed. The conditional update makes first submission a
// one-time event.
func (r *Repository) SubmitOnboarding(ctx context.Context, id uuid.UUID, answers []byte) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients AS c
		SET onboarding_completed = TRUE, onboarding_answers = $2,
		    onboarding_submitted_at = now(), updated_at = now()
		WHERE id = $1 AND onboarding_completed = FALSE
		RETURNING `+clientColumns,
		id, answers,
	)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, r.onboardingConflict(ctx, id, ErrOnboardingDone)
	}
	return c, err
}

// ReplaceOnboardingAnswers overwrites the answers of an already submitted
// onboarding. Only used when resubmission is enabled.
func (r *Repository) ReplaceOnboardingAnswers(ctx context.Context, id uuid.UUID, answers []byte) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients AS c
		SET onboarding_answers = $2, onboarding_submitted_at = now(), updated_at = now()
		WHERE id = $1 AND onboarding_completed = TRUE AND profile_unlocked = FALSE
		RETURNING `+clientColumns,
		id, answers,
	)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, r.onboardingConflict(ctx, id, ErrOnboardingDone)
	}
	return c, err
}

// UnlockProfile flips profile_unlocked after admin review. The conditional
// update enforces both the onboarding prerequisite and single unlock.
func (r *Repository) UnlockProfile(ctx context.Context, id, adminID uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE clients AS c
		SET profile_unlocked = TRUE, profile_unlocked_at = now(), unlocked_by = $2,
		    updated_at = now()
		WHERE id = $1 AND onboarding_completed = TRUE AND profile_unlocked = FALSE
		RETURNING `+clientColumns,
		id, adminID,
	)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, r.onboardingConflict(ctx, id, ErrUnlockBlocked)
	}
	return c, err
}

func (r *Repository) onboardingConflict(ctx context.Context, id uuid.UUID, conflict error) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return conflict
}
