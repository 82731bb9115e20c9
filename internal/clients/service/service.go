// Package service implements client registration, profile management, and the
// onboarding review flow.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"concierge_backend/internal/auth/password"
	"concierge_backend/internal/clients/domain"
	"concierge_backend/internal/clients/repository"
	"concierge_backend/internal/events"
	pipelinedomain "concierge_backend/internal/pipeline/domain"
	"concierge_backend/internal/regtoken"
	"concierge_backend/platform/apperr"
	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/phone"
	"concierge_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence surface the client service needs.
type Store interface {
	ConsultationForRegistration(ctx context.Context, id uuid.UUID) (repository.ConsultationSnapshot, error)
	Register(ctx context.Context, p repository.RegisterParams) (repository.Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Client, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (repository.Client, error)
	List(ctx context.Context) ([]repository.Client, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p repository.UpdateProfileParams) (repository.Client, error)
	SubmitOnboarding(ctx context.Context, id uuid.UUID, answers []byte) (repository.Client, error)
	ReplaceOnboardingAnswers(ctx context.Context, id uuid.UUID, answers []byte) (repository.Client, error)
	UnlockProfile(ctx context.Context, id, adminID uuid.UUID) (repository.Client, error)
}

// TokenVerifier checks registration token signatures and expiry.
type TokenVerifier interface {
	VerifyClaims(rawToken string) (regtoken.Claims, error)
}

// Service orchestrates the client workflows.
type Service struct {
	store  Store
	tokens TokenVerifier
	bus    events.Bus
	cfg    config.OnboardingConfig
	log    *logger.Logger
}

// New creates the client service.
func New(store Store, tokens TokenVerifier, bus events.Bus, cfg config.OnboardingConfig, log *logger.Logger) *Service {
	return &Service{store: store, tokens: tokens, bus: bus, cfg: cfg, log: log}
}

// Profile bundles a client record with its derived gating state.
type Profile struct {
	Client     repository.Client
	Completion domain.CompletionReport
	Discovery  domain.DiscoveryState
}

// RegistrationInput carries the registration form.
type RegistrationInput struct {
	Token    string
	Password string
}

// CompleteRegistration redeems a registration token and creates the client
// account. Signature and expiry are checked statelessly first; the stored
// consultation row then supplies the single-use and already-registered checks.
// Any storage failure during verification is reported as an invalid token, so
// lookups fail closed.
func (s *Service) CompleteRegistration(ctx context.Context, in RegistrationInput) (repository.Client, error) {
	const op = "clients.CompleteRegistration"

	claims, err := s.tokens.VerifyClaims(in.Token)
	if err != nil {
		return repository.Client{}, tokenError(op, err)
	}
	if len(in.Password) < password.MinLength {
		return repository.Client{}, apperr.Validation("password must be at least 10 characters").WithOp(op)
	}

	snapshot, err := s.store.ConsultationForRegistration(ctx, claims.ConsultationID)
	if err != nil {
		// Fail closed: a lookup failure must not read as a retryable
		// server error that hints the token is fine.
		return repository.Client{}, tokenError(op, regtoken.ErrNotFound)
	}

	switch {
	case snapshot.PipelineStatus == pipelinedomain.StatusClient:
		return repository.Client{}, tokenError(op, regtoken.ErrAlreadyRegistered)
	case snapshot.TokenUsed:
		return repository.Client{}, tokenError(op, regtoken.ErrAlreadyUsed)
	case snapshot.TokenHash == nil || *snapshot.TokenHash != regtoken.Hash(in.Token):
		// A reissued token supersedes the one in hand.
		return repository.Client{}, tokenError(op, regtoken.ErrNotFound)
	}

	hashed, err := password.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return repository.Client{}, apperr.Validation("password too long").WithOp(op)
		}
		return repository.Client{}, apperr.Wrap(apperr.KindInternal, "could not hash password", err).WithOp(op)
	}

	normalizedPhone := phone.NormalizeE164(snapshot.Phone)
	client, err := s.store.Register(ctx, repository.RegisterParams{
		ConsultationID: snapshot.ID,
		FullName:       snapshot.FullName,
		Email:          snapshot.Email,
		Phone:          &normalizedPhone,
		CurrentRole:    snapshot.CurrentRole,
		RoleInterest:   snapshot.RoleInterest,
		PasswordHash:   hashed,
		TokenHash:      regtoken.Hash(in.Token),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenConsumed):
			return repository.Client{}, tokenError(op, regtoken.ErrAlreadyUsed)
		case errors.Is(err, repository.ErrEmailTaken):
			return repository.Client{}, apperr.Conflict("an account already exists for this email").WithOp(op)
		default:
			return repository.Client{}, apperr.Wrap(apperr.KindInternal, "could not complete registration", err).WithOp(op)
		}
	}

	s.log.AuthEvent("registration_completed", client.Email, true, "")
	s.bus.Publish(ctx, events.RegistrationCompleted{
		BaseEvent:      events.NewBaseEvent(),
		ClientID:       client.ID,
		ConsultationID: snapshot.ID,
		FullName:       client.FullName,
		Email:          client.Email,
	})
	return client, nil
}

// TokenPreview is what the registration form learns from a valid token before
// the account is created.
type TokenPreview struct {
	ConsultationID uuid.UUID
	FullName       string
	Email          string
	ExpiresAt      time.Time
}

// VerifyRegistrationToken runs the full token check without redeeming it, so
// the registration form can greet the lead or surface a precise failure.
func (s *Service) VerifyRegistrationToken(ctx context.Context, rawToken string) (TokenPreview, error) {
	const op = "clients.VerifyRegistrationToken"

	claims, err := s.tokens.VerifyClaims(rawToken)
	if err != nil {
		return TokenPreview{}, tokenError(op, err)
	}

	snapshot, err := s.store.ConsultationForRegistration(ctx, claims.ConsultationID)
	if err != nil {
		return TokenPreview{}, tokenError(op, regtoken.ErrNotFound)
	}
	switch {
	case snapshot.PipelineStatus == pipelinedomain.StatusClient:
		return TokenPreview{}, tokenError(op, regtoken.ErrAlreadyRegistered)
	case snapshot.TokenUsed:
		return TokenPreview{}, tokenError(op, regtoken.ErrAlreadyUsed)
	case snapshot.TokenHash == nil || *snapshot.TokenHash != regtoken.Hash(rawToken):
		return TokenPreview{}, tokenError(op, regtoken.ErrNotFound)
	}

	return TokenPreview{
		ConsultationID: snapshot.ID,
		FullName:       snapshot.FullName,
		Email:          snapshot.Email,
		ExpiresAt:      claims.ExpiresAt,
	}, nil
}

// GetProfileByUser returns the authenticated user's profile with freshly
// computed completion and discovery state.
func (s *Service) GetProfileByUser(ctx context.Context, userID uuid.UUID) (Profile, error) {
	const op = "clients.GetProfileByUser"
	client, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return Profile{}, s.mapStoreErr(op, err)
	}
	return s.profile(ctx, client), nil
}

// GetProfile returns one client's profile for the admin view.
func (s *Service) GetProfile(ctx context.Context, clientID uuid.UUID) (Profile, error) {
	const op = "clients.GetProfile"
	client, err := s.store.GetByID(ctx, clientID)
	if err != nil {
		return Profile{}, s.mapStoreErr(op, err)
	}
	return s.profile(ctx, client), nil
}

// List returns all client profiles for the admin dashboard.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	const op = "clients.List"
	clients, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not list clients", err).WithOp(op)
	}
	out := make([]Profile, 0, len(clients))
	for _, client := range clients {
		out = append(out, s.profile(ctx, client))
	}
	return out, nil
}

// UpdateProfileInput mirrors the partial-update profile form.
type UpdateProfileInput struct {
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

// UpdateProfileByUser applies a partial update to the authenticated user's
// profile and returns the recomputed completion report.
func (s *Service) UpdateProfileByUser(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (Profile, error) {
	const op = "clients.UpdateProfileByUser"

	client, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return Profile{}, s.mapStoreErr(op, err)
	}

	var normalizedPhone *string
	if in.Phone != nil {
		n := phone.NormalizeE164(*in.Phone)
		normalizedPhone = &n
	}

	updated, err := s.store.UpdateProfile(ctx, client.ID, repository.UpdateProfileParams{
		FullName:            sanitize.TextPtr(in.FullName),
		Phone:               normalizedPhone,
		LinkedInURL:         sanitize.TextPtr(in.LinkedInURL),
		CurrentJobTitle:     sanitize.TextPtr(in.CurrentJobTitle),
		TargetJobTitle:      sanitize.TextPtr(in.TargetJobTitle),
		YearsExperience:     in.YearsExperience,
		Country:             sanitize.TextPtr(in.Country),
		Location:            sanitize.TextPtr(in.Location),
		RoleTargets:         sanitize.TextPtr(in.RoleTargets),
		LocationPreferences: sanitize.TextPtr(in.LocationPreferences),
		MinimumSalary:       in.MinimumSalary,
		ResumeURL:           sanitize.TextPtr(in.ResumeURL),
		Age:                 in.Age,
		ProfilePictureURL:   sanitize.TextPtr(in.ProfilePictureURL),
		EmploymentStatus:    sanitize.TextPtr(in.EmploymentStatus),
		TargetMarket:        sanitize.TextPtr(in.TargetMarket),
	})
	if err != nil {
		return Profile{}, s.mapStoreErr(op, err)
	}
	return s.profile(ctx, updated), nil
}

// SubmitOnboarding stores the questionnaire answers. First submission flips
// onboarding_completed; resubmission is only accepted when configured and the
// profile is still locked.
func (s *Service) SubmitOnboarding(ctx context.Context, userID uuid.UUID, answers json.RawMessage) (Profile, error) {
	const op = "clients.SubmitOnboarding"

	if len(answers) == 0 {
		return Profile{}, apperr.Validation("onboarding answers are required").WithOp(op)
	}

	client, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return Profile{}, s.mapStoreErr(op, err)
	}

	var updated repository.Client
	if !client.OnboardingCompleted {
		updated, err = s.store.SubmitOnboarding(ctx, client.ID, answers)
	} else if s.cfg.GetOnboardingAllowResubmit() && !client.ProfileUnlocked {
		updated, err = s.store.ReplaceOnboardingAnswers(ctx, client.ID, answers)
	} else {
		return Profile{}, apperr.Conflict("onboarding has already been submitted").WithOp(op)
	}
	if err != nil {
		if errors.Is(err, repository.ErrOnboardingDone) {
			return Profile{}, apperr.Conflict("onboarding has already been submitted").WithOp(op)
		}
		return Profile{}, s.mapStoreErr(op, err)
	}

	s.bus.Publish(ctx, events.OnboardingSubmitted{
		BaseEvent: events.NewBaseEvent(),
		ClientID:  updated.ID,
		FullName:  updated.FullName,
		Email:     updated.Email,
	})
	return s.profile(ctx, updated), nil
}

// ApproveOnboarding unlocks a client's execution features after admin review.
// It is rejected when onboarding was never submitted and cannot repeat.
func (s *Service) ApproveOnboarding(ctx context.Context, clientID, adminID uuid.UUID) (Profile, error) {
	const op = "clients.ApproveOnboarding"

	updated, err := s.store.UnlockProfile(ctx, clientID, adminID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return Profile{}, apperr.NotFound("client not found").WithOp(op)
		case errors.Is(err, repository.ErrUnlockBlocked):
			current, getErr := s.store.GetByID(ctx, clientID)
			if getErr == nil && !current.OnboardingCompleted {
				return Profile{}, apperr.Conflict("cannot unlock a profile before onboarding is submitted").WithOp(op)
			}
			return Profile{}, apperr.Conflict("profile is already unlocked").WithOp(op)
		default:
			return Profile{}, apperr.Wrap(apperr.KindInternal, "could not unlock profile", err).WithOp(op)
		}
	}

	s.bus.Publish(ctx, events.ProfileUnlocked{
		BaseEvent:  events.NewBaseEvent(),
		ClientID:   updated.ID,
		FullName:   updated.FullName,
		Email:      updated.Email,
		UnlockedBy: adminID,
	})
	return s.profile(ctx, updated), nil
}

// profile derives the completion report and discovery state for a client,
// merging in consultation-captured values so early answers still count.
func (s *Service) profile(ctx context.Context, client repository.Client) Profile {
	view := viewFromClient(client)

	if snapshot, err := s.store.ConsultationForRegistration(ctx, client.ConsultationID); err == nil {
		mergeConsultation(&view, snapshot)
	}

	return Profile{
		Client:     client,
		Completion: domain.Completion(view),
		Discovery:  domain.DiscoveryGate(client.OnboardingCompleted, client.ProfileUnlocked),
	}
}

func viewFromClient(c repository.Client) domain.ProfileView {
	return domain.ProfileView{
		FullName:            c.FullName,
		Email:               c.Email,
		Phone:               deref(c.Phone),
		LinkedInURL:         deref(c.LinkedInURL),
		CurrentJobTitle:     deref(c.CurrentJobTitle),
		TargetJobTitle:      deref(c.TargetJobTitle),
		YearsExperience:     c.YearsExperience,
		Country:             deref(c.Country),
		Location:            deref(c.Location),
		RoleTargets:         deref(c.RoleTargets),
		LocationPreferences: deref(c.LocationPreferences),
		MinimumSalary:       c.MinimumSalary,
		ResumeURL:           deref(c.ResumeURL),
		Age:                 c.Age,
		ProfilePictureURL:   deref(c.ProfilePictureURL),
		EmploymentStatus:    deref(c.EmploymentStatus),
		TargetMarket:        deref(c.TargetMarket),
	}
}

func mergeConsultation(view *domain.ProfileView, s repository.ConsultationSnapshot) {
	if view.Phone == "" {
		view.Phone = s.Phone
	}
	if view.CurrentJobTitle == "" && s.CurrentRole != nil {
		view.CurrentJobTitle = *s.CurrentRole
	}
	if view.TargetJobTitle == "" && s.RoleInterest != nil {
		view.TargetJobTitle = *s.RoleInterest
	}
}

func (s *Service) mapStoreErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("client not found").WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "client storage failure", err).WithOp(op)
}

// tokenError maps the token failure taxonomy onto HTTP-ready error kinds.
func tokenError(op string, err error) error {
	switch {
	case errors.Is(err, regtoken.ErrExpired):
		return apperr.Gone("registration link expired").WithOp(op)
	case errors.Is(err, regtoken.ErrAlreadyUsed):
		return apperr.Conflict("registration link already used").WithOp(op)
	case errors.Is(err, regtoken.ErrAlreadyRegistered):
		return apperr.Conflict("this consultation already has a registered account").WithOp(op)
	case errors.Is(err, regtoken.ErrNotFound):
		return apperr.NotFound("registration link is not valid").WithOp(op)
	default:
		return apperr.BadRequest("registration link is not valid").WithOp(op)
	}
}

func deref(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
