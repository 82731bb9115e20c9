// Package service implements the lead pipeline workflows: public consultation
// intake, admin review and approval, consultation scheduling, and payment
// recording. Every status change is a compare-and-set update in the store, so
// concurrent admin actions resolve to exactly one winner.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"concierge_backend/internal/events"
	"concierge_backend/internal/pipeline/domain"
	"concierge_backend/internal/pipeline/repository"
	"concierge_backend/internal/regtoken"
	"concierge_backend/platform/apperr"
	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/phone"
	"concierge_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store is the persistence surface the pipeline service needs.
type Store interface {
	Create(ctx context.Context, p repository.CreateParams) (repository.Consultation, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Consultation, error)
	List(ctx context.Context, status *domain.PipelineStatus, limit int) ([]repository.Consultation, error)
	MarkUnderReview(ctx context.Context, id, reviewerID uuid.UUID) (repository.Consultation, error)
	Approve(ctx context.Context, id, approverID uuid.UUID, tokenHash string, expiresAt time.Time) (repository.Consultation, error)
	Reject(ctx context.Context, id uuid.UUID, reason *string) (repository.Consultation, error)
	ConfirmTimeSlot(ctx context.Context, id, adminID uuid.UUID, slot int, confirmedTime time.Time, meetingLink, meetingType *string) (repository.Consultation, error)
	RequestNewTimes(ctx context.Context, id uuid.UUID) (repository.Consultation, error)
	ResubmitTimeSlots(ctx context.Context, id uuid.UUID, s1, s2, s3 *time.Time) (repository.Consultation, error)
	CompleteConsultation(ctx context.Context, id uuid.UUID, outcome string) (repository.Consultation, error)
	RecordPayment(ctx context.Context, id uuid.UUID, amountCents int64, method, reference *string, tokenHash string, expiresAt time.Time) (repository.Consultation, error)
	AppendEvent(ctx context.Context, consultationID uuid.UUID, fromStatus, toStatus string, actor *uuid.UUID, note *string) error
	ListEvents(ctx context.Context, consultationID uuid.UUID) ([]repository.PipelineEvent, error)
}

// TokenIssuer mints single-use registration tokens.
type TokenIssuer interface {
	IssueApproval(consultationID uuid.UUID, email string) (regtoken.Issued, error)
	IssuePayment(consultationID uuid.UUID, email string) (regtoken.Issued, error)
}

// Service orchestrates the pipeline workflows.
type Service struct {
	store  Store
	tokens TokenIssuer
	bus    events.Bus
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates the pipeline service.
func New(store Store, tokens TokenIssuer, bus events.Bus, cfg config.NotificationConfig, log *logger.Logger) *Service {
	return &Service{store: store, tokens: tokens, bus: bus, cfg: cfg, log: log}
}

// SubmitInput carries the public consultation request form.
type SubmitInput struct {
	FullName     string
	Email        string
	Phone        string
	CurrentRole  *string
	RoleInterest *string
	Message      *string
	TimeSlots    []time.Time
}

// SubmitRequest creates a new lead from the public booking form.
func (s *Service) SubmitRequest(ctx context.Context, in SubmitInput) (repository.Consultation, error) {
	const op = "pipeline.SubmitRequest"

	if len(in.TimeSlots) < domain.MinTimeSlot || len(in.TimeSlots) > domain.MaxTimeSlot {
		return repository.Consultation{}, apperr.Validation(
			fmt.Sprintf("between %d and %d proposed time slots are required", domain.MinTimeSlot, domain.MaxTimeSlot),
		).WithOp(op)
	}
	now := time.Now()
	for _, slot := range in.TimeSlots {
		if !slot.After(now) {
			return repository.Consultation{}, apperr.Validation("proposed time slots must be in the future").WithOp(op)
		}
	}

	params := repository.CreateParams{
		FullName:     sanitize.Text(in.FullName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:        phone.NormalizeE164(in.Phone),
		CurrentRole:  sanitize.TextPtr(in.CurrentRole),
		RoleInterest: sanitize.TextPtr(in.RoleInterest),
		Message:      sanitize.TextPtr(in.Message),
	}
	slots := []**time.Time{&params.TimeSlot1, &params.TimeSlot2, &params.TimeSlot3}
	for i := range in.TimeSlots {
		t := in.TimeSlots[i]
		*slots[i] = &t
	}

	c, err := s.store.Create(ctx, params)
	if err != nil {
		if err == repository.ErrDuplicateEmail {
			return repository.Consultation{}, apperr.Conflict("a consultation request for this email is already in progress").WithOp(op)
		}
		return repository.Consultation{}, apperr.Wrap(apperr.KindInternal, "could not create consultation", err).WithOp(op)
	}

	s.recordEvent(ctx, c.ID, "", string(domain.StatusLead), nil, nil)
	s.bus.Publish(ctx, events.ConsultationRequested{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		Phone:          c.Phone,
		CurrentRole:    derefOr(c.CurrentRole, ""),
		RoleInterest:   derefOr(c.RoleInterest, ""),
		TimeSlots:      formatSlots(c.TimeSlot1, c.TimeSlot2, c.TimeSlot3),
	})
	return c, nil
}

// Get returns one consultation.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Consultation, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return repository.Consultation{}, s.mapStoreErr("pipeline.Get", err)
	}
	return c, nil
}

// List returns consultations for the admin dashboard.
func (s *Service) List(ctx context.Context, status *domain.PipelineStatus, limit int) ([]repository.Consultation, error) {
	const op = "pipeline.List"
	if status != nil && !domain.IsKnownStatus(*status) {
		return nil, apperr.Validation("unknown pipeline status filter").WithOp(op)
	}
	out, err := s.store.List(ctx, status, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not list consultations", err).WithOp(op)
	}
	return out, nil
}

// History returns the audit trail of status changes for a consultation.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]repository.PipelineEvent, error) {
	const op = "pipeline.History"
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return nil, s.mapStoreErr(op, err)
	}
	evts, err := s.store.ListEvents(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "could not load pipeline history", err).WithOp(op)
	}
	return evts, nil
}

// MarkUnderReview advances a lead into admin review.
func (s *Service) MarkUnderReview(ctx context.Context, id, reviewerID uuid.UUID) (repository.Consultation, error) {
	const op = "pipeline.MarkUnderReview"

	c, err := s.store.MarkUnderReview(ctx, id, reviewerID)
	if err != nil {
		return repository.Consultation{}, s.transitionErr(ctx, op, id, domain.StatusUnderReview, err)
	}

	s.log.PipelineTransition(id.String(), string(domain.StatusLead), string(domain.StatusUnderReview), reviewerID.String())
	s.recordEvent(ctx, id, string(domain.StatusLead), string(domain.StatusUnderReview), &reviewerID, nil)
	s.bus.Publish(ctx, events.LeadUnderReview{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		ReviewedBy:     reviewerID,
	})
	return c, nil
}

// Approve moves a reviewed lead to approved, mints the single-use registration
// token, and publishes the registration URL for the approval email.
func (s *Service) Approve(ctx context.Context, id, approverID uuid.UUID) (repository.Consultation, error) {
	const op = "pipeline.Approve"

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return repository.Consultation{}, s.mapStoreErr(op, err)
	}

	issued, err := s.tokens.IssueApproval(id, current.Email)
	if err != nil {
		return repository.Consultation{}, apperr.Wrap(apperr.KindInternal, "could not issue registration token", err).WithOp(op)
	}

	c, err := s.store.Approve(ctx, id, approverID, issued.TokenHash, issued.ExpiresAt)
	if err != nil {
		return repository.Consultation{}, s.transitionErr(ctx, op, id, domain.StatusApproved, err)
	}

	s.log.PipelineTransition(id.String(), string(domain.StatusUnderReview), string(domain.StatusApproved), approverID.String())
	s.recordEvent(ctx, id, string(domain.StatusUnderReview), string(domain.StatusApproved), &approverID, nil)
	s.bus.Publish(ctx, events.LeadApproved{
		BaseEvent:       events.NewBaseEvent(),
		ConsultationID:  c.ID,
		FullName:        c.FullName,
		Email:           c.Email,
		RegistrationURL: s.registrationURL(issued.Token),
		TokenExpiresAt:  issued.ExpiresAt,
		ApprovedBy:      approverID,
	})
	return c, nil
}

// Reject moves a consultation to the terminal rejected state. Allowed from
// every state except client.
func (s *Service) Reject(ctx context.Context, id, adminID uuid.UUID, reason *string) (repository.Consultation, error) {
	const op = "pipeline.Reject"

	reason = sanitize.TextPtr(reason)
	c, err := s.store.Reject(ctx, id, reason)
	if err != nil {
		return repository.Consultation{}, s.transitionErr(ctx, op, id, domain.StatusRejected, err)
	}

	s.log.PipelineTransition(id.String(), "", string(domain.StatusRejected), adminID.String())
	s.recordEvent(ctx, id, "", string(domain.StatusRejected), &adminID, reason)
	s.bus.Publish(ctx, events.LeadRejected{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		Reason:         derefOr(reason, ""),
	})
	return c, nil
}

// ConfirmTimeInput carries the admin's slot confirmation.
type ConfirmTimeInput struct {
	SlotIndex   int
	MeetingLink *string
	MeetingType *string
}

// ConfirmTime confirms one of the lead's proposed time slots.
func (s *Service) ConfirmTime(ctx context.Context, id, adminID uuid.UUID, in ConfirmTimeInput) (repository.Consultation, error) {
	const op = "pipeline.ConfirmTime"

	if !domain.ValidSlotIndex(in.SlotIndex) {
		return repository.Consultation{}, apperr.Validation(
			fmt.Sprintf("slot index must be between %d and %d", domain.MinTimeSlot, domain.MaxTimeSlot),
		).WithOp(op)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return repository.Consultation{}, s.mapStoreErr(op, err)
	}
	slotTime := slotAt(current, in.SlotIndex)
	if slotTime == nil {
		return repository.Consultation{}, apperr.Validation(
			fmt.Sprintf("no proposed time at slot %d", in.SlotIndex),
		).WithOp(op)
	}

	c, err := s.store.ConfirmTimeSlot(ctx, id, adminID, in.SlotIndex, *slotTime, in.MeetingLink, in.MeetingType)
	if err != nil {
		return repository.Consultation{}, s.schedulingErr(ctx, op, id, domain.ConsultationConfirmed, err)
	}

	s.recordEvent(ctx, id, string(domain.ConsultationPending), string(domain.ConsultationConfirmed), &adminID, nil)
	s.bus.Publish(ctx, events.ConsultationTimeConfirmed{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		ConfirmedTime:  *slotTime,
		MeetingLink:    derefOr(in.MeetingLink, ""),
		MeetingType:    derefOr(in.MeetingType, ""),
	})
	return c, nil
}

// RequestNewTimes asks the lead to propose replacement slots.
func (s *Service) RequestNewTimes(ctx context.Context, id, adminID uuid.UUID, note *string) (repository.Consultation, error) {
	const op = "pipeline.RequestNewTimes"

	note = sanitize.TextPtr(note)
	c, err := s.store.RequestNewTimes(ctx, id)
	if err != nil {
		return repository.Consultation{}, s.schedulingErr(ctx, op, id, domain.ConsultationAwaitingNewTimes, err)
	}

	s.recordEvent(ctx, id, "", string(domain.ConsultationAwaitingNewTimes), &adminID, note)
	s.bus.Publish(ctx, events.NewTimesRequested{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		Note:           derefOr(note, ""),
	})
	return c, nil
}

// ResubmitTimes stores the lead's replacement slots, returning the scheduling
// axis to pending.
func (s *Service) ResubmitTimes(ctx context.Context, id uuid.UUID, slots []time.Time) (repository.Consultation, error) {
	const op = "pipeline.ResubmitTimes"

	if len(slots) < domain.MinTimeSlot || len(slots) > domain.MaxTimeSlot {
		return repository.Consultation{}, apperr.Validation(
			fmt.Sprintf("between %d and %d proposed time slots are required", domain.MinTimeSlot, domain.MaxTimeSlot),
		).WithOp(op)
	}
	now := time.Now()
	for _, slot := range slots {
		if !slot.After(now) {
			return repository.Consultation{}, apperr.Validation("proposed time slots must be in the future").WithOp(op)
		}
	}

	var s1, s2, s3 *time.Time
	targets := []**time.Time{&s1, &s2, &s3}
	for i := range slots {
		t := slots[i]
		*targets[i] = &t
	}

	c, err := s.store.ResubmitTimeSlots(ctx, id, s1, s2, s3)
	if err != nil {
		return repository.Consultation{}, s.schedulingErr(ctx, op, id, domain.ConsultationPending, err)
	}

	s.recordEvent(ctx, id, string(domain.ConsultationAwaitingNewTimes), string(domain.ConsultationPending), nil, nil)
	s.bus.Publish(ctx, events.NewTimesResubmitted{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		TimeSlots:      formatSlots(c.TimeSlot1, c.TimeSlot2, c.TimeSlot3),
	})
	return c, nil
}

// MarkCompleted records the consultation outcome after the meeting took place.
func (s *Service) MarkCompleted(ctx context.Context, id, adminID uuid.UUID, outcome string) (repository.Consultation, error) {
	const op = "pipeline.MarkCompleted"

	if !domain.ValidOutcome(outcome) {
		return repository.Consultation{}, apperr.Validation(
			fmt.Sprintf("outcome must be %q or %q", domain.OutcomeProceeding, domain.OutcomeNotProceeding),
		).WithOp(op)
	}

	c, err := s.store.CompleteConsultation(ctx, id, outcome)
	if err != nil {
		return repository.Consultation{}, s.schedulingErr(ctx, op, id, domain.ConsultationCompleted, err)
	}

	s.recordEvent(ctx, id, string(domain.ConsultationConfirmed), string(domain.ConsultationCompleted), &adminID, &outcome)
	s.bus.Publish(ctx, events.ConsultationCompleted{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: c.ID,
		FullName:       c.FullName,
		Email:          c.Email,
		Outcome:        outcome,
	})
	return c, nil
}

// PaymentInput carries the recorded payment details.
type PaymentInput struct {
	AmountCents int64
	Method      *string
	Reference   *string
}

// RecordPayment records the consultation payment, mints the longer-lived
// payment-variant registration token, and moves the workflow to awaiting
// registration.
func (s *Service) RecordPayment(ctx context.Context, id, adminID uuid.UUID, in PaymentInput) (repository.Consultation, error) {
	const op = "pipeline.RecordPayment"

	if in.AmountCents <= 0 {
		return repository.Consultation{}, apperr.Validation("payment amount must be positive").WithOp(op)
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return repository.Consultation{}, s.mapStoreErr(op, err)
	}

	issued, err := s.tokens.IssuePayment(id, current.Email)
	if err != nil {
		return repository.Consultation{}, apperr.Wrap(apperr.KindInternal, "could not issue registration token", err).WithOp(op)
	}

	c, err := s.store.RecordPayment(ctx, id, in.AmountCents, in.Method, in.Reference, issued.TokenHash, issued.ExpiresAt)
	if err != nil {
		return repository.Consultation{}, s.schedulingErr(ctx, op, id, domain.ConsultationPaymentReceived, err)
	}

	s.recordEvent(ctx, id, string(domain.ConsultationCompleted), string(domain.ConsultationPaymentReceived), &adminID, nil)
	s.bus.Publish(ctx, events.PaymentReceived{
		BaseEvent:       events.NewBaseEvent(),
		ConsultationID:  c.ID,
		FullName:        c.FullName,
		Email:           c.Email,
		AmountCents:     in.AmountCents,
		RegistrationURL: s.registrationURL(issued.Token),
		TokenExpiresAt:  issued.ExpiresAt,
	})
	return c, nil
}

func (s *Service) registrationURL(token string) string {
	base := strings.TrimRight(s.cfg.GetAppBaseURL(), "/")
	return base + "/register?token=" + url.QueryEscape(token)
}

// transitionErr maps store errors for pipeline-axis transitions, naming the
// actual status in the conflict message.
func (s *Service) transitionErr(ctx context.Context, op string, id uuid.UUID, target domain.PipelineStatus, err error) error {
	switch err {
	case repository.ErrNotFound:
		return apperr.NotFound("consultation not found").WithOp(op)
	case repository.ErrStaleStatus:
		current, getErr := s.store.GetByID(ctx, id)
		if getErr != nil {
			return apperr.Conflict("consultation is not in the required status").WithOp(op)
		}
		return apperr.Conflict(fmt.Sprintf(
			"cannot move to %s: consultation is %s", target, current.PipelineStatus,
		)).WithOp(op).WithDetails(map[string]string{
			"currentStatus":   string(current.PipelineStatus),
			"requestedStatus": string(target),
		})
	default:
		return apperr.Wrap(apperr.KindInternal, "could not update consultation", err).WithOp(op)
	}
}

// schedulingErr is transitionErr for the consultation scheduling axis.
func (s *Service) schedulingErr(ctx context.Context, op string, id uuid.UUID, target domain.ConsultationStatus, err error) error {
	switch err {
	case repository.ErrNotFound:
		return apperr.NotFound("consultation not found").WithOp(op)
	case repository.ErrStaleStatus:
		current, getErr := s.store.GetByID(ctx, id)
		if getErr != nil {
			return apperr.Conflict("consultation is not in the required status").WithOp(op)
		}
		return apperr.Conflict(fmt.Sprintf(
			"cannot move consultation to %s: scheduling status is %s, pipeline status is %s",
			target, current.ConsultationStatus, current.PipelineStatus,
		)).WithOp(op).WithDetails(map[string]string{
			"consultationStatus": string(current.ConsultationStatus),
			"pipelineStatus":     string(current.PipelineStatus),
			"requestedStatus":    string(target),
		})
	default:
		return apperr.Wrap(apperr.KindInternal, "could not update consultation", err).WithOp(op)
	}
}

func (s *Service) mapStoreErr(op string, err error) error {
	if err == repository.ErrNotFound {
		return apperr.NotFound("consultation not found").WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "could not load consultation", err).WithOp(op)
}

// recordEvent appends to the audit trail. Failures are logged and swallowed;
// the trail is best effort and never blocks a transition that already
// committed.
func (s *Service) recordEvent(ctx context.Context, id uuid.UUID, from, to string, actor *uuid.UUID, note *string) {
	if err := s.store.AppendEvent(ctx, id, from, to, actor, note); err != nil {
		s.log.DatabaseError("pipeline_events.insert", err)
	}
}

func slotAt(c repository.Consultation, index int) *time.Time {
	switch index {
	case 1:
		return c.TimeSlot1
	case 2:
		return c.TimeSlot2
	case 3:
		return c.TimeSlot3
	default:
		return nil
	}
}

func formatSlots(slots ...*time.Time) []string {
	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			out = append(out, slot.Format(time.RFC3339))
		}
	}
	return out
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
