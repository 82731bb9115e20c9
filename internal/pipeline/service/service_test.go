package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"concierge_backend/internal/events"
	"concierge_backend/internal/pipeline/domain"
	"concierge_backend/internal/pipeline/repository"
	"concierge_backend/internal/regtoken"
	"concierge_backend/platform/apperr"
	"concierge_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore mirrors the conditional-update semantics of the real repository
// in memory, including the stale-status probe.
type fakeStore struct {
	mu            sync.Mutex
	consultations map[uuid.UUID]repository.Consultation
	events        []repository.PipelineEvent
	failCreate    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{consultations: map[uuid.UUID]repository.Consultation{}}
}

func (f *fakeStore) Create(_ context.Context, p repository.CreateParams) (repository.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return repository.Consultation{}, f.failCreate
	}
	for _, c := range f.consultations {
		if c.Email == p.Email && c.PipelineStatus != domain.StatusRejected {
			return repository.Consultation{}, repository.ErrDuplicateEmail
		}
	}
	now := time.Now()
	c := repository.Consultation{
		ID:                 uuid.New(),
		FullName:           p.FullName,
		Email:              p.Email,
		Phone:              p.Phone,
		CurrentRole:        p.CurrentRole,
		RoleInterest:       p.RoleInterest,
		Message:            p.Message,
		TimeSlot1:          p.TimeSlot1,
		TimeSlot2:          p.TimeSlot2,
		TimeSlot3:          p.TimeSlot3,
		PipelineStatus:     domain.StatusLead,
		ConsultationStatus: domain.ConsultationPending,
		WorkflowStage:      domain.WorkflowStageConsultation,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.consultations[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok {
		return repository.Consultation{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) List(_ context.Context, status *domain.PipelineStatus, _ int) ([]repository.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Consultation
	for _, c := range f.consultations {
		if status == nil || c.PipelineStatus == *status {
			out = append(out, c)
		}
	}
	return out, nil
}

// cas applies mutate when guard passes, reproducing the repository's
// zero-row disambiguation.
func (f *fakeStore) cas(id uuid.UUID, guard func(repository.Consultation) bool, mutate func(*repository.Consultation)) (repository.Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consultations[id]
	if !ok {
		return repository.Consultation{}, repository.ErrNotFound
	}
	if !guard(c) {
		return repository.Consultation{}, repository.ErrStaleStatus
	}
	mutate(&c)
	c.UpdatedAt = time.Now()
	f.consultations[id] = c
	return c, nil
}

func (f *fakeStore) MarkUnderReview(_ context.Context, id, reviewerID uuid.UUID) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool { return c.PipelineStatus == domain.StatusLead },
		func(c *repository.Consultation) {
			c.PipelineStatus = domain.StatusUnderReview
			now := time.Now()
			c.ReviewedAt, c.ReviewedBy = &now, &reviewerID
		})
}

func (f *fakeStore) Approve(_ context.Context, id, approverID uuid.UUID, tokenHash string, expiresAt time.Time) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool { return c.PipelineStatus == domain.StatusUnderReview },
		func(c *repository.Consultation) {
			c.PipelineStatus = domain.StatusApproved
			now := time.Now()
			c.ApprovedAt, c.ApprovedBy = &now, &approverID
			c.RegistrationTokenHash = &tokenHash
			c.TokenExpiresAt = &expiresAt
			c.TokenUsed = false
		})
}

func (f *fakeStore) Reject(_ context.Context, id uuid.UUID, reason *string) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool { return c.PipelineStatus != domain.StatusClient },
		func(c *repository.Consultation) {
			c.PipelineStatus = domain.StatusRejected
			c.RejectionReason = reason
			c.RegistrationTokenHash = nil
			c.TokenExpiresAt = nil
		})
}

func (f *fakeStore) ConfirmTimeSlot(_ context.Context, id, adminID uuid.UUID, slot int, confirmedTime time.Time, meetingLink, meetingType *string) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool {
			return c.ConsultationStatus == domain.ConsultationPending &&
				c.PipelineStatus != domain.StatusRejected && c.PipelineStatus != domain.StatusClient
		},
		func(c *repository.Consultation) {
			c.ConsultationStatus = domain.ConsultationConfirmed
			c.SelectedTimeSlot = &slot
			c.ConfirmedTime = &confirmedTime
			c.MeetingLink, c.MeetingType = meetingLink, meetingType
			c.ConfirmedBy = &adminID
		})
}

func (f *fakeStore) RequestNewTimes(_ context.Context, id uuid.UUID) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool {
			return (c.ConsultationStatus == domain.ConsultationPending || c.ConsultationStatus == domain.ConsultationConfirmed) &&
				c.PipelineStatus != domain.StatusRejected && c.PipelineStatus != domain.StatusClient
		},
		func(c *repository.Consultation) {
			c.ConsultationStatus = domain.ConsultationAwaitingNewTimes
			c.SelectedTimeSlot = nil
			c.ConfirmedTime = nil
		})
}

func (f *fakeStore) ResubmitTimeSlots(_ context.Context, id uuid.UUID, s1, s2, s3 *time.Time) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool { return c.ConsultationStatus == domain.ConsultationAwaitingNewTimes },
		func(c *repository.Consultation) {
			c.ConsultationStatus = domain.ConsultationPending
			c.TimeSlot1, c.TimeSlot2, c.TimeSlot3 = s1, s2, s3
		})
}

func (f *fakeStore) CompleteConsultation(_ context.Context, id uuid.UUID, outcome string) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool { return c.ConsultationStatus == domain.ConsultationConfirmed },
		func(c *repository.Consultation) {
			c.ConsultationStatus = domain.ConsultationCompleted
			c.ConsultationOutcome = &outcome
		})
}

func (f *fakeStore) RecordPayment(_ context.Context, id uuid.UUID, amountCents int64, method, reference *string, tokenHash string, expiresAt time.Time) (repository.Consultation, error) {
	return f.cas(id,
		func(c repository.Consultation) bool {
			return c.ConsultationStatus == domain.ConsultationCompleted &&
				c.ConsultationOutcome != nil && *c.ConsultationOutcome == domain.OutcomeProceeding
		},
		func(c *repository.Consultation) {
			c.ConsultationStatus = domain.ConsultationPaymentReceived
			c.WorkflowStage = domain.WorkflowStageAwaitingRegistration
			c.PaymentAmountCents = &amountCents
			c.PaymentMethod, c.PaymentReference = method, reference
			c.PaymentReceived = true
			now := time.Now()
			c.PaymentReceivedAt = &now
			c.RegistrationTokenHash = &tokenHash
			c.TokenExpiresAt = &expiresAt
			c.TokenUsed = false
		})
}

func (f *fakeStore) AppendEvent(_ context.Context, consultationID uuid.UUID, fromStatus, toStatus string, actor *uuid.UUID, note *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, repository.PipelineEvent{
		ID:             uuid.New(),
		ConsultationID: consultationID,
		FromStatus:     fromStatus,
		ToStatus:       toStatus,
		Actor:          actor,
		Note:           note,
		CreatedAt:      time.Now(),
	})
	return nil
}

func (f *fakeStore) ListEvents(_ context.Context, consultationID uuid.UUID) ([]repository.PipelineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.PipelineEvent
	for _, e := range f.events {
		if e.ConsultationID == consultationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// captureBus records published events synchronously.
type captureBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *captureBus) Subscribe(string, events.Handler) {}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *captureBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *captureBus) last() events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	return b.events[len(b.events)-1]
}

type fakeIssuer struct {
	approvalTTL time.Duration
	paymentTTL  time.Duration
}

func (f fakeIssuer) IssueApproval(id uuid.UUID, _ string) (regtoken.Issued, error) {
	token := "approval-token-" + id.String()
	return regtoken.Issued{Token: token, TokenHash: regtoken.Hash(token), ExpiresAt: time.Now().Add(f.approvalTTL)}, nil
}

func (f fakeIssuer) IssuePayment(id uuid.UUID, _ string) (regtoken.Issued, error) {
	token := "payment-token-" + id.String()
	return regtoken.Issued{Token: token, TokenHash: regtoken.Hash(token), ExpiresAt: time.Now().Add(f.paymentTTL)}, nil
}

type fakeNotifyCfg struct{}

func (fakeNotifyCfg) GetAppBaseURL() string      { return "https://app.example.com" }
func (fakeNotifyCfg) GetBusinessName() string    { return "Example Concierge" }
func (fakeNotifyCfg) GetAdminNotifyEmail() string { return "admin@example.com" }
func (fakeNotifyCfg) GetCurrency() string         { return "USD" }

func newTestService() (*Service, *fakeStore, *captureBus) {
	store := newFakeStore()
	bus := &captureBus{}
	svc := New(store, fakeIssuer{approvalTTL: 72 * time.Hour, paymentTTL: 168 * time.Hour}, bus, fakeNotifyCfg{}, logger.New("test"))
	return svc, store, bus
}

func submitInput() SubmitInput {
	role := "Senior Engineer"
	return SubmitInput{
		FullName:  "Jordan Reyes",
		Email:     "Jordan.Reyes@Example.com",
		Phone:     "+1 212 555 0188",
		CurrentRole: &role,
		TimeSlots: []time.Time{
			time.Now().Add(24 * time.Hour),
			time.Now().Add(48 * time.Hour),
		},
	}
}

func mustSubmit(t *testing.T, svc *Service) repository.Consultation {
	t.Helper()
	c, err := svc.SubmitRequest(context.Background(), submitInput())
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	return c
}

func TestSubmitRequestCreatesLead(t *testing.T) {
	svc, _, bus := newTestService()

	c := mustSubmit(t, svc)

	if c.PipelineStatus != domain.StatusLead {
		t.Fatalf("pipeline status = %s, want %s", c.PipelineStatus, domain.StatusLead)
	}
	if c.ConsultationStatus != domain.ConsultationPending {
		t.Fatalf("consultation status = %s, want %s", c.ConsultationStatus, domain.ConsultationPending)
	}
	if c.Email != "jordan.reyes@example.com" {
		t.Fatalf("email not normalized: %s", c.Email)
	}
	if _, ok := bus.last().(events.ConsultationRequested); !ok {
		t.Fatalf("expected ConsultationRequested event, got %T", bus.last())
	}
}

func TestSubmitRequestRejectsBadSlots(t *testing.T) {
	svc, _, _ := newTestService()

	in := submitInput()
	in.TimeSlots = nil
	if _, err := svc.SubmitRequest(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("no slots: got %v, want validation error", err)
	}

	in = submitInput()
	in.TimeSlots = []time.Time{time.Now().Add(-time.Hour)}
	if _, err := svc.SubmitRequest(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("past slot: got %v, want validation error", err)
	}
}

func TestSubmitRequestDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	mustSubmit(t, svc)
	if _, err := svc.SubmitRequest(context.Background(), submitInput()); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate email: got %v, want conflict", err)
	}
}

func TestApproveIssuesTokenAndPublishesURL(t *testing.T) {
	svc, store, bus := newTestService()
	admin := uuid.New()

	c := mustSubmit(t, svc)
	if _, err := svc.MarkUnderReview(context.Background(), c.ID, admin); err != nil {
		t.Fatalf("MarkUnderReview: %v", err)
	}

	approved, err := svc.Approve(context.Background(), c.ID, admin)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.PipelineStatus != domain.StatusApproved {
		t.Fatalf("status = %s, want approved", approved.PipelineStatus)
	}
	if approved.RegistrationTokenHash == nil || approved.TokenUsed {
		t.Fatalf("token not stored: hash=%v used=%v", approved.RegistrationTokenHash, approved.TokenUsed)
	}

	evt, ok := bus.last().(events.LeadApproved)
	if !ok {
		t.Fatalf("expected LeadApproved event, got %T", bus.last())
	}
	if !strings.HasPrefix(evt.RegistrationURL, "https://app.example.com/register?token=") {
		t.Fatalf("registration URL = %s", evt.RegistrationURL)
	}

	stored, _ := store.GetByID(context.Background(), c.ID)
	token := "approval-token-" + c.ID.String()
	if *stored.RegistrationTokenHash != regtoken.Hash(token) {
		t.Fatalf("stored hash does not match issued token")
	}
}

func TestApproveSkippingReviewConflicts(t *testing.T) {
	svc, _, _ := newTestService()

	c := mustSubmit(t, svc)
	_, err := svc.Approve(context.Background(), c.ID, uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("approve from lead: got %v, want conflict", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Details == nil {
		t.Fatalf("conflict error should carry current status details, got %v", err)
	}
}

func TestConcurrentApproveSingleWinner(t *testing.T) {
	svc, _, _ := newTestService()
	admin := uuid.New()

	c := mustSubmit(t, svc)
	if _, err := svc.MarkUnderReview(context.Background(), c.ID, admin); err != nil {
		t.Fatalf("MarkUnderReview: %v", err)
	}

	const attempts = 8
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), c.ID, admin)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("wins=%d conflicts=%d, want exactly one winner", wins, conflicts)
	}
}

func TestRejectClearsTokenAndIsTerminal(t *testing.T) {
	svc, store, bus := newTestService()
	admin := uuid.New()

	c := mustSubmit(t, svc)
	if _, err := svc.MarkUnderReview(context.Background(), c.ID, admin); err != nil {
		t.Fatalf("MarkUnderReview: %v", err)
	}
	if _, err := svc.Approve(context.Background(), c.ID, admin); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	reason := "not a fit"
	rejected, err := svc.Reject(context.Background(), c.ID, admin, &reason)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.PipelineStatus != domain.StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.PipelineStatus)
	}
	if rejected.RegistrationTokenHash != nil {
		t.Fatalf("token should be cleared on rejection")
	}
	if _, ok := bus.last().(events.LeadRejected); !ok {
		t.Fatalf("expected LeadRejected event, got %T", bus.last())
	}

	// Terminal: nothing moves a rejected record forward.
	if _, err := svc.MarkUnderReview(context.Background(), c.ID, admin); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("review after rejection: got %v, want conflict", err)
	}
	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 1}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("confirm after rejection: got %v, want conflict", err)
	}

	stored, _ := store.GetByID(context.Background(), c.ID)
	if stored.RejectionReason == nil || *stored.RejectionReason != "not a fit" {
		t.Fatalf("rejection reason not stored")
	}
}

func TestConfirmTimeValidation(t *testing.T) {
	svc, _, _ := newTestService()
	admin := uuid.New()
	c := mustSubmit(t, svc)

	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 4}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("slot 4: got %v, want validation error", err)
	}
	// The form only proposed two slots.
	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 3}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("empty slot: got %v, want validation error", err)
	}

	link := "https://meet.example.com/abc"
	confirmed, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 2, MeetingLink: &link})
	if err != nil {
		t.Fatalf("ConfirmTime: %v", err)
	}
	if confirmed.ConsultationStatus != domain.ConsultationConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.ConsultationStatus)
	}
	if confirmed.SelectedTimeSlot == nil || *confirmed.SelectedTimeSlot != 2 {
		t.Fatalf("selected slot = %v, want 2", confirmed.SelectedTimeSlot)
	}

	// Confirming twice conflicts.
	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 1}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("double confirm: got %v, want conflict", err)
	}
}

func TestNewTimesLoop(t *testing.T) {
	svc, _, bus := newTestService()
	admin := uuid.New()
	c := mustSubmit(t, svc)

	note := "none of these work"
	awaiting, err := svc.RequestNewTimes(context.Background(), c.ID, admin, &note)
	if err != nil {
		t.Fatalf("RequestNewTimes: %v", err)
	}
	if awaiting.ConsultationStatus != domain.ConsultationAwaitingNewTimes {
		t.Fatalf("status = %s, want awaiting_new_times", awaiting.ConsultationStatus)
	}
	if _, ok := bus.last().(events.NewTimesRequested); !ok {
		t.Fatalf("expected NewTimesRequested event, got %T", bus.last())
	}

	// Only a resubmission leaves awaiting_new_times.
	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 1}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("confirm while awaiting: got %v, want conflict", err)
	}

	resubmitted, err := svc.ResubmitTimes(context.Background(), c.ID, []time.Time{time.Now().Add(72 * time.Hour)})
	if err != nil {
		t.Fatalf("ResubmitTimes: %v", err)
	}
	if resubmitted.ConsultationStatus != domain.ConsultationPending {
		t.Fatalf("status = %s, want pending", resubmitted.ConsultationStatus)
	}
	if resubmitted.TimeSlot1 == nil || resubmitted.TimeSlot2 != nil {
		t.Fatalf("slots not replaced: %v %v", resubmitted.TimeSlot1, resubmitted.TimeSlot2)
	}

	// The loop can repeat, and the replacement slot can now be confirmed.
	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 1}); err != nil {
		t.Fatalf("confirm after resubmit: %v", err)
	}
}

func TestMarkCompletedGuards(t *testing.T) {
	svc, _, _ := newTestService()
	admin := uuid.New()
	c := mustSubmit(t, svc)

	if _, err := svc.MarkCompleted(context.Background(), c.ID, admin, "maybe"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("bad outcome: got %v, want validation error", err)
	}
	if _, err := svc.MarkCompleted(context.Background(), c.ID, admin, domain.OutcomeProceeding); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("complete before confirm: got %v, want conflict", err)
	}

	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 1}); err != nil {
		t.Fatalf("ConfirmTime: %v", err)
	}
	done, err := svc.MarkCompleted(context.Background(), c.ID, admin, domain.OutcomeProceeding)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if done.ConsultationStatus != domain.ConsultationCompleted {
		t.Fatalf("status = %s, want completed", done.ConsultationStatus)
	}
}

func TestRecordPaymentFlow(t *testing.T) {
	svc, _, _ := newTestService()
	admin := uuid.New()
	c := mustSubmit(t, svc)

	if _, err := svc.RecordPayment(context.Background(), c.ID, admin, PaymentInput{AmountCents: 0}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("zero amount: got %v, want validation error", err)
	}
	if _, err := svc.RecordPayment(context.Background(), c.ID, admin, PaymentInput{AmountCents: 50000}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("payment before completion: got %v, want conflict", err)
	}

	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 1}); err != nil {
		t.Fatalf("ConfirmTime: %v", err)
	}
	if _, err := svc.MarkCompleted(context.Background(), c.ID, admin, domain.OutcomeNotProceeding); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	// Payment requires a proceeding outcome.
	if _, err := svc.RecordPayment(context.Background(), c.ID, admin, PaymentInput{AmountCents: 50000}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("payment on not_proceeding: got %v, want conflict", err)
	}
}

func TestRecordPaymentIssuesPaymentToken(t *testing.T) {
	svc, _, bus := newTestService()
	admin := uuid.New()
	c := mustSubmit(t, svc)

	if _, err := svc.ConfirmTime(context.Background(), c.ID, admin, ConfirmTimeInput{SlotIndex: 1}); err != nil {
		t.Fatalf("ConfirmTime: %v", err)
	}
	if _, err := svc.MarkCompleted(context.Background(), c.ID, admin, domain.OutcomeProceeding); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	method := "bank_transfer"
	paid, err := svc.RecordPayment(context.Background(), c.ID, admin, PaymentInput{AmountCents: 150000, Method: &method})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if paid.ConsultationStatus != domain.ConsultationPaymentReceived {
		t.Fatalf("status = %s, want payment_received", paid.ConsultationStatus)
	}
	if paid.WorkflowStage != domain.WorkflowStageAwaitingRegistration {
		t.Fatalf("workflow stage = %s, want awaiting_registration", paid.WorkflowStage)
	}
	if paid.RegistrationTokenHash == nil {
		t.Fatalf("payment token not stored")
	}

	evt, ok := bus.last().(events.PaymentReceived)
	if !ok {
		t.Fatalf("expected PaymentReceived event, got %T", bus.last())
	}
	if evt.AmountCents != 150000 {
		t.Fatalf("amount = %d, want 150000", evt.AmountCents)
	}
	if !strings.Contains(evt.RegistrationURL, "payment-token-") {
		t.Fatalf("registration URL should carry the payment-variant token: %s", evt.RegistrationURL)
	}
}

func TestHistoryRecordsTransitions(t *testing.T) {
	svc, _, _ := newTestService()
	admin := uuid.New()
	c := mustSubmit(t, svc)

	if _, err := svc.MarkUnderReview(context.Background(), c.ID, admin); err != nil {
		t.Fatalf("MarkUnderReview: %v", err)
	}
	if _, err := svc.Approve(context.Background(), c.ID, admin); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	trail, err := svc.History(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	// submit, under_review, approved
	if len(trail) != 3 {
		t.Fatalf("trail length = %d, want 3", len(trail))
	}
	if trail[2].ToStatus != string(domain.StatusApproved) {
		t.Fatalf("last trail entry = %s, want approved", trail[2].ToStatus)
	}
}
