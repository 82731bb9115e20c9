package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"concierge_backend/internal/email"
	"concierge_backend/internal/events"
	"concierge_backend/internal/scheduler"
	"concierge_backend/platform/logger"
)

type testNotificationConfig struct {
	adminEmail string
	currency   string
}

func (c testNotificationConfig) GetAppBaseURL() string       { return "https://app.example.com" }
func (c testNotificationConfig) GetBusinessName() string     { return "Concierge Careers" }
func (c testNotificationConfig) GetAdminNotifyEmail() string { return c.adminEmail }

func (c testNotificationConfig) GetCurrency() string {
	if c.currency == "" {
		return "USD"
	}
	return c.currency
}

type fakeQueue struct {
	mu       sync.Mutex
	payloads []scheduler.EmailDispatchPayload
	err      error
}

func (q *fakeQueue) EnqueueEmail(_ context.Context, payload scheduler.EmailDispatchPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) last(t *testing.T) scheduler.EmailDispatchPayload {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.payloads) == 0 {
		t.Fatal("no email was dispatched")
	}
	return q.payloads[len(q.payloads)-1]
}

func newTestModule(adminEmail string) (*Module, *fakeQueue) {
	queue := &fakeQueue{}
	m := New(queue, testNotificationConfig{adminEmail: adminEmail}, logger.New("test"))
	return m, queue
}

func TestEventTemplateMapping(t *testing.T) {
	base := events.NewBaseEvent()
	id := uuid.New()

	cases := []struct {
		event    events.Event
		template email.Template
		toEmail  string
	}{
		{
			events.ConsultationRequested{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com", Phone: "+31612345678"},
			email.TemplateConsultationReceived,
			"admin@example.com",
		},
		{
			events.LeadUnderReview{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com"},
			email.TemplateUnderReview,
			"jane@example.com",
		},
		{
			events.LeadApproved{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com", RegistrationURL: "https://app.example.com/register?token=x", TokenExpiresAt: time.Now().Add(72 * time.Hour)},
			email.TemplateLeadSelected,
			"jane@example.com",
		},
		{
			events.LeadRejected{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com"},
			email.TemplateConsultationRejected,
			"jane@example.com",
		},
		{
			events.ConsultationTimeConfirmed{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com", ConfirmedTime: time.Now().Add(24 * time.Hour)},
			email.TemplateTimeConfirmed,
			"jane@example.com",
		},
		{
			events.NewTimesRequested{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com"},
			email.TemplateNewTimesRequested,
			"jane@example.com",
		},
		{
			events.NewTimesResubmitted{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com", TimeSlots: []string{"Mon 10:00"}},
			email.TemplateNewTimesResubmitted,
			"admin@example.com",
		},
		{
			events.PaymentReceived{BaseEvent: base, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com", AmountCents: 150000, RegistrationURL: "https://app.example.com/register?token=y", TokenExpiresAt: time.Now().Add(168 * time.Hour)},
			email.TemplatePaymentReceived,
			"jane@example.com",
		},
		{
			events.RegistrationCompleted{BaseEvent: base, ClientID: id, ConsultationID: id, FullName: "Jane Doe", Email: "jane@example.com"},
			email.TemplateRegistrationComplete,
			"jane@example.com",
		},
		{
			events.OnboardingSubmitted{BaseEvent: base, ClientID: id, FullName: "Jane Doe", Email: "jane@example.com"},
			email.TemplateOnboardingSubmitted,
			"admin@example.com",
		},
		{
			events.ProfileUnlocked{BaseEvent: base, ClientID: id, FullName: "Jane Doe", Email: "jane@example.com", UnlockedBy: uuid.New()},
			email.TemplateProfileUnlocked,
			"jane@example.com",
		},
	}

	for _, tc := range cases {
		t.Run(tc.event.EventName(), func(t *testing.T) {
			m, queue := newTestModule("admin@example.com")
			if err := m.Handle(context.Background(), tc.event); err != nil {
				t.Fatalf("handle: %v", err)
			}
			got := queue.last(t)
			if got.Template != tc.template {
				t.Fatalf("template %q, want %q", got.Template, tc.template)
			}
			if got.ToEmail != tc.toEmail {
				t.Fatalf("recipient %q, want %q", got.ToEmail, tc.toEmail)
			}
			if !email.Known(got.Template) {
				t.Fatalf("template %q is not registered", got.Template)
			}
		})
	}
}

func TestPaymentAmountUsesConfiguredCurrency(t *testing.T) {
	queue := &fakeQueue{}
	m := New(queue, testNotificationConfig{currency: "EUR"}, logger.New("test"))

	if err := m.Handle(context.Background(), events.PaymentReceived{
		BaseEvent:       events.NewBaseEvent(),
		ConsultationID:  uuid.New(),
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		AmountCents:     150000,
		RegistrationURL: "https://app.example.com/register?token=abc",
		TokenExpiresAt:  time.Now().Add(168 * time.Hour),
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if got := queue.last(t).Fields["amount"]; got != "€1500.00" {
		t.Fatalf("amount = %q, want euro formatting from config", got)
	}
}

func TestRegistrationEmailsAttachQRCode(t *testing.T) {
	m, queue := newTestModule("")
	url := "https://app.example.com/register?token=abc"

	if err := m.Handle(context.Background(), events.LeadApproved{
		BaseEvent:       events.NewBaseEvent(),
		ConsultationID:  uuid.New(),
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		RegistrationURL: url,
		TokenExpiresAt:  time.Now().Add(72 * time.Hour),
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got := queue.last(t)
	if got.QRContent != url {
		t.Fatalf("qr content %q, want registration url", got.QRContent)
	}
	if got.Fields["registration_url"] != url {
		t.Fatalf("registration_url field missing: %v", got.Fields)
	}
}

func TestAdminNotificationsSkippedWithoutAddress(t *testing.T) {
	m, queue := newTestModule("")

	if err := m.Handle(context.Background(), events.ConsultationRequested{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: uuid.New(),
		FullName:       "Jane Doe",
		Email:          "jane@example.com",
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(queue.payloads) != 0 {
		t.Fatalf("expected no dispatch without admin address, got %d", len(queue.payloads))
	}
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	queue := &fakeQueue{err: errors.New("redis down")}
	m := New(queue, testNotificationConfig{}, logger.New("test"))

	err := m.Handle(context.Background(), events.LeadUnderReview{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: uuid.New(),
		FullName:       "Jane Doe",
		Email:          "jane@example.com",
	})
	if err != nil {
		t.Fatalf("dispatch failure must not propagate, got %v", err)
	}
}

func TestMissingContextFieldsRenderWithPlaceholder(t *testing.T) {
	m, queue := newTestModule("admin@example.com")

	// No phone, current role, or role interest on the event.
	if err := m.Handle(context.Background(), events.ConsultationRequested{
		BaseEvent:      events.NewBaseEvent(),
		ConsultationID: uuid.New(),
		FullName:       "Jane Doe",
		Email:          "jane@example.com",
	}); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got := queue.last(t)
	_, html, err := email.Render(got.Template, got.Fields)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "—") {
		t.Fatal("missing fields were not rendered as placeholder")
	}
}

func TestSubscriptionsCoverMapping(t *testing.T) {
	m, queue := newTestModule("admin@example.com")
	bus := events.NewInMemoryBus(logger.New("test"))
	m.RegisterHandlers(bus)

	if err := bus.PublishSync(context.Background(), events.ProfileUnlocked{
		BaseEvent:  events.NewBaseEvent(),
		ClientID:   uuid.New(),
		FullName:   "Jane Doe",
		Email:      "jane@example.com",
		UnlockedBy: uuid.New(),
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if queue.last(t).Template != email.TemplateProfileUnlocked {
		t.Fatal("bus subscription did not route to the notification module")
	}
}
