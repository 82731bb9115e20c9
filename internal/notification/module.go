// Package notification turns domain events into outgoing emails. It subscribes
// to the event bus and inverts the dependency: pipeline and client modules
// publish what happened, without knowing about templates or mail providers.
//
// The event-to-template mapping is a public contract:
//
//	pipeline.consultation.requested             -> consultation_received (admin)
//	pipeline.lead.under_review                  -> application_under_review
//	pipeline.lead.approved                      -> lead_selected
//	pipeline.lead.rejected                      -> consultation_rejected
//	pipeline.consultation.confirmed             -> consultation_confirmed
//	pipeline.consultation.new_times_requested   -> new_times_requested
//	pipeline.consultation.new_times_resubmitted -> new_times_resubmitted (admin)
//	pipeline.payment.received                   -> payment_received_welcome
//	clients.registration.completed              -> registration_complete
//	clients.onboarding.submitted                -> onboarding_submitted (admin)
//	clients.profile.unlocked                    -> profile_unlocked
//
// Dispatch is fire-and-forget: a failed or misconfigured send is logged and
// swallowed, never surfaced to the operation that raised the event.
package notification

import (
	"context"
	"strings"
	"time"

	"concierge_backend/internal/email"
	"concierge_backend/internal/events"
	"concierge_backend/internal/scheduler"
	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"
)

// Queue hands a dispatch payload to the delivery mechanism. Satisfied by
// *scheduler.Client when Redis is configured, and by InlineQueue otherwise.
type Queue interface {
	EnqueueEmail(ctx context.Context, payload scheduler.EmailDispatchPayload) error
}

// InlineQueue delivers on a detached goroutine instead of going through Redis.
// Used when no queue backend is configured.
type InlineQueue struct {
	Sender email.Sender
	Log    *logger.Logger
}

func (q InlineQueue) EnqueueEmail(ctx context.Context, payload scheduler.EmailDispatchPayload) error {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		err := scheduler.DeliverEmail(sendCtx, q.Sender, payload)
		q.Log.EmailEvent(string(payload.Template), payload.ToEmail, err)
	}()
	return nil
}

type Module struct {
	queue Queue
	cfg   config.NotificationConfig
	log   *logger.Logger
}

func New(queue Queue, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{queue: queue, cfg: cfg, log: log}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes the module to every event it emails on.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.ConsultationRequested{}.EventName(), m)
	bus.Subscribe(events.LeadUnderReview{}.EventName(), m)
	bus.Subscribe(events.LeadApproved{}.EventName(), m)
	bus.Subscribe(events.LeadRejected{}.EventName(), m)
	bus.Subscribe(events.ConsultationTimeConfirmed{}.EventName(), m)
	bus.Subscribe(events.NewTimesRequested{}.EventName(), m)
	bus.Subscribe(events.NewTimesResubmitted{}.EventName(), m)
	bus.Subscribe(events.PaymentReceived{}.EventName(), m)
	bus.Subscribe(events.RegistrationCompleted{}.EventName(), m)
	bus.Subscribe(events.OnboardingSubmitted{}.EventName(), m)
	bus.Subscribe(events.ProfileUnlocked{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the matching template dispatch.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ConsultationRequested:
		return m.handleConsultationRequested(ctx, e)
	case events.LeadUnderReview:
		return m.handleLeadUnderReview(ctx, e)
	case events.LeadApproved:
		return m.handleLeadApproved(ctx, e)
	case events.LeadRejected:
		return m.handleLeadRejected(ctx, e)
	case events.ConsultationTimeConfirmed:
		return m.handleTimeConfirmed(ctx, e)
	case events.NewTimesRequested:
		return m.handleNewTimesRequested(ctx, e)
	case events.NewTimesResubmitted:
		return m.handleNewTimesResubmitted(ctx, e)
	case events.PaymentReceived:
		return m.handlePaymentReceived(ctx, e)
	case events.RegistrationCompleted:
		return m.handleRegistrationCompleted(ctx, e)
	case events.OnboardingSubmitted:
		return m.handleOnboardingSubmitted(ctx, e)
	case events.ProfileUnlocked:
		return m.handleProfileUnlocked(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleConsultationRequested(ctx context.Context, e events.ConsultationRequested) error {
	m.dispatchToAdmin(ctx, email.TemplateConsultationReceived, map[string]string{
		"lead_name":     e.FullName,
		"lead_email":    e.Email,
		"lead_phone":    e.Phone,
		"current_role":  e.CurrentRole,
		"role_interest": e.RoleInterest,
		"time_slots":    strings.Join(e.TimeSlots, ", "),
	})
	return nil
}

func (m *Module) handleLeadUnderReview(ctx context.Context, e events.LeadUnderReview) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplateUnderReview,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields:   map[string]string{"lead_name": e.FullName},
	})
	return nil
}

func (m *Module) handleLeadApproved(ctx context.Context, e events.LeadApproved) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplateLeadSelected,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields: map[string]string{
			"lead_name":        e.FullName,
			"registration_url": e.RegistrationURL,
			"token_expires_at": formatTime(e.TokenExpiresAt),
		},
		QRContent: e.RegistrationURL,
	})
	return nil
}

func (m *Module) handleLeadRejected(ctx context.Context, e events.LeadRejected) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplateConsultationRejected,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields: map[string]string{
			"lead_name": e.FullName,
			"reason":    e.Reason,
		},
	})
	return nil
}

func (m *Module) handleTimeConfirmed(ctx context.Context, e events.ConsultationTimeConfirmed) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplateTimeConfirmed,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields: map[string]string{
			"lead_name":    e.FullName,
			"meeting_time": formatTime(e.ConfirmedTime),
			"meeting_type": e.MeetingType,
			"meeting_link": e.MeetingLink,
		},
	})
	return nil
}

func (m *Module) handleNewTimesRequested(ctx context.Context, e events.NewTimesRequested) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplateNewTimesRequested,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields: map[string]string{
			"lead_name": e.FullName,
			"note":      e.Note,
		},
	})
	return nil
}

func (m *Module) handleNewTimesResubmitted(ctx context.Context, e events.NewTimesResubmitted) error {
	m.dispatchToAdmin(ctx, email.TemplateNewTimesResubmitted, map[string]string{
		"lead_name":  e.FullName,
		"time_slots": strings.Join(e.TimeSlots, ", "),
	})
	return nil
}

func (m *Module) handlePaymentReceived(ctx context.Context, e events.PaymentReceived) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplatePaymentReceived,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields: map[string]string{
			"lead_name":        e.FullName,
			"amount":           email.FormatAmount(m.cfg.GetCurrency(), e.AmountCents),
			"registration_url": e.RegistrationURL,
			"token_expires_at": formatTime(e.TokenExpiresAt),
		},
		QRContent: e.RegistrationURL,
	})
	return nil
}

func (m *Module) handleRegistrationCompleted(ctx context.Context, e events.RegistrationCompleted) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplateRegistrationComplete,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields:   map[string]string{"client_name": e.FullName},
	})
	return nil
}

func (m *Module) handleOnboardingSubmitted(ctx context.Context, e events.OnboardingSubmitted) error {
	m.dispatchToAdmin(ctx, email.TemplateOnboardingSubmitted, map[string]string{
		"client_name":  e.FullName,
		"client_email": e.Email,
	})
	return nil
}

func (m *Module) handleProfileUnlocked(ctx context.Context, e events.ProfileUnlocked) error {
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: email.TemplateProfileUnlocked,
		ToEmail:  e.Email,
		ToName:   e.FullName,
		Fields:   map[string]string{"client_name": e.FullName},
	})
	return nil
}

func (m *Module) dispatchToAdmin(ctx context.Context, tmpl email.Template, fields map[string]string) {
	adminEmail := m.cfg.GetAdminNotifyEmail()
	if adminEmail == "" {
		m.log.Debug("admin notify email not configured, skipping", "template", string(tmpl))
		return
	}
	m.dispatch(ctx, scheduler.EmailDispatchPayload{
		Template: tmpl,
		ToEmail:  adminEmail,
		ToName:   m.cfg.GetBusinessName(),
		Fields:   fields,
	})
}

func (m *Module) dispatch(ctx context.Context, payload scheduler.EmailDispatchPayload) {
	if payload.ToEmail == "" {
		m.log.Warn("notification without recipient, skipping", "template", string(payload.Template))
		return
	}
	if err := m.queue.EnqueueEmail(ctx, payload); err != nil {
		m.log.EmailEvent(string(payload.Template), payload.ToEmail, err)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Monday, 2 January 2006 at 15:04")
}
