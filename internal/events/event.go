// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"concierge_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// ConsultationRequested is published when a visitor submits the public
// consultation booking form.
type ConsultationRequested struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	CurrentRole    string    `json:"currentRole,omitempty"`
	RoleInterest   string    `json:"roleInterest,omitempty"`
	TimeSlots      []string  `json:"timeSlots"`
}

func (e ConsultationRequested) EventName() string { return "pipeline.consultation.requested" }

// LeadUnderReview is published when an admin pulls a lead into review.
type LeadUnderReview struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	ReviewedBy     uuid.UUID `json:"reviewedBy"`
}

func (e LeadUnderReview) EventName() string { return "pipeline.lead.under_review" }

// LeadApproved is published when an admin approves a lead. The registration
// URL embeds the freshly issued single-use token.
type LeadApproved struct {
	BaseEvent
	ConsultationID  uuid.UUID `json:"consultationId"`
	FullName        string    `json:"fullName"`
	Email           string    `json:"email"`
	RegistrationURL string    `json:"registrationUrl"`
	TokenExpiresAt  time.Time `json:"tokenExpiresAt"`
	ApprovedBy      uuid.UUID `json:"approvedBy"`
}

func (e LeadApproved) EventName() string { return "pipeline.lead.approved" }

// LeadRejected is published when an admin rejects a lead.
type LeadRejected struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Reason         string    `json:"reason,omitempty"`
}

func (e LeadRejected) EventName() string { return "pipeline.lead.rejected" }

// ConsultationTimeConfirmed is published when an admin confirms one of the
// proposed time slots.
type ConsultationTimeConfirmed struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	ConfirmedTime  time.Time `json:"confirmedTime"`
	MeetingLink    string    `json:"meetingLink,omitempty"`
	MeetingType    string    `json:"meetingType,omitempty"`
}

func (e ConsultationTimeConfirmed) EventName() string { return "pipeline.consultation.confirmed" }

// NewTimesRequested is published when an admin asks the lead for new time slots.
type NewTimesRequested struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Note           string    `json:"note,omitempty"`
}

func (e NewTimesRequested) EventName() string { return "pipeline.consultation.new_times_requested" }

// NewTimesResubmitted is published when a lead answers a new-times request
// with replacement slots. Fanned out to admins.
type NewTimesResubmitted struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	TimeSlots      []string  `json:"timeSlots"`
}

func (e NewTimesResubmitted) EventName() string { return "pipeline.consultation.new_times_resubmitted" }

// ConsultationCompleted is published when an admin records the consultation outcome.
type ConsultationCompleted struct {
	BaseEvent
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Outcome        string    `json:"outcome"` // "proceeding" or "not_proceeding"
}

func (e ConsultationCompleted) EventName() string { return "pipeline.consultation.completed" }

// PaymentReceived is published when an admin records the consultation payment.
// Like LeadApproved, it carries a registration URL for the payment-variant token.
type PaymentReceived struct {
	BaseEvent
	ConsultationID  uuid.UUID `json:"consultationId"`
	FullName        string    `json:"fullName"`
	Email           string    `json:"email"`
	AmountCents     int64     `json:"amountCents"`
	RegistrationURL string    `json:"registrationUrl"`
	TokenExpiresAt  time.Time `json:"tokenExpiresAt"`
}

func (e PaymentReceived) EventName() string { return "pipeline.payment.received" }

// =============================================================================
// Client Domain Events
// =============================================================================

// RegistrationCompleted is published when a client account is created from a
// valid registration token.
type RegistrationCompleted struct {
	BaseEvent
	ClientID       uuid.UUID `json:"clientId"`
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
}

func (e RegistrationCompleted) EventName() string { return "clients.registration.completed" }

// OnboardingSubmitted is published when a client submits the onboarding
// questionnaire. Fanned out to admins for review.
type OnboardingSubmitted struct {
	BaseEvent
	ClientID uuid.UUID `json:"clientId"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

func (e OnboardingSubmitted) EventName() string { return "clients.onboarding.submitted" }

// ProfileUnlocked is published when an admin approves the onboarding answers
// and unlocks the client's execution features.
type ProfileUnlocked struct {
	BaseEvent
	ClientID   uuid.UUID `json:"clientId"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	UnlockedBy uuid.UUID `json:"unlockedBy"`
}

func (e ProfileUnlocked) EventName() string { return "clients.profile.unlocked" }
