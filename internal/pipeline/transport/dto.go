// Package transport defines the request and response shapes for the pipeline
// HTTP surface.
package transport

import (
	"time"

	"concierge_backend/internal/pipeline/domain"
	"concierge_backend/internal/pipeline/repository"

	"github.com/google/uuid"
)

// SubmitConsultationRequest is the public booking form payload.
type SubmitConsultationRequest struct {
	FullName     string      `json:"fullName" validate:"required,min=2,max=120"`
	Email        string      `json:"email" validate:"required,email,max=254"`
	Phone        string      `json:"phone" validate:"required,min=7,max=32"`
	CurrentRole  *string     `json:"currentRole" validate:"omitempty,max=160"`
	RoleInterest *string     `json:"roleInterest" validate:"omitempty,max=160"`
	Message      *string     `json:"message" validate:"omitempty,max=4000"`
	TimeSlots    []time.Time `json:"timeSlots" validate:"required,min=1,max=3"`
}

// ResubmitTimesRequest carries replacement slots after a new-times request.
type ResubmitTimesRequest struct {
	TimeSlots []time.Time `json:"timeSlots" validate:"required,min=1,max=3"`
}

// RejectRequest carries an optional rejection reason.
type RejectRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=1000"`
}

// ConfirmTimeRequest selects one of the proposed slots.
type ConfirmTimeRequest struct {
	SlotIndex   int     `json:"slotIndex" validate:"required,min=1,max=3"`
	MeetingLink *string `json:"meetingLink" validate:"omitempty,url,max=500"`
	MeetingType *string `json:"meetingType" validate:"omitempty,oneof=video phone in_person"`
}

// RequestNewTimesRequest carries an optional note for the lead.
type RequestNewTimesRequest struct {
	Note *string `json:"note" validate:"omitempty,max=1000"`
}

// CompleteConsultationRequest records the meeting outcome.
type CompleteConsultationRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=proceeding not_proceeding"`
}

// RecordPaymentRequest records the consultation payment.
type RecordPaymentRequest struct {
	AmountCents int64   `json:"amountCents" validate:"required,gt=0"`
	Method      *string `json:"method" validate:"omitempty,max=60"`
	Reference   *string `json:"reference" validate:"omitempty,max=160"`
}

// ConsultationResponse is the full admin view of a consultation.
type ConsultationResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`

	CurrentRole  *string `json:"currentRole,omitempty"`
	RoleInterest *string `json:"roleInterest,omitempty"`
	Message      *string `json:"message,omitempty"`

	TimeSlots []time.Time `json:"timeSlots"`

	PipelineStatus     string `json:"pipelineStatus"`
	ConsultationStatus string `json:"consultationStatus"`
	WorkflowStage      string `json:"workflowStage"`
	// Status is the legacy coarse-grained projection kept for older clients.
	Status string `json:"status"`

	SelectedTimeSlot *int       `json:"selectedTimeSlot,omitempty"`
	ConfirmedTime    *time.Time `json:"confirmedTime,omitempty"`
	MeetingLink      *string    `json:"meetingLink,omitempty"`
	MeetingType      *string    `json:"meetingType,omitempty"`

	ConsultationOutcome *string `json:"consultationOutcome,omitempty"`
	RejectionReason     *string `json:"rejectionReason,omitempty"`

	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
	TokenUsed      bool       `json:"tokenUsed"`

	PaymentAmountCents *int64     `json:"paymentAmountCents,omitempty"`
	PaymentReceived    bool       `json:"paymentReceived"`
	PaymentReceivedAt  *time.Time `json:"paymentReceivedAt,omitempty"`

	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	ApprovedAt   *time.Time `json:"approvedAt,omitempty"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicConsultationResponse is the reduced view returned to the submitting
// visitor. The raw token and payment internals never leave the admin surface.
type PublicConsultationResponse struct {
	ID                 uuid.UUID   `json:"id"`
	FullName           string      `json:"fullName"`
	Email              string      `json:"email"`
	TimeSlots          []time.Time `json:"timeSlots"`
	ConsultationStatus string      `json:"consultationStatus"`
	ConfirmedTime      *time.Time  `json:"confirmedTime,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// PipelineEventResponse is one audit-trail entry.
type PipelineEventResponse struct {
	ID         uuid.UUID  `json:"id"`
	FromStatus string     `json:"fromStatus,omitempty"`
	ToStatus   string     `json:"toStatus"`
	Actor      *uuid.UUID `json:"actor,omitempty"`
	Note       *string    `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ToConsultationResponse maps a stored consultation to the admin view.
func ToConsultationResponse(c repository.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:                  c.ID,
		FullName:            c.FullName,
		Email:               c.Email,
		Phone:               c.Phone,
		CurrentRole:         c.CurrentRole,
		RoleInterest:        c.RoleInterest,
		Message:             c.Message,
		TimeSlots:           collectSlots(c),
		PipelineStatus:      string(c.PipelineStatus),
		ConsultationStatus:  string(c.ConsultationStatus),
		WorkflowStage:       c.WorkflowStage,
		Status:              domain.LegacyStatus(c.PipelineStatus),
		SelectedTimeSlot:    c.SelectedTimeSlot,
		ConfirmedTime:       c.ConfirmedTime,
		MeetingLink:         c.MeetingLink,
		MeetingType:         c.MeetingType,
		ConsultationOutcome: c.ConsultationOutcome,
		RejectionReason:     c.RejectionReason,
		TokenExpiresAt:      c.TokenExpiresAt,
		TokenUsed:           c.TokenUsed,
		PaymentAmountCents:  c.PaymentAmountCents,
		PaymentReceived:     c.PaymentReceived,
		PaymentReceivedAt:   c.PaymentReceivedAt,
		ReviewedAt:          c.ReviewedAt,
		ApprovedAt:          c.ApprovedAt,
		RegisteredAt:        c.RegisteredAt,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

// ToPublicConsultationResponse maps a stored consultation to the visitor view.
func ToPublicConsultationResponse(c repository.Consultation) PublicConsultationResponse {
	return PublicConsultationResponse{
		ID:                 c.ID,
		FullName:           c.FullName,
		Email:              c.Email,
		TimeSlots:          collectSlots(c),
		ConsultationStatus: string(c.ConsultationStatus),
		ConfirmedTime:      c.ConfirmedTime,
		CreatedAt:          c.CreatedAt,
	}
}

// ToPipelineEventResponses maps the stored audit trail.
func ToPipelineEventResponses(events []repository.PipelineEvent) []PipelineEventResponse {
	out := make([]PipelineEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, PipelineEventResponse{
			ID:         e.ID,
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			Actor:      e.Actor,
			Note:       e.Note,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

func collectSlots(c repository.Consultation) []time.Time {
	out := make([]time.Time, 0, 3)
	for _, slot := range []*time.Time{c.TimeSlot1, c.TimeSlot2, c.TimeSlot3} {
		if slot != nil {
			out = append(out, *slot)
		}
	}
	return out
}
