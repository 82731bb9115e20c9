package domain

// ConsultationStatus is the scheduling axis of a consultation request. It is
// orthogonal to PipelineStatus and only meaningful before the record reaches
// a terminal pipeline state.
type ConsultationStatus string

const (
	ConsultationPending          ConsultationStatus = "pending"
	ConsultationConfirmed        ConsultationStatus = "confirmed"
	ConsultationAwaitingNewTimes ConsultationStatus = "awaiting_new_times"
	ConsultationCompleted        ConsultationStatus = "completed"
	ConsultationPaymentReceived  ConsultationStatus = "payment_received"
)

// Consultation outcomes recorded when an admin completes a consultation.
const (
	OutcomeProceeding    = "proceeding"
	OutcomeNotProceeding = "not_proceeding"
)

// Workflow stages presented to admins alongside the scheduling status.
const (
	WorkflowStageConsultation         = "consultation"
	WorkflowStageAwaitingRegistration = "awaiting_registration"
	WorkflowStageRegistered           = "registered"
)

// MinTimeSlot and MaxTimeSlot bound the 1-based preferred slot indices a lead
// may propose and an admin may confirm.
const (
	MinTimeSlot = 1
	MaxTimeSlot = 3
)

// ValidSlotIndex reports whether a chosen slot index is in range.
func ValidSlotIndex(slot int) bool {
	return slot >= MinTimeSlot && slot <= MaxTimeSlot
}

// canConfirm lists scheduling statuses from which an admin may confirm a slot.
var canConfirm = map[ConsultationStatus]bool{
	ConsultationPending: true,
}

// canRequestNewTimes lists scheduling statuses from which an admin may ask the
// lead for a fresh set of slots.
var canRequestNewTimes = map[ConsultationStatus]bool{
	ConsultationPending:   true,
	ConsultationConfirmed: true,
}

// CanConfirmTime reports whether a slot confirmation is allowed.
func CanConfirmTime(current ConsultationStatus) bool {
	return canConfirm[current]
}

// CanRequestNewTimes reports whether asking for new slots is allowed.
func CanRequestNewTimes(current ConsultationStatus) bool {
	return canRequestNewTimes[current]
}

// CanResubmitTimes reports whether the lead may submit replacement slots.
func CanResubmitTimes(current ConsultationStatus) bool {
	return current == ConsultationAwaitingNewTimes
}

// CanComplete reports whether the consultation outcome may be recorded.
func CanComplete(current ConsultationStatus) bool {
	return current == ConsultationConfirmed
}

// CanRecordPayment reports whether payment may be recorded. Payment follows a
// consultation completed with a proceeding outcome.
func CanRecordPayment(current ConsultationStatus, outcome string) bool {
	return current == ConsultationCompleted && outcome == OutcomeProceeding
}

// ValidOutcome reports whether a completion outcome is recognized.
func ValidOutcome(outcome string) bool {
	return outcome == OutcomeProceeding || outcome == OutcomeNotProceeding
}
