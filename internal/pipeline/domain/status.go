// Package domain provides core business rules for the pipeline bounded context.
package domain

// PipelineStatus is the canonical lifecycle stage of a consultation request.
// It only moves forward (lead -> under_review -> approved -> client) or
// sideways to rejected; rejected and client are terminal.
type PipelineStatus string

const (
	StatusLead        PipelineStatus = "lead"
	StatusUnderReview PipelineStatus = "under_review"
	StatusApproved    PipelineStatus = "approved"
	StatusRejected    PipelineStatus = "rejected"
	StatusClient      PipelineStatus = "client"
)

var knownStatuses = map[PipelineStatus]struct{}{
	StatusLead:        {},
	StatusUnderReview: {},
	StatusApproved:    {},
	StatusRejected:    {},
	StatusClient:      {},
}

// IsKnownStatus reports whether a raw value names a pipeline status.
func IsKnownStatus(status PipelineStatus) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsTerminal reports whether no further pipeline transitions may occur.
func (s PipelineStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusClient
}

// requiredCurrent maps a forward target status to the only status it may be
// reached from. Reject is handled separately since it is reachable from any
// non-client state.
var requiredCurrent = map[PipelineStatus]PipelineStatus{
	StatusUnderReview: StatusLead,
	StatusApproved:    StatusUnderReview,
	StatusClient:      StatusApproved,
}

// RequiredCurrent returns the status a record must be in before moving to
// target. The second return is false for targets with no forward edge.
func RequiredCurrent(target PipelineStatus) (PipelineStatus, bool) {
	current, ok := requiredCurrent[target]
	return current, ok
}

// CanReject reports whether a record in the given status may be rejected.
// Registered clients cannot be rejected.
func CanReject(current PipelineStatus) bool {
	return current != StatusClient
}

// LegacyStatus derives the coarse historical status field from the canonical
// pipeline status. It is a read-only projection kept for API compatibility
// with pre-pipeline clients; it is never written independently.
func LegacyStatus(s PipelineStatus) string {
	switch s {
	case StatusLead, StatusUnderReview:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	case StatusClient:
		return "converted"
	default:
		return "pending"
	}
}
