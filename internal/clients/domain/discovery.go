package domain

// DiscoveryState is the single queryable gate for the execution features.
// It is driven by onboarding approval, not by profile completion.
type DiscoveryState string

const (
	// DiscoveryNotStarted: the client has not submitted onboarding yet.
	DiscoveryNotStarted DiscoveryState = "NOT_STARTED"
	// DiscoveryPendingReview: onboarding submitted, awaiting admin approval.
	DiscoveryPendingReview DiscoveryState = "PENDING_REVIEW"
	// DiscoveryUnlocked: admin approved; execution features are visible.
	DiscoveryUnlocked DiscoveryState = "UNLOCKED"
)

// DiscoveryGate classifies the onboarding flags into exactly one state.
// profile_unlocked without onboarding_completed is unreachable through the
// approval flow; if storage ever holds that combination it is treated as not
// started so nothing leaks open.
func DiscoveryGate(onboardingCompleted, profileUnlocked bool) DiscoveryState {
	switch {
	case onboardingCompleted && profileUnlocked:
		return DiscoveryUnlocked
	case onboardingCompleted:
		return DiscoveryPendingReview
	default:
		return DiscoveryNotStarted
	}
}

// CanUnlockProfile reports whether the admin approval action is allowed.
// Approval requires a submitted onboarding, and an already unlocked profile
// cannot be approved again.
func CanUnlockProfile(onboardingCompleted, profileUnlocked bool) bool {
	return onboardingCompleted && !profileUnlocked
}
