package domain

import "testing"

func TestDiscoveryGate(t *testing.T) {
	cases := []struct {
		name                string
		onboardingCompleted bool
		profileUnlocked     bool
		want                DiscoveryState
	}{
		{"fresh client", false, false, DiscoveryNotStarted},
		{"submitted, awaiting review", true, false, DiscoveryPendingReview},
		{"approved", true, true, DiscoveryUnlocked},
		// Unreachable through the approval flow; must not leak open.
		{"unlocked without onboarding", false, true, DiscoveryNotStarted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DiscoveryGate(tc.onboardingCompleted, tc.profileUnlocked)
			if got != tc.want {
				t.Fatalf("DiscoveryGate(%v, %v) = %s, want %s", tc.onboardingCompleted, tc.profileUnlocked, got, tc.want)
			}
		})
	}
}

func TestCanUnlockProfile(t *testing.T) {
	if CanUnlockProfile(false, false) {
		t.Fatalf("approval must be blocked before onboarding submission")
	}
	if !CanUnlockProfile(true, false) {
		t.Fatalf("approval should be allowed once onboarding is submitted")
	}
	if CanUnlockProfile(true, true) {
		t.Fatalf("approval must not repeat on an unlocked profile")
	}
}
