// Package domain holds the pure client-side rules: profile completion scoring,
// feature gating, and the discovery-mode classifier. No storage, no side
// effects; everything here is recomputed on demand.
package domain

import (
	"math"
	"strconv"
	"strings"
)

// ProfileView is the merged client-plus-consultation record the completion
// engine scores. Callers build it by overlaying client profile fields on top
// of what the original consultation captured, so a value supplied at either
// stage counts.
type ProfileView struct {
	FullName            string
	Email               string
	Phone               string
	LinkedInURL         string
	CurrentJobTitle     string
	TargetJobTitle      string
	YearsExperience     *int
	Country             string
	Location            string
	RoleTargets         string
	LocationPreferences string
	MinimumSalary       *int64
	ResumeURL           string

	Age               *int
	ProfilePictureURL string
	EmploymentStatus  string
	TargetMarket      string
}

// FeatureFlags are the percentage-gated feature unlocks.
type FeatureFlags struct {
	ApplicationTracking bool `json:"applicationTracking"`
	InterviewHub        bool `json:"interviewHub"`
	DocumentVault       bool `json:"documentVault"`
	FullAccess          bool `json:"fullAccess"`
}

// CompletionReport is the derived profile-completion status. It is never
// persisted.
type CompletionReport struct {
	Percentage        int          `json:"percentage"`
	IsComplete        bool         `json:"isComplete"`
	RequiredCompleted int          `json:"requiredCompleted"`
	RequiredTotal     int          `json:"requiredTotal"`
	OptionalCompleted int          `json:"optionalCompleted"`
	OptionalTotal     int          `json:"optionalTotal"`
	MissingFields     []string     `json:"missingFields"`
	FeaturesUnlocked  FeatureFlags `json:"featuresUnlocked"`
}

// Feature unlock thresholds. Full access requires every required field, not a
// percentage.
const (
	ThresholdApplicationTracking = 40
	ThresholdInterviewHub        = 60
	ThresholdDocumentVault       = 80

	requiredWeight = 80.0
	optionalWeight = 20.0
)

type fieldSpec struct {
	name string
	get  func(ProfileView) string
}

// The field lists are fixed and ordered; missing_fields reports names in this
// order.
var requiredFields = []fieldSpec{
	{"full_name", func(p ProfileView) string { return p.FullName }},
	{"email", func(p ProfileView) string { return p.Email }},
	{"phone", func(p ProfileView) string { return p.Phone }},
	{"linkedin_url", func(p ProfileView) string { return p.LinkedInURL }},
	{"current_job_title", func(p ProfileView) string { return p.CurrentJobTitle }},
	{"target_job_title", func(p ProfileView) string { return p.TargetJobTitle }},
	{"years_experience", func(p ProfileView) string { return intPtrString(p.YearsExperience) }},
	{"country", func(p ProfileView) string { return p.Country }},
	{"location", func(p ProfileView) string { return p.Location }},
	{"role_targets", func(p ProfileView) string { return p.RoleTargets }},
	{"location_preferences", func(p ProfileView) string { return p.LocationPreferences }},
	{"minimum_salary", func(p ProfileView) string { return int64PtrString(p.MinimumSalary) }},
	{"resume_url", func(p ProfileView) string { return p.ResumeURL }},
}

var optionalFields = []fieldSpec{
	{"age", func(p ProfileView) string { return intPtrString(p.Age) }},
	{"profile_picture_url", func(p ProfileView) string { return p.ProfilePictureURL }},
	{"employment_status", func(p ProfileView) string { return p.EmploymentStatus }},
	{"target_market", func(p ProfileView) string { return p.TargetMarket }},
}

// Completion scores a merged profile. Required fields carry 80% of the weight,
// optional fields 20%. A field is present iff its string form is non-blank, so
// a literal 0 or false counts as present.
func Completion(view ProfileView) CompletionReport {
	var missing []string

	requiredPresent := 0
	for _, f := range requiredFields {
		if present(f.get(view)) {
			requiredPresent++
		} else {
			missing = append(missing, f.name)
		}
	}

	optionalPresent := 0
	for _, f := range optionalFields {
		if present(f.get(view)) {
			optionalPresent++
		} else {
			missing = append(missing, f.name)
		}
	}

	percentage := int(math.Round(
		requiredWeight*float64(requiredPresent)/float64(len(requiredFields)) +
			optionalWeight*float64(optionalPresent)/float64(len(optionalFields)),
	))
	isComplete := requiredPresent == len(requiredFields)

	return CompletionReport{
		Percentage:        percentage,
		IsComplete:        isComplete,
		RequiredCompleted: requiredPresent,
		RequiredTotal:     len(requiredFields),
		OptionalCompleted: optionalPresent,
		OptionalTotal:     len(optionalFields),
		MissingFields:     missing,
		FeaturesUnlocked: FeatureFlags{
			ApplicationTracking: percentage >= ThresholdApplicationTracking,
			InterviewHub:        percentage >= ThresholdInterviewHub,
			DocumentVault:       percentage >= ThresholdDocumentVault,
			FullAccess:          isComplete,
		},
	}
}

func present(value string) bool {
	return strings.TrimSpace(value) != ""
}

func intPtrString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func int64PtrString(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
