// Package transport defines the request and response shapes for the clients
// HTTP surface.
package transport

import (
	"encoding/json"
	"time"

	"concierge_backend/internal/clients/domain"
	"concierge_backend/internal/clients/service"

	"github.com/google/uuid"
)

// CompleteRegistrationRequest redeems a registration link.
type CompleteRegistrationRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=10,max=72"`
}

// VerifyTokenRequest pre-checks a registration link.
type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// TokenPreviewResponse greets the lead on the registration form.
type TokenPreviewResponse struct {
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UpdateProfileRequest is a partial profile update; absent fields are left
// untouched.
type UpdateProfileRequest struct {
	FullName            *string `json:"fullName" validate:"omitempty,min=2,max=120"`
	Phone               *string `json:"phone" validate:"omitempty,min=7,max=32"`
	LinkedInURL         *string `json:"linkedinUrl" validate:"omitempty,url,max=500"`
	CurrentJobTitle     *string `json:"currentJobTitle" validate:"omitempty,max=160"`
	TargetJobTitle      *string `json:"targetJobTitle" validate:"omitempty,max=160"`
	YearsExperience     *int    `json:"yearsExperience" validate:"omitempty,min=0,max=80"`
	Country             *string `json:"country" validate:"omitempty,max=80"`
	Location            *string `json:"location" validate:"omitempty,max=160"`
	RoleTargets         *string `json:"roleTargets" validate:"omitempty,max=500"`
	LocationPreferences *string `json:"locationPreferences" validate:"omitempty,max=500"`
	MinimumSalary       *int64  `json:"minimumSalary" validate:"omitempty,min=0"`
	ResumeURL           *string `json:"resumeUrl" validate:"omitempty,url,max=500"`
	Age                 *int    `json:"age" validate:"omitempty,min=16,max=100"`
	ProfilePictureURL   *string `json:"profilePictureUrl" validate:"omitempty,url,max=500"`
	EmploymentStatus    *string `json:"employmentStatus" validate:"omitempty,max=80"`
	TargetMarket        *string `json:"targetMarket" validate:"omitempty,max=160"`
}

// ToUpdateInput maps the request onto the service input.
func (r UpdateProfileRequest) ToUpdateInput() service.UpdateProfileInput {
	return service.UpdateProfileInput{
		FullName:            r.FullName,
		Phone:               r.Phone,
		LinkedInURL:         r.LinkedInURL,
		CurrentJobTitle:     r.CurrentJobTitle,
		TargetJobTitle:      r.TargetJobTitle,
		YearsExperience:     r.YearsExperience,
		Country:             r.Country,
		Location:            r.Location,
		RoleTargets:         r.RoleTargets,
		LocationPreferences: r.LocationPreferences,
		MinimumSalary:       r.MinimumSalary,
		ResumeURL:           r.ResumeURL,
		Age:                 r.Age,
		ProfilePictureURL:   r.ProfilePictureURL,
		EmploymentStatus:    r.EmploymentStatus,
		TargetMarket:        r.TargetMarket,
	}
}

// SubmitOnboardingRequest carries the questionnaire answers as an opaque
// document.
type SubmitOnboardingRequest struct {
	Answers json.RawMessage `json:"answers" validate:"required"`
}

// UploadURLRequest asks for a presigned upload URL for a profile file.
type UploadURLRequest struct {
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,gt=0"`
}

// ProfileResponse is a client record with its derived gating state.
type ProfileResponse struct {
	ID             uuid.UUID `json:"id"`
	ConsultationID uuid.UUID `json:"consultationId"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	Phone          *string   `json:"phone,omitempty"`

	LinkedInURL         *string `json:"linkedinUrl,omitempty"`
	CurrentJobTitle     *string `json:"currentJobTitle,omitempty"`
	TargetJobTitle      *string `json:"targetJobTitle,omitempty"`
	YearsExperience     *int    `json:"yearsExperience,omitempty"`
	Country             *string `json:"country,omitempty"`
	Location            *string `json:"location,omitempty"`
	RoleTargets         *string `json:"roleTargets,omitempty"`
	LocationPreferences *string `json:"locationPreferences,omitempty"`
	MinimumSalary       *int64  `json:"minimumSalary,omitempty"`
	ResumeURL           *string `json:"resumeUrl,omitempty"`
	Age                 *int    `json:"age,omitempty"`
	ProfilePictureURL   *string `json:"profilePictureUrl,omitempty"`
	EmploymentStatus    *string `json:"employmentStatus,omitempty"`
	TargetMarket        *string `json:"targetMarket,omitempty"`

	OnboardingCompleted   bool       `json:"onboardingCompleted"`
	OnboardingSubmittedAt *time.Time `json:"onboardingSubmittedAt,omitempty"`
	ProfileUnlocked       bool       `json:"profileUnlocked"`

	Completion domain.CompletionReport `json:"completion"`
	Discovery  domain.DiscoveryState   `json:"discoveryStatus"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToProfileResponse maps a service profile to the wire shape.
func ToProfileResponse(p service.Profile) ProfileResponse {
	c := p.Client
	return ProfileResponse{
		ID:                    c.ID,
		ConsultationID:        c.ConsultationID,
		FullName:              c.FullName,
		Email:                 c.Email,
		Phone:                 c.Phone,
		LinkedInURL:           c.LinkedInURL,
		CurrentJobTitle:       c.CurrentJobTitle,
		TargetJobTitle:        c.TargetJobTitle,
		YearsExperience:       c.YearsExperience,
		Country:               c.Country,
		Location:              c.Location,
		RoleTargets:           c.RoleTargets,
		LocationPreferences:   c.LocationPreferences,
		MinimumSalary:         c.MinimumSalary,
		ResumeURL:             c.ResumeURL,
		Age:                   c.Age,
		ProfilePictureURL:     c.ProfilePictureURL,
		EmploymentStatus:      c.EmploymentStatus,
		TargetMarket:          c.TargetMarket,
		OnboardingCompleted:   c.OnboardingCompleted,
		OnboardingSubmittedAt: c.OnboardingSubmittedAt,
		ProfileUnlocked:       c.ProfileUnlocked,
		Completion:            p.Completion,
		Discovery:             p.Discovery,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}
