package domain

import "testing"

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func fullProfile() ProfileView {
	return ProfileView{
		FullName:            "Jordan Reyes",
		Email:               "jordan@example.com",
		Phone:               "+12125550188",
		LinkedInURL:         "https://linkedin.com/in/jordanreyes",
		CurrentJobTitle:     "Senior Engineer",
		TargetJobTitle:      "Staff Engineer",
		YearsExperience:     intPtr(9),
		Country:             "US",
		Location:            "New York",
		RoleTargets:         "Staff Engineer, Principal Engineer",
		LocationPreferences: "Remote, NYC",
		MinimumSalary:       int64Ptr(210000),
		ResumeURL:           "https://cdn.example.com/resume.pdf",
		Age:                 intPtr(34),
		ProfilePictureURL:   "https://cdn.example.com/photo.jpg",
		EmploymentStatus:    "employed",
		TargetMarket:        "US",
	}
}

func TestCompletionFullProfile(t *testing.T) {
	report := Completion(fullProfile())

	if report.Percentage != 100 {
		t.Fatalf("percentage = %d, want 100", report.Percentage)
	}
	if !report.IsComplete {
		t.Fatalf("full profile should be complete")
	}
	if report.RequiredCompleted != 13 || report.RequiredTotal != 13 {
		t.Fatalf("required = %d/%d, want 13/13", report.RequiredCompleted, report.RequiredTotal)
	}
	if report.OptionalCompleted != 4 || report.OptionalTotal != 4 {
		t.Fatalf("optional = %d/%d, want 4/4", report.OptionalCompleted, report.OptionalTotal)
	}
	if len(report.MissingFields) != 0 {
		t.Fatalf("missing fields = %v, want none", report.MissingFields)
	}
	f := report.FeaturesUnlocked
	if !f.ApplicationTracking || !f.InterviewHub || !f.DocumentVault || !f.FullAccess {
		t.Fatalf("all features should be unlocked: %+v", f)
	}
}

func TestCompletionEmptyProfile(t *testing.T) {
	report := Completion(ProfileView{})

	if report.Percentage != 0 {
		t.Fatalf("percentage = %d, want 0", report.Percentage)
	}
	if report.IsComplete {
		t.Fatalf("empty profile must not be complete")
	}
	if len(report.MissingFields) != 17 {
		t.Fatalf("missing fields = %d, want 17", len(report.MissingFields))
	}
	if report.MissingFields[0] != "full_name" {
		t.Fatalf("missing fields should follow the fixed order, got %v", report.MissingFields[:3])
	}
	f := report.FeaturesUnlocked
	if f.ApplicationTracking || f.InterviewHub || f.DocumentVault || f.FullAccess {
		t.Fatalf("nothing should be unlocked: %+v", f)
	}
}

func TestCompletionWeighting(t *testing.T) {
	// All 13 required, no optionals: exactly the 80% weight.
	p := fullProfile()
	p.Age = nil
	p.ProfilePictureURL = ""
	p.EmploymentStatus = ""
	p.TargetMarket = " "

	report := Completion(p)
	if report.Percentage != 80 {
		t.Fatalf("percentage = %d, want 80", report.Percentage)
	}
	if !report.IsComplete {
		t.Fatalf("optional fields must not affect is_complete")
	}
	if !report.FeaturesUnlocked.FullAccess {
		t.Fatalf("full access tracks is_complete, not percentage")
	}

	// All 4 optionals, no required: exactly the 20% weight.
	report = Completion(ProfileView{
		Age:               intPtr(30),
		ProfilePictureURL: "https://cdn.example.com/p.jpg",
		EmploymentStatus:  "searching",
		TargetMarket:      "EU",
	})
	if report.Percentage != 20 {
		t.Fatalf("percentage = %d, want 20", report.Percentage)
	}
	if report.FeaturesUnlocked.FullAccess {
		t.Fatalf("optional-only profile must not grant full access")
	}
}

func TestCompletionThresholds(t *testing.T) {
	// 7 of 13 required: round(80*7/13) = round(43.08) = 43 -> tracking only.
	p := ProfileView{
		FullName:        "A",
		Email:           "a@example.com",
		Phone:           "+1",
		LinkedInURL:     "https://linkedin.com/in/a",
		CurrentJobTitle: "X",
		TargetJobTitle:  "Y",
		YearsExperience: intPtr(1),
	}
	report := Completion(p)
	if report.Percentage != 43 {
		t.Fatalf("percentage = %d, want 43", report.Percentage)
	}
	f := report.FeaturesUnlocked
	if !f.ApplicationTracking || f.InterviewHub || f.DocumentVault || f.FullAccess {
		t.Fatalf("only application tracking should unlock at 43%%: %+v", f)
	}

	// 10 of 13 required: round(80*10/13) = round(61.5) = 62 -> interview hub too.
	p.Country = "US"
	p.Location = "NYC"
	p.RoleTargets = "Z"
	report = Completion(p)
	if report.Percentage != 62 {
		t.Fatalf("percentage = %d, want 62", report.Percentage)
	}
	if !report.FeaturesUnlocked.InterviewHub || report.FeaturesUnlocked.DocumentVault {
		t.Fatalf("interview hub should unlock at 62%%: %+v", report.FeaturesUnlocked)
	}
}

func TestCompletionZeroValuesArePresent(t *testing.T) {
	// Literal zeroes stringify non-empty, so they count.
	p := ProfileView{YearsExperience: intPtr(0), MinimumSalary: int64Ptr(0), Age: intPtr(0)}
	report := Completion(p)

	if report.RequiredCompleted != 2 {
		t.Fatalf("required completed = %d, want 2 (years_experience, minimum_salary)", report.RequiredCompleted)
	}
	if report.OptionalCompleted != 1 {
		t.Fatalf("optional completed = %d, want 1 (age)", report.OptionalCompleted)
	}
	for _, name := range report.MissingFields {
		if name == "years_experience" || name == "minimum_salary" || name == "age" {
			t.Fatalf("%s should not be reported missing", name)
		}
	}
}

func TestCompletionMonotonic(t *testing.T) {
	// Filling in a missing required field never lowers the percentage.
	p := ProfileView{}
	prev := Completion(p).Percentage

	fill := []func(*ProfileView){
		func(v *ProfileView) { v.FullName = "A" },
		func(v *ProfileView) { v.Email = "a@example.com" },
		func(v *ProfileView) { v.Phone = "+1" },
		func(v *ProfileView) { v.LinkedInURL = "https://linkedin.com/in/a" },
		func(v *ProfileView) { v.CurrentJobTitle = "X" },
		func(v *ProfileView) { v.TargetJobTitle = "Y" },
		func(v *ProfileView) { v.YearsExperience = intPtr(3) },
		func(v *ProfileView) { v.Country = "US" },
		func(v *ProfileView) { v.Location = "NYC" },
		func(v *ProfileView) { v.RoleTargets = "Z" },
		func(v *ProfileView) { v.LocationPreferences = "Remote" },
		func(v *ProfileView) { v.MinimumSalary = int64Ptr(100000) },
		func(v *ProfileView) { v.ResumeURL = "https://cdn.example.com/r.pdf" },
	}
	for i, step := range fill {
		step(&p)
		got := Completion(p).Percentage
		if got < prev {
			t.Fatalf("step %d: percentage dropped from %d to %d", i, prev, got)
		}
		prev = got
	}
	if prev != 80 {
		t.Fatalf("all required filled: percentage = %d, want 80", prev)
	}
}
