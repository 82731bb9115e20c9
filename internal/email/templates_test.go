package email

import (
	"strings"
	"testing"
)

func TestRenderAllTemplates(t *testing.T) {
	fields := map[string]string{
		"lead_name":        "Jane Doe",
		"lead_email":       "jane@example.com",
		"lead_phone":       "+31612345678",
		"current_role":     "Analyst",
		"role_interest":    "Product Manager",
		"time_slots":       "Mon 10:00, Tue 14:00",
		"registration_url": "https://portal.example.com/register?token=abc",
		"token_expires_at": "Friday, 5 September 2026",
		"meeting_time":     "Tuesday 14:00",
		"meeting_type":     "video",
		"meeting_link":     "https://meet.example.com/xyz",
		"note":             "Afternoons work best for us",
		"amount":           "$1,500.00",
		"client_name":      "Jane Doe",
		"client_email":     "jane@example.com",
	}

	for tmpl := range templateDefs {
		subject, html, err := Render(tmpl, fields)
		if err != nil {
			t.Fatalf("render %s: %v", tmpl, err)
		}
		if subject == "" {
			t.Fatalf("render %s: empty subject", tmpl)
		}
		if !strings.Contains(html, "<html>") {
			t.Fatalf("render %s: body missing base layout", tmpl)
		}
	}
}

func TestRenderSubjectsIncludeContext(t *testing.T) {
	subject, _, err := Render(TemplateConsultationReceived, map[string]string{"lead_name": "Jane Doe"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(subject, "Jane Doe") {
		t.Fatalf("subject %q does not name the lead", subject)
	}
}

func TestRenderDefaultsMissingFields(t *testing.T) {
	_, html, err := Render(TemplateNewTimesRequested, map[string]string{
		"lead_name": "Jane Doe",
		"note":      "",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, missingFieldPlaceholder) {
		t.Fatalf("empty context field was not replaced with placeholder")
	}
}

func TestRenderCTAButton(t *testing.T) {
	url := "https://portal.example.com/register?token=abc"
	_, html, err := Render(TemplateLeadSelected, map[string]string{
		"lead_name":        "Jane Doe",
		"registration_url": url,
		"token_expires_at": "Friday, 5 September 2026",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, url) {
		t.Fatalf("registration link missing from body")
	}
	if !strings.Contains(html, "Create your account") {
		t.Fatalf("call to action label missing from body")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render(Template("nope"), nil); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
