package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template identifies one transactional email. The constant values are wire
// names: they travel inside queued dispatch payloads, so renaming one breaks
// jobs already enqueued.
type Template string

const (
	TemplateConsultationReceived Template = "consultation_received"
	TemplateUnderReview          Template = "application_under_review"
	TemplateLeadSelected         Template = "lead_selected"
	TemplateConsultationRejected Template = "consultation_rejected"
	TemplateTimeConfirmed        Template = "consultation_confirmed"
	TemplateNewTimesRequested    Template = "new_times_requested"
	TemplateNewTimesResubmitted  Template = "new_times_resubmitted"
	TemplatePaymentReceived      Template = "payment_received_welcome"
	TemplateRegistrationComplete Template = "registration_complete"
	TemplateOnboardingSubmitted  Template = "onboarding_submitted"
	TemplateProfileUnlocked      Template = "profile_unlocked"
)

// missingFieldPlaceholder replaces empty context values so a half-filled
// record never renders an email with a visible hole in it.
const missingFieldPlaceholder = "—"

type templateDef struct {
	file     string
	title    string
	ctaLabel string
	// ctaKey names the context field holding the call-to-action URL. Empty
	// means the template has no button.
	ctaKey  string
	subject func(fields map[string]string) string
}

var templateDefs = map[Template]templateDef{
	TemplateConsultationReceived: {
		file:  "consultation_received.html",
		title: "New consultation request",
		subject: func(f map[string]string) string {
			return fmt.Sprintf(subjectConsultationReceivedFmt, f["lead_name"])
		},
	},
	TemplateUnderReview: {
		file:    "application_under_review.html",
		title:   "Your application is being reviewed",
		subject: func(map[string]string) string { return subjectUnderReview },
	},
	TemplateLeadSelected: {
		file:     "lead_selected.html",
		title:    "You have been selected",
		ctaLabel: "Create your account",
		ctaKey:   "registration_url",
		subject:  func(map[string]string) string { return subjectLeadSelected },
	},
	TemplateConsultationRejected: {
		file:    "consultation_rejected.html",
		title:   "Update on your application",
		subject: func(map[string]string) string { return subjectConsultationRejected },
	},
	TemplateTimeConfirmed: {
		file:     "consultation_confirmed.html",
		title:    "Your consultation is confirmed",
		ctaLabel: "Join the meeting",
		ctaKey:   "meeting_link",
		subject:  func(map[string]string) string { return subjectTimeConfirmed },
	},
	TemplateNewTimesRequested: {
		file:    "new_times_requested.html",
		title:   "We need new consultation times",
		subject: func(map[string]string) string { return subjectNewTimesRequested },
	},
	TemplateNewTimesResubmitted: {
		file:  "new_times_resubmitted.html",
		title: "New times proposed",
		subject: func(f map[string]string) string {
			return fmt.Sprintf(subjectNewTimesResubmittedFmt, f["lead_name"])
		},
	},
	TemplatePaymentReceived: {
		file:     "payment_received_welcome.html",
		title:    "Welcome aboard",
		ctaLabel: "Create your account",
		ctaKey:   "registration_url",
		subject:  func(map[string]string) string { return subjectPaymentReceived },
	},
	TemplateRegistrationComplete: {
		file:    "registration_complete.html",
		title:   "Your account is ready",
		subject: func(map[string]string) string { return subjectRegistrationComplete },
	},
	TemplateOnboardingSubmitted: {
		file:  "onboarding_submitted.html",
		title: "Discovery answers submitted",
		subject: func(f map[string]string) string {
			return fmt.Sprintf(subjectOnboardingSubmittedFmt, f["client_name"])
		},
	},
	TemplateProfileUnlocked: {
		file:    "profile_unlocked.html",
		title:   "Your profile is unlocked",
		subject: func(map[string]string) string { return subjectProfileUnlocked },
	},
}

type emailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
	Fields     map[string]string
}

// Render produces the subject line and HTML body for one template. Empty
// context values are replaced with a placeholder before rendering.
func Render(tmpl Template, fields map[string]string) (subject, htmlContent string, err error) {
	def, ok := templateDefs[tmpl]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", tmpl)
	}

	filled := make(map[string]string, len(fields))
	for k, v := range fields {
		if v == "" {
			v = missingFieldPlaceholder
		}
		filled[k] = v
	}

	data := emailData{
		Title:    def.title,
		Heading:  def.title,
		CTALabel: def.ctaLabel,
		Fields:   filled,
	}
	if def.ctaKey != "" {
		data.CTAURL = fields[def.ctaKey]
	}

	htmlContent, err = renderEmailTemplate(def.file, data)
	if err != nil {
		return "", "", err
	}
	return def.subject(filled), htmlContent, nil
}

// Known reports whether tmpl names a registered template.
func Known(tmpl Template) bool {
	_, ok := templateDefs[tmpl]
	return ok
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// currencySymbols maps ISO 4217 codes to their display symbol. Codes not
// listed here render as "CODE 12.34".
var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatAmount renders an amount in minor units (cents) for email bodies and
// dispatch context fields, using the configured currency code.
func FormatAmount(currency string, cents int64) string {
	if symbol, ok := currencySymbols[currency]; ok {
		return fmt.Sprintf("%s%.2f", symbol, float64(cents)/100)
	}
	return fmt.Sprintf("%s %.2f", currency, float64(cents)/100)
}
