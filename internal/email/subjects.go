package email

const (
	subjectConsultationReceivedFmt = "New consultation request from %s"
	subjectUnderReview             = "Your application is being reviewed"
	subjectLeadSelected            = "You've been selected — schedule your consultation"
	subjectConsultationRejected    = "Update on your application"
	subjectTimeConfirmed           = "Your consultation is confirmed"
	subjectNewTimesRequested       = "We need a few new times for your consultation"
	subjectNewTimesResubmittedFmt  = "New consultation times proposed by %s"
	subjectPaymentReceived         = "Payment received — welcome aboard"
	subjectRegistrationComplete    = "Your account is ready"
	subjectOnboardingSubmittedFmt  = "Discovery answers submitted by %s"
	subjectProfileUnlocked         = "Your profile is unlocked"
)
