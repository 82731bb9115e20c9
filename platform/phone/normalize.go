// Package phone normalizes consultation phone numbers for storage.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultRegion is assumed when the input carries no country prefix.
const defaultRegion = "US"

// NormalizeE164 returns the E.164 form of input. Inputs that cannot be
// parsed, or parse to an invalid number, come back trimmed but otherwise
// untouched so the original value is preserved for manual follow-up.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	parsed, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
