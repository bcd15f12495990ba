package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// daysPerMonth matches the averaging the age limits were calibrated with.
const daysPerMonth = 30.44

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02.01.2006",
}

// DateAge enforces that a date field is no older than MaxAgeMonths.
// A negative MaxAgeMonths flips the check: the date may lie at most
// |MaxAgeMonths| months in the future, which is the shape expiry checks
// take.
type DateAge struct {
	// Now is overridable for tests; zero value uses time.Now.
	Now func() time.Time
}

func (r DateAge) Validate(fieldName string, field domain.ExtractedField, spec domain.RuleSpec) []domain.RuleFinding {
	parsed, err := parseDate(field.Value)
	if err != nil {
		return []domain.RuleFinding{{
			FieldName: fieldName,
			Severity:  domain.SeverityWarning,
			Message:   fmt.Sprintf("could not parse date %q", field.Value),
			RuleType:  spec.Type,
		}}
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	maxAge := spec.MaxAgeMonths
	if maxAge == 0 {
		maxAge = 6
	}
	ageMonths := now.Sub(parsed).Hours() / 24 / daysPerMonth

	exceeded := ageMonths > float64(maxAge)
	if maxAge < 0 {
		exceeded = ageMonths < float64(maxAge)
	}
	if !exceeded {
		return nil
	}

	message := fmt.Sprintf("date is %.1f months old, limit is %d months", ageMonths, maxAge)
	if maxAge < 0 {
		message = fmt.Sprintf("date lies %.1f months ahead, limit is %d months", -ageMonths, -maxAge)
	}
	if spec.ErrorMessage != "" {
		message = message + ": " + spec.ErrorMessage
	}
	return []domain.RuleFinding{{
		FieldName: fieldName,
		Severity:  domain.SeverityViolation,
		Message:   message,
		RuleType:  spec.Type,
	}}
}

func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("no known date layout matches %q", value)
}
