package rules

import (
	"fmt"
	"strings"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// Whitelist checks a field value against the configured allowed values.
// Matching is case-insensitive unless CaseSensitive is set. FuzzyMatch
// additionally accepts substring containment either way and a >= 2
// significant-word overlap, which tolerates the noisy variants extraction
// produces for authority names.
type Whitelist struct{}

func (Whitelist) Validate(fieldName string, field domain.ExtractedField, spec domain.RuleSpec) []domain.RuleFinding {
	if matchesWhitelist(field.Value, spec) {
		return nil
	}

	message := fmt.Sprintf("value %q is not in the approved list", field.Value)
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

func matchesWhitelist(value string, spec domain.RuleSpec) bool {
	if spec.CaseSensitive {
		for _, allowed := range spec.AllowedValues {
			if value == allowed {
				return true
			}
		}
		return false
	}

	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, allowed := range spec.AllowedValues {
		if normalized == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	if !spec.FuzzyMatch {
		return false
	}

	valueWords := significantWords(normalized)
	for _, allowed := range spec.AllowedValues {
		allowedNorm := strings.ToLower(strings.TrimSpace(allowed))
		if strings.Contains(normalized, allowedNorm) || strings.Contains(allowedNorm, normalized) {
			return true
		}
		common := 0
		for word := range significantWords(allowedNorm) {
			if valueWords[word] {
				common++
			}
		}
		if common >= 2 {
			return true
		}
	}
	return false
}

func significantWords(s string) map[string]bool {
	words := map[string]bool{}
	for _, word := range strings.Fields(s) {
		if len(word) > 3 {
			words[word] = true
		}
	}
	return words
}
