package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

func fixedNow() time.Time {
	return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
}

func fieldSet(name, value string) map[string]domain.ExtractedField {
	return map[string]domain.ExtractedField{
		name: {Name: name, Value: value, Confidence: 0.9},
	}
}

func engineAt(now func() time.Time) *Engine {
	engine := NewEngine()
	engine.Register("date_age", DateAge{Now: now})
	return engine
}

func TestDateAgeViolationJustPastWindow(t *testing.T) {
	// Exactly max_age_months plus one day older than now.
	maxAge := 6
	boundary := fixedNow().AddDate(0, 0, -(int(float64(maxAge)*30.44) + 1))

	engine := engineAt(fixedNow)
	violations, warnings := engine.Validate(
		fieldSet("issueDate", boundary.Format("2006-01-02")),
		map[string]domain.RuleSpec{"issueDate": {Type: "date_age", MaxAgeMonths: maxAge}},
	)
	if len(violations) != 1 {
		t.Fatalf("expected one violation, got %d (warnings: %+v)", len(violations), warnings)
	}
	if violations[0].RuleType != "date_age" || violations[0].FieldName != "issueDate" {
		t.Fatalf("unexpected finding: %+v", violations[0])
	}
}

func TestDateAgeWithinWindowPasses(t *testing.T) {
	recent := fixedNow().AddDate(0, -2, 0)

	engine := engineAt(fixedNow)
	violations, warnings := engine.Validate(
		fieldSet("issueDate", recent.Format("2006-01-02")),
		map[string]domain.RuleSpec{"issueDate": {Type: "date_age", MaxAgeMonths: 6}},
	)
	if len(violations) != 0 || len(warnings) != 0 {
		t.Fatalf("expected clean result, got violations=%+v warnings=%+v", violations, warnings)
	}
}

func TestDateAgeNegativeLimitBoundsFutureDates(t *testing.T) {
	engine := engineAt(fixedNow)
	spec := map[string]domain.RuleSpec{"expiryDate": {Type: "date_age", MaxAgeMonths: -12}}

	farFuture := fixedNow().AddDate(0, 14, 0)
	violations, _ := engine.Validate(fieldSet("expiryDate", farFuture.Format("2006-01-02")), spec)
	if len(violations) != 1 {
		t.Fatalf("expected far-future date to violate, got %+v", violations)
	}

	nearFuture := fixedNow().AddDate(0, 6, 0)
	violations, warnings := engine.Validate(fieldSet("expiryDate", nearFuture.Format("2006-01-02")), spec)
	if len(violations) != 0 || len(warnings) != 0 {
		t.Fatalf("expected near-future date to pass, got violations=%+v warnings=%+v", violations, warnings)
	}
}

func TestDateAgeUnparsableValueIsWarning(t *testing.T) {
	engine := engineAt(fixedNow)
	violations, warnings := engine.Validate(
		fieldSet("issueDate", "not a date"),
		map[string]domain.RuleSpec{"issueDate": {Type: "date_age", MaxAgeMonths: 6}},
	)
	if len(violations) != 0 {
		t.Fatalf("parse failure must not be a violation: %+v", violations)
	}
	if len(warnings) != 1 || warnings[0].Severity != domain.SeverityWarning {
		t.Fatalf("expected one parse warning, got %+v", warnings)
	}
}

func TestDateAgeAcceptsMultipleLayouts(t *testing.T) {
	engine := engineAt(fixedNow)
	spec := map[string]domain.RuleSpec{"issueDate": {Type: "date_age", MaxAgeMonths: 120}}

	for _, value := range []string{"2026-06-15", "15/06/2026", "15 June 2026", "June 15, 2026"} {
		violations, warnings := engine.Validate(fieldSet("issueDate", value), spec)
		if len(violations) != 0 || len(warnings) != 0 {
			t.Fatalf("layout %q: expected clean parse, got violations=%+v warnings=%+v", value, violations, warnings)
		}
	}
}

func TestWhitelistCaseInsensitiveByDefault(t *testing.T) {
	engine := NewEngine()
	spec := map[string]domain.RuleSpec{
		"issuingAuthority": {Type: "whitelist", AllowedValues: []string{"Dubai Municipality"}},
	}

	violations, _ := engine.Validate(fieldSet("issuingAuthority", "DUBAI MUNICIPALITY"), spec)
	if len(violations) != 0 {
		t.Fatalf("expected case-insensitive match, got %+v", violations)
	}

	violations, _ = engine.Validate(fieldSet("issuingAuthority", "Sharjah Municipality"), spec)
	if len(violations) != 1 {
		t.Fatalf("expected mismatch to violate, got %+v", violations)
	}
}

func TestWhitelistCaseSensitiveMode(t *testing.T) {
	engine := NewEngine()
	spec := map[string]domain.RuleSpec{
		"issuingAuthority": {Type: "whitelist", AllowedValues: []string{"Dubai Municipality"}, CaseSensitive: true},
	}
	violations, _ := engine.Validate(fieldSet("issuingAuthority", "dubai municipality"), spec)
	if len(violations) != 1 {
		t.Fatalf("expected case-sensitive mismatch, got %+v", violations)
	}
}

func TestWhitelistFuzzyContainment(t *testing.T) {
	engine := NewEngine()
	spec := map[string]domain.RuleSpec{
		"issuingAuthority": {Type: "whitelist", AllowedValues: []string{"Dubai Municipality"}, FuzzyMatch: true},
	}
	violations, _ := engine.Validate(fieldSet("issuingAuthority", "dubai municipality dept"), spec)
	if len(violations) != 0 {
		t.Fatalf("expected fuzzy containment match, got %+v", violations)
	}
}

func TestWhitelistFuzzyWordOverlap(t *testing.T) {
	engine := NewEngine()
	spec := map[string]domain.RuleSpec{
		"issuingAuthority": {Type: "whitelist", AllowedValues: []string{"Dubai Electricity and Water Authority"}, FuzzyMatch: true},
	}
	violations, _ := engine.Validate(fieldSet("issuingAuthority", "Electricity Water Authority of Dubai"), spec)
	if len(violations) != 0 {
		t.Fatalf("expected word-overlap match, got %+v", violations)
	}
}

func TestUnknownRuleTypeIsWarningNotFailure(t *testing.T) {
	engine := NewEngine()
	violations, warnings := engine.Validate(
		fieldSet("applicationNumber", "NOC-123"),
		map[string]domain.RuleSpec{"applicationNumber": {Type: "regex"}},
	)
	if len(violations) != 0 {
		t.Fatalf("unknown rule type must not violate: %+v", violations)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0].Message, "not supported") {
		t.Fatalf("expected unsupported-type warning, got %+v", warnings)
	}
}

func TestMissingFieldIsWarning(t *testing.T) {
	engine := NewEngine()
	violations, warnings := engine.Validate(
		map[string]domain.ExtractedField{},
		map[string]domain.RuleSpec{"issueDate": {Type: "date_age", MaxAgeMonths: 6}},
	)
	if len(violations) != 0 || len(warnings) != 1 {
		t.Fatalf("expected single warning for missing field, got violations=%+v warnings=%+v", violations, warnings)
	}
}

func TestRegisterExtendsEngine(t *testing.T) {
	engine := NewEngine()
	engine.Register("always_fail", failValidator{})
	violations, _ := engine.Validate(
		fieldSet("remarks", "anything"),
		map[string]domain.RuleSpec{"remarks": {Type: "always_fail"}},
	)
	if len(violations) != 1 {
		t.Fatalf("expected registered validator to run, got %+v", violations)
	}
}

type failValidator struct{}

func (failValidator) Validate(fieldName string, _ domain.ExtractedField, spec domain.RuleSpec) []domain.RuleFinding {
	return []domain.RuleFinding{{FieldName: fieldName, Severity: domain.SeverityViolation, Message: "nope", RuleType: spec.Type}}
}
