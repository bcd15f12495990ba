package rules

import (
	"fmt"
	"sort"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
	"github.com/m-deepasri/noc-validator/internal/core/ports"
)

// Engine dispatches configured business rules to registered validators.
// Adding a rule type is a Register call; an unknown type in the
// configuration is reported as a warning, never a hard failure, so a
// profile written for a newer engine still validates.
type Engine struct {
	validators map[string]ports.RuleValidator
}

func NewEngine() *Engine {
	engine := &Engine{validators: map[string]ports.RuleValidator{}}
	engine.Register("date_age", DateAge{})
	engine.Register("whitelist", Whitelist{})
	return engine
}

func (e *Engine) Register(ruleType string, validator ports.RuleValidator) {
	e.validators[ruleType] = validator
}

// Validate evaluates every configured rule against the merged field set.
// Rule evaluation problems (missing value, unparsable value, unknown rule
// type) are warnings; only a genuine business-rule failure is a violation.
func (e *Engine) Validate(fields map[string]domain.ExtractedField, specs map[string]domain.RuleSpec) (violations, warnings []domain.RuleFinding) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := specs[name]

		validator, ok := e.validators[spec.Type]
		if !ok {
			warnings = append(warnings, domain.RuleFinding{
				FieldName: name,
				Severity:  domain.SeverityWarning,
				Message:   fmt.Sprintf("rule type %q is not supported by this engine, skipped", spec.Type),
				RuleType:  spec.Type,
			})
			continue
		}

		field, extracted := fields[name]
		if !extracted || field.Value == "" {
			warnings = append(warnings, domain.RuleFinding{
				FieldName: name,
				Severity:  domain.SeverityWarning,
				Message:   "field not extracted, cannot validate",
				RuleType:  spec.Type,
			})
			continue
		}

		for _, finding := range validator.Validate(name, field, spec) {
			if finding.Severity == domain.SeverityViolation {
				violations = append(violations, finding)
			} else {
				warnings = append(warnings, finding)
			}
		}
	}
	return violations, warnings
}
