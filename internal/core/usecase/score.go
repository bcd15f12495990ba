package usecase

import (
	"math"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// Score computes the weighted confidence and its per-field breakdown.
// It is a pure function of the fields snapshot and the profile: identical
// inputs always produce identical results, and the value is recomputed
// from scratch on every call, never adjusted incrementally.
//
// Profile weights arrive normalized (see config.LoadProfile), so the
// weighted sum is already in [0,1]. Approximation mode overrides the
// weighted value with a binary gate on mandatory fields: all present with
// confidence >= 0.70 collapses to 1.0, any missing collapses to 0.0, and
// present-but-low keeps the weighted value.
func Score(fields map[string]domain.ExtractedField, profile domain.Profile, approximation bool) (float64, []domain.FieldContribution) {
	total := 0.0
	breakdown := make([]domain.FieldContribution, 0, len(profile.Fields))

	for _, name := range profile.Fields {
		field := fields[name]
		weight, weighted := profile.FieldWeights[name]
		contribution := field.Confidence * weight
		if weighted {
			total += contribution
		}
		breakdown = append(breakdown, domain.FieldContribution{
			Field:        name,
			Value:        field.Value,
			Confidence:   field.Confidence,
			Weight:       weight,
			Contribution: contribution,
			Weighted:     weighted,
		})
	}

	if approximation {
		present := true
		aboveFloor := true
		for _, name := range profile.MandatoryFields {
			field, ok := fields[name]
			if !ok || field.Value == "" {
				present = false
				break
			}
			if field.Confidence < domain.MandatoryConfidenceFloor {
				aboveFloor = false
			}
		}
		switch {
		case !present:
			total = 0.0
		case aboveFloor:
			total = 1.0
		}
	}

	total = math.Round(total*1000) / 1000
	if total > 1.0 {
		total = 1.0
	}
	return total, breakdown
}

// Disposition maps a confidence value to the business outcome by the
// profile thresholds.
func DispositionFor(confidence float64, profile domain.Profile) domain.Disposition {
	switch {
	case confidence >= profile.ApprovalThreshold:
		return domain.DispositionApproved
	case confidence >= profile.ReviewThreshold:
		return domain.DispositionReview
	default:
		return domain.DispositionRejected
	}
}

// ApplyViolationPolicy downgrades the disposition when business rules
// failed: Approved drops to Needs Review, lower dispositions stay as they
// are. Violations never force Rejected on their own.
func ApplyViolationPolicy(disposition domain.Disposition, violations []domain.RuleFinding) domain.Disposition {
	if len(violations) > 0 && disposition == domain.DispositionApproved {
		return domain.DispositionReview
	}
	return disposition
}
