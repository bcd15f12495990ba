package domain

import "time"

// RuleSpec configures one business rule for a field. Parameters beyond the
// built-in ones travel in Params so unknown rule types can still be
// registered externally.
type RuleSpec struct {
	Type          string
	MaxAgeMonths  int
	AllowedValues []string
	CaseSensitive bool
	FuzzyMatch    bool
	ErrorMessage  string
	Params        map[string]any
}

// Profile is the validated scoring and rule configuration a job is
// processed under. Weights are already normalized: their sum is 1 unless
// the table is empty.
type Profile struct {
	Fields          []string
	FieldWeights    map[string]float64
	MandatoryFields []string

	ApprovalThreshold float64
	ReviewThreshold   float64

	MaxPagesPerChunk int
	MaxPollAttempts  int
	PollInterval     time.Duration

	Rules map[string]RuleSpec

	ClientName string
	SchemaName string
}

// MandatoryConfidenceFloor is the fixed per-field threshold used by
// approximation mode.
const MandatoryConfidenceFloor = 0.70
