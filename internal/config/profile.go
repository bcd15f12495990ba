package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// profileFile is the on-disk YAML shape of a validation profile.
type profileFile struct {
	Fields            []string            `yaml:"fields"`
	FieldWeights      map[string]float64  `yaml:"field_weights"`
	MandatoryFields   []string            `yaml:"mandatory_fields"`
	ApprovalThreshold *float64            `yaml:"approval_threshold"`
	ReviewThreshold   *float64            `yaml:"review_threshold"`
	MaxPagesPerChunk  int                 `yaml:"max_pages_per_chunk"`
	MaxPollAttempts   int                 `yaml:"max_poll_attempts"`
	PollInterval      int                 `yaml:"poll_interval"`
	ClientName        string              `yaml:"client_name"`
	SchemaName        string              `yaml:"schema_name"`
	ValidationRules   map[string]ruleFile `yaml:"validation_rules"`
}

type ruleFile struct {
	Type          string         `yaml:"type"`
	MaxAgeMonths  int            `yaml:"max_age_months"`
	AllowedValues []string       `yaml:"allowed_values"`
	CaseSensitive bool           `yaml:"case_sensitive"`
	FuzzyMatch    bool           `yaml:"fuzzy_match"`
	ErrorMessage  string         `yaml:"error_message"`
	Params        map[string]any `yaml:"params"`
}

// LoadProfile reads and validates a profile. Field weights need not sum
// to 1 in the file; they are normalized by their sum here, so the scorer
// always works with an already-normalized table.
func LoadProfile(path string) (domain.Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var file profileFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	return buildProfile(file)
}

func buildProfile(file profileFile) (domain.Profile, error) {
	profile := domain.Profile{
		Fields:            file.Fields,
		MandatoryFields:   file.MandatoryFields,
		ApprovalThreshold: 0.85,
		ReviewThreshold:   0.60,
		MaxPagesPerChunk:  10,
		MaxPollAttempts:   60,
		PollInterval:      2 * time.Second,
		ClientName:        file.ClientName,
		SchemaName:        file.SchemaName,
	}
	if file.ApprovalThreshold != nil {
		profile.ApprovalThreshold = *file.ApprovalThreshold
	}
	if file.ReviewThreshold != nil {
		profile.ReviewThreshold = *file.ReviewThreshold
	}
	if file.MaxPagesPerChunk > 0 {
		profile.MaxPagesPerChunk = file.MaxPagesPerChunk
	}
	if file.MaxPollAttempts > 0 {
		profile.MaxPollAttempts = file.MaxPollAttempts
	}
	if file.PollInterval > 0 {
		profile.PollInterval = time.Duration(file.PollInterval) * time.Second
	}
	if profile.ClientName == "" {
		profile.ClientName = "uae_noc_client"
	}
	if profile.SchemaName == "" {
		profile.SchemaName = "uae_noc_schema_custom_runtime_v2"
	}

	if profile.ApprovalThreshold < 0 || profile.ApprovalThreshold > 1 {
		return domain.Profile{}, fmt.Errorf("approval_threshold %v outside [0,1]", profile.ApprovalThreshold)
	}
	if profile.ReviewThreshold < 0 || profile.ReviewThreshold > 1 {
		return domain.Profile{}, fmt.Errorf("review_threshold %v outside [0,1]", profile.ReviewThreshold)
	}
	if profile.ReviewThreshold > profile.ApprovalThreshold {
		return domain.Profile{}, fmt.Errorf("review_threshold %v exceeds approval_threshold %v", profile.ReviewThreshold, profile.ApprovalThreshold)
	}

	weights, err := normalizeWeights(file.FieldWeights)
	if err != nil {
		return domain.Profile{}, err
	}
	profile.FieldWeights = weights

	if len(profile.Fields) == 0 {
		profile.Fields = deriveFieldList(weights, profile.MandatoryFields)
	}

	profile.Rules = make(map[string]domain.RuleSpec, len(file.ValidationRules))
	for field, rule := range file.ValidationRules {
		if rule.Type == "" {
			return domain.Profile{}, fmt.Errorf("validation rule for %q has no type", field)
		}
		profile.Rules[field] = domain.RuleSpec{
			Type:          rule.Type,
			MaxAgeMonths:  rule.MaxAgeMonths,
			AllowedValues: rule.AllowedValues,
			CaseSensitive: rule.CaseSensitive,
			FuzzyMatch:    rule.FuzzyMatch,
			ErrorMessage:  rule.ErrorMessage,
			Params:        rule.Params,
		}
	}
	return profile, nil
}

func normalizeWeights(weights map[string]float64) (map[string]float64, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("field_weights is empty")
	}
	sum := 0.0
	for field, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("field weight for %q is invalid: %v", field, w)
		}
		sum += w
	}
	if sum <= 0 {
		return nil, fmt.Errorf("field weights sum to %v, need a positive sum", sum)
	}
	out := make(map[string]float64, len(weights))
	for field, w := range weights {
		out[field] = w / sum
	}
	return out, nil
}

func deriveFieldList(weights map[string]float64, mandatory []string) []string {
	seen := map[string]bool{}
	var fields []string
	for name := range weights {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	for _, name := range mandatory {
		if !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	return fields
}
