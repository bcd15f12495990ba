package usecase

import "github.com/m-deepasri/noc-validator/internal/core/domain"

// MergeFields folds one chunk's extraction output into the accumulated
// field set. A field already present is replaced only by a strictly
// higher confidence; an exact tie keeps the entry from the earlier chunk
// index. A field is never dropped once inserted, so the outcome is
// independent of merge order except on exact confidence ties.
func MergeFields(existing map[string]domain.ExtractedField, incoming []domain.ExtractedField) map[string]domain.ExtractedField {
	if existing == nil {
		existing = make(map[string]domain.ExtractedField, len(incoming))
	}
	for _, field := range incoming {
		current, ok := existing[field.Name]
		if !ok {
			existing[field.Name] = field
			continue
		}
		if field.Confidence > current.Confidence {
			existing[field.Name] = field
			continue
		}
		if field.Confidence == current.Confidence && field.Source < current.Source {
			existing[field.Name] = field
		}
	}
	return existing
}
