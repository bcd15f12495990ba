package ports

import (
	"context"
	"io"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// DocumentIntake is the inbound contract for accepting a document and
// queueing its validation job.
type DocumentIntake interface {
	Accept(ctx context.Context, filename string, body io.Reader, options domain.JobOptions) (*domain.Job, error)
}

// JobProcessor is the inbound contract for running the validation
// pipeline of an accepted job.
type JobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}

// JobReader is the inbound read model for job status snapshots.
type JobReader interface {
	GetByID(ctx context.Context, jobID string) (*domain.Job, error)
}
