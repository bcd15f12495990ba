package ports

import (
	"context"
	"io"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
)

// JobStore owns all mutable job state for the process lifetime. Update
// runs mutate while holding the job's own lock; readers get deep
// snapshots and never observe a half-written job.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, id string, mutate func(*domain.Job) error) error
}

// ObjectStorage parks uploaded document bytes between intake and
// processing.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue dispatches accepted jobs to pipeline workers.
type MessageQueue interface {
	PublishJobAccepted(ctx context.Context, jobID string) error
	SubscribeJobAccepted(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentChunker splits a PDF into page-bounded sub-documents.
type DocumentChunker interface {
	Split(pdf []byte, maxPagesPerChunk int) ([]domain.ChunkDescriptor, error)
}

// TokenSource provides a valid bearer token for the extraction service.
// Invalidate drops the cached token after a downstream auth failure.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// ClientRegistry resolves the stable extraction-client identity on the
// remote service.
type ClientRegistry interface {
	ClientID(ctx context.Context, token string) (string, error)
}

// SchemaRef identifies the extraction schema for a submission; ID wins
// over Name when both are set.
type SchemaRef struct {
	ID   string
	Name string
}

// SchemaRegistry ensures the extraction schema exists remotely. A failure
// is non-fatal: submission falls back to the schema name.
type SchemaRegistry interface {
	SchemaID(ctx context.Context, token, clientID string) (string, error)
}

// ExtractionService is the remote submit/poll/fetch surface for one
// chunk-sized document.
type ExtractionService interface {
	Submit(ctx context.Context, token, clientID string, schema SchemaRef, filename string, payload []byte) (remoteJobID string, err error)
	Status(ctx context.Context, token, remoteJobID string) (string, error)
	Result(ctx context.Context, token, remoteJobID string) ([]domain.ExtractedField, error)
}

// RuleValidator evaluates one configured rule against one extracted
// field value.
type RuleValidator interface {
	Validate(fieldName string, field domain.ExtractedField, spec domain.RuleSpec) []domain.RuleFinding
}
