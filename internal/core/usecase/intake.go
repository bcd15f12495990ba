package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
	"github.com/m-deepasri/noc-validator/internal/core/ports"
)

const maxDocumentBytes = 50 << 20

// AcceptDocumentUseCase takes an uploaded PDF, parks its bytes in object
// storage, records a queued job, and dispatches the job id to the
// processing queue. The upload is durable before the dispatch happens.
type AcceptDocumentUseCase struct {
	store   ports.JobStore
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewAcceptDocumentUseCase(store ports.JobStore, storage ports.ObjectStorage, queue ports.MessageQueue) *AcceptDocumentUseCase {
	return &AcceptDocumentUseCase{store: store, storage: storage, queue: queue}
}

func (uc *AcceptDocumentUseCase) Accept(ctx context.Context, filename string, body io.Reader, options domain.JobOptions) (*domain.Job, error) {
	filename = sanitizeFilename(filename)
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "accept document", fmt.Errorf("empty filename"))
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "accept document", fmt.Errorf("unsupported file type %q, expected .pdf", filepath.Ext(filename)))
	}

	payload, err := io.ReadAll(io.LimitReader(body, maxDocumentBytes+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "accept document", fmt.Errorf("read upload: %w", err))
	}
	if len(payload) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "accept document", fmt.Errorf("empty upload"))
	}
	if len(payload) > maxDocumentBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "accept document", fmt.Errorf("upload exceeds %d byte limit", maxDocumentBytes))
	}
	if !bytes.HasPrefix(payload, []byte("%PDF")) {
		return nil, domain.WrapError(domain.ErrMalformedDocument, "accept document", fmt.Errorf("%s does not start with a PDF header", filename))
	}

	job := domain.NewJob(uuid.NewString(), filename, options)
	job.StorageKey = fmt.Sprintf("uploads/%s.pdf", job.ID)
	job.AppendLog(fmt.Sprintf("accepted %s (%d bytes)", filename, len(payload)))

	if err := uc.storage.Save(ctx, job.StorageKey, bytes.NewReader(payload)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := uc.store.Create(ctx, job); err != nil {
		_ = uc.storage.Remove(ctx, job.StorageKey)
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := uc.queue.PublishJobAccepted(ctx, job.ID); err != nil {
		_ = uc.storage.Remove(ctx, job.StorageKey)
		return nil, domain.WrapError(domain.ErrTemporary, "accept document", fmt.Errorf("dispatch job: %w", err))
	}
	return job.Clone(), nil
}

// sanitizeFilename strips any path components and characters that are
// unsafe in storage keys or multipart submissions.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// JobStatusUseCase serves read-only job snapshots for the status API.
type JobStatusUseCase struct {
	store ports.JobStore
}

func NewJobStatusUseCase(store ports.JobStore) *JobStatusUseCase {
	return &JobStatusUseCase{store: store}
}

func (uc *JobStatusUseCase) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	return uc.store.Get(ctx, jobID)
}
