package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/m-deepasri/noc-validator/internal/core/domain"
	"github.com/m-deepasri/noc-validator/internal/core/ports"
	"github.com/m-deepasri/noc-validator/internal/core/rules"
)

// ValidateDocumentUseCase drives one job through the full pipeline:
// chunk, authenticate, submit/poll per chunk, merge, score, validate,
// complete. All job mutations go through the JobStore so status readers
// always see a consistent snapshot; within a job, chunks are processed
// strictly sequentially in index order.
type ValidateDocumentUseCase struct {
	store   ports.JobStore
	storage ports.ObjectStorage
	chunker ports.DocumentChunker
	tokens  ports.TokenSource
	clients ports.ClientRegistry
	schemas ports.SchemaRegistry
	service ports.ExtractionService
	engine  *rules.Engine
	profile domain.Profile

	// sleep is overridable so poll-budget tests run without wall time.
	sleep func(context.Context, time.Duration) error
}

func NewValidateDocumentUseCase(
	store ports.JobStore,
	storage ports.ObjectStorage,
	chunker ports.DocumentChunker,
	tokens ports.TokenSource,
	clients ports.ClientRegistry,
	schemas ports.SchemaRegistry,
	service ports.ExtractionService,
	engine *rules.Engine,
	profile domain.Profile,
) *ValidateDocumentUseCase {
	return &ValidateDocumentUseCase{
		store:   store,
		storage: storage,
		chunker: chunker,
		tokens:  tokens,
		clients: clients,
		schemas: schemas,
		service: service,
		engine:  engine,
		profile: profile,
		sleep:   sleepCtx,
	}
}

func (uc *ValidateDocumentUseCase) ProcessByID(ctx context.Context, jobID string) error {
	if err := uc.runPipeline(ctx, jobID); err != nil {
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed: %v", err, failErr)
		}
		return err
	}
	return nil
}

func (uc *ValidateDocumentUseCase) runPipeline(ctx context.Context, jobID string) error {
	chunks, err := uc.chunkDocument(ctx, jobID)
	if err != nil {
		return err
	}

	token, clientID, schema, err := uc.provision(ctx, jobID)
	if err != nil {
		return err
	}

	perChunk := make([][]domain.ExtractedField, len(chunks))
	for i := range chunks {
		extracted, err := uc.runChunk(ctx, jobID, &chunks[i], token, clientID, schema)
		if err != nil {
			return err
		}
		perChunk[i] = extracted
	}

	fields, err := uc.mergeChunks(ctx, jobID, perChunk)
	if err != nil {
		return err
	}

	confidence, breakdown, err := uc.scoreFields(ctx, jobID, fields)
	if err != nil {
		return err
	}

	return uc.validateAndComplete(ctx, jobID, fields, confidence, breakdown)
}

func (uc *ValidateDocumentUseCase) chunkDocument(ctx context.Context, jobID string) ([]domain.ChunkDescriptor, error) {
	var storageKey, filename string
	err := uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		storageKey = job.StorageKey
		filename = job.Filename
		return job.Transition(domain.StatusChunking, "splitting document into page-bounded chunks")
	})
	if err != nil {
		return nil, err
	}

	reader, err := uc.storage.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored document %s: %w", filename, err)
	}
	defer reader.Close()

	pdfBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read stored document %s: %w", filename, err)
	}

	chunks, err := uc.chunker.Split(pdfBytes, uc.profile.MaxPagesPerChunk)
	if err != nil {
		return nil, err
	}

	pageCount := 0
	if len(chunks) > 0 {
		pageCount = chunks[len(chunks)-1].PageRange.To
	}
	err = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		job.PageCount = pageCount
		job.Chunks = describeChunks(chunks)
		job.AppendLog(fmt.Sprintf("document has %d pages, %d chunk(s)", pageCount, len(chunks)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

func (uc *ValidateDocumentUseCase) provision(ctx context.Context, jobID string) (token, clientID string, schema ports.SchemaRef, err error) {
	err = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		return job.Transition(domain.StatusAuthenticating, "acquiring service token and client identity")
	})
	if err != nil {
		return "", "", ports.SchemaRef{}, err
	}

	token, err = uc.tokens.Token(ctx)
	if err != nil {
		return "", "", ports.SchemaRef{}, err
	}

	clientID, err = uc.clients.ClientID(ctx, token)
	if err != nil {
		return "", "", ports.SchemaRef{}, err
	}

	schema = ports.SchemaRef{Name: uc.profile.SchemaName}
	if uc.schemas != nil {
		schemaID, schemaErr := uc.schemas.SchemaID(ctx, token, clientID)
		if schemaErr == nil {
			schema.ID = schemaID
		} else {
			// Submission falls back to the schema name.
			_ = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
				job.AppendLog(fmt.Sprintf("schema lookup failed, using schema name: %v", schemaErr))
				return nil
			})
		}
	}
	return token, clientID, schema, nil
}

func (uc *ValidateDocumentUseCase) runChunk(ctx context.Context, jobID string, chunk *domain.ChunkDescriptor, token, clientID string, schema ports.SchemaRef) ([]domain.ExtractedField, error) {
	err := uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		return job.Transition(domain.StatusSubmitting, fmt.Sprintf("submitting chunk %d (pages %s)", chunk.Index+1, chunk.PageRange))
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := uc.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	remoteJobID, err := uc.service.Submit(ctx, token, clientID, schema, chunkFilename(snapshot.Filename, chunk.Index), chunk.Payload)
	if err != nil {
		if domain.IsKind(err, domain.ErrAuth) {
			uc.tokens.Invalidate()
		}
		return nil, err
	}
	chunk.RemoteJobID = remoteJobID

	err = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		job.Chunks[chunk.Index].RemoteJobID = remoteJobID
		return job.Transition(domain.StatusPolling, fmt.Sprintf("remote job %s accepted, polling", remoteJobID))
	})
	if err != nil {
		return nil, err
	}

	if err := uc.pollChunk(ctx, jobID, chunk, token); err != nil {
		return nil, err
	}

	extracted, err := uc.service.Result(ctx, token, chunk.RemoteJobID)
	if err != nil {
		return nil, err
	}
	for i := range extracted {
		extracted[i].Source = chunk.Index
	}

	_ = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		job.AppendLog(fmt.Sprintf("chunk %d extracted %d field(s)", chunk.Index+1, len(extracted)))
		return nil
	})
	return extracted, nil
}

// pollChunk waits on the remote job at the profile's fixed interval for
// at most MaxPollAttempts attempts. The budget is exact: attempt counts
// off by one are an observable defect for quota-constrained tenants.
func (uc *ValidateDocumentUseCase) pollChunk(ctx context.Context, jobID string, chunk *domain.ChunkDescriptor, token string) error {
	for attempt := 1; attempt <= uc.profile.MaxPollAttempts; attempt++ {
		if err := uc.sleep(ctx, uc.profile.PollInterval); err != nil {
			return err
		}

		status, err := uc.service.Status(ctx, token, chunk.RemoteJobID)
		if err != nil {
			if domain.IsKind(err, domain.ErrAuth) {
				uc.tokens.Invalidate()
				return err
			}
			// A transient poll error consumes the attempt but does not
			// fail the chunk.
			status = chunk.RemoteStatus
		}

		chunk.AttemptCount = attempt
		chunk.RemoteStatus = status
		updateErr := uc.store.Update(ctx, jobID, func(job *domain.Job) error {
			job.Chunks[chunk.Index].AttemptCount = attempt
			job.Chunks[chunk.Index].RemoteStatus = status
			return nil
		})
		if updateErr != nil {
			return updateErr
		}

		switch strings.ToUpper(status) {
		case "DONE":
			return nil
		case "FAILED", "ERROR":
			return domain.WrapError(domain.ErrExtraction, "remote job",
				fmt.Errorf("remote job %s reported status %s", chunk.RemoteJobID, status))
		}
	}
	return domain.WrapError(domain.ErrPollingTimeout, "remote job",
		fmt.Errorf("remote job %s not terminal after %d attempts", chunk.RemoteJobID, uc.profile.MaxPollAttempts))
}

func (uc *ValidateDocumentUseCase) mergeChunks(ctx context.Context, jobID string, perChunk [][]domain.ExtractedField) (map[string]domain.ExtractedField, error) {
	err := uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		return job.Transition(domain.StatusMerging, "merging chunk results")
	})
	if err != nil {
		return nil, err
	}

	fields := map[string]domain.ExtractedField{}
	for _, extracted := range perChunk {
		fields = MergeFields(fields, extracted)
	}

	err = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		job.Fields = fields
		job.AppendLog(fmt.Sprintf("merged %d distinct field(s)", len(fields)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (uc *ValidateDocumentUseCase) scoreFields(ctx context.Context, jobID string, fields map[string]domain.ExtractedField) (float64, []domain.FieldContribution, error) {
	var approximation bool
	err := uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		approximation = job.Options.Approximation
		return job.Transition(domain.StatusScoring, "computing weighted confidence")
	})
	if err != nil {
		return 0, nil, err
	}

	confidence, breakdown := Score(fields, uc.profile, approximation)

	err = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		job.Confidence = confidence
		job.Breakdown = breakdown
		job.AppendLog(fmt.Sprintf("confidence %.1f%%", confidence*100))
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return confidence, breakdown, nil
}

func (uc *ValidateDocumentUseCase) validateAndComplete(ctx context.Context, jobID string, fields map[string]domain.ExtractedField, confidence float64, breakdown []domain.FieldContribution) error {
	var runRules bool
	err := uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		runRules = job.Options.Validation
		return job.Transition(domain.StatusValidating, "evaluating business rules")
	})
	if err != nil {
		return err
	}

	var violations, warnings []domain.RuleFinding
	if runRules {
		violations, warnings = uc.engine.Validate(fields, uc.profile.Rules)
	}

	disposition := ApplyViolationPolicy(DispositionFor(confidence, uc.profile), violations)

	var storageKey string
	err = uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		storageKey = job.StorageKey
		if violations == nil {
			violations = []domain.RuleFinding{}
		}
		if warnings == nil {
			warnings = []domain.RuleFinding{}
		}
		job.Violations = violations
		job.Warnings = warnings
		job.Disposition = disposition
		return job.Transition(domain.StatusCompleted,
			fmt.Sprintf("final disposition %s (%.1f%% confidence, %d violation(s), %d warning(s))",
				disposition, confidence*100, len(violations), len(warnings)))
	})
	if err != nil {
		return err
	}

	// Source bytes are no longer needed once terminal.
	_ = uc.storage.Remove(ctx, storageKey)
	return nil
}

func (uc *ValidateDocumentUseCase) markFailed(ctx context.Context, jobID string, cause error) error {
	var storageKey string
	err := uc.store.Update(ctx, jobID, func(job *domain.Job) error {
		if job.Status.Terminal() {
			return nil
		}
		storageKey = job.StorageKey
		job.ErrorKind = domain.ErrorKind(cause)
		job.Error = cause.Error()
		return job.Transition(domain.StatusFailed, fmt.Sprintf("%s: %s", job.ErrorKind, cause.Error()))
	})
	if err != nil {
		return err
	}
	// Failed jobs release their parked bytes as well; the janitor only
	// evicts store entries.
	if storageKey != "" {
		_ = uc.storage.Remove(ctx, storageKey)
	}
	return nil
}

func describeChunks(chunks []domain.ChunkDescriptor) []domain.ChunkDescriptor {
	out := make([]domain.ChunkDescriptor, len(chunks))
	copy(out, chunks)
	for i := range out {
		out[i].Payload = nil
	}
	return out
}

func chunkFilename(filename string, index int) string {
	base := strings.TrimSuffix(filename, ".pdf")
	return fmt.Sprintf("%s_chunk_%d.pdf", base, index+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
