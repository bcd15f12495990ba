package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m-deepasri/noc-validator/internal/config"
	"github.com/m-deepasri/noc-validator/internal/core/domain"
	"github.com/m-deepasri/noc-validator/internal/core/ports"
	"github.com/m-deepasri/noc-validator/internal/core/rules"
	"github.com/m-deepasri/noc-validator/internal/core/usecase"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/dox"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/jobstore"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/pdfsplit"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/queue/nats"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/resilience"
	"github.com/m-deepasri/noc-validator/internal/infrastructure/storage/localfs"
	"github.com/m-deepasri/noc-validator/internal/observability/logging"
	"github.com/m-deepasri/noc-validator/internal/observability/metrics"
)

const serviceName = "noc-validator"

type App struct {
	Config  config.Config
	Profile domain.Profile

	Store     *jobstore.MemoryStore
	Queue     *nats.Queue
	IntakeUC  ports.DocumentIntake
	StatusUC  ports.JobReader
	ProcessUC ports.JobProcessor

	HTTPMetrics     *metrics.HTTPServerMetrics
	PipelineMetrics *metrics.PipelineMetrics
	DOXMetrics      *metrics.ExtractionClientMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, fmt.Errorf("load validation profile: %w", err)
	}

	store := jobstore.NewMemoryStore()
	store.StartJanitor(ctx, cfg.JobRetention)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Executor: resilience.NewExecutor(resilience.DispatchPolicy()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	doxMetrics := metrics.NewExtractionClientMetrics(serviceName)
	doxClient := dox.New(cfg.DOXBaseURL).WithMetrics(doxMetrics)
	tokens := dox.NewTokenManager(cfg.UAATokenURL, cfg.UAAClientID, cfg.UAAClientSecret)
	clients := dox.NewClientRegistry(doxClient, profile.ClientName)
	schemas := dox.NewSchemaRegistry(doxClient, profile.SchemaName, cfg.SchemaPath)
	service := dox.NewExtractionService(doxClient)

	splitter := pdfsplit.New()
	engine := rules.NewEngine()

	pipelineMetrics := metrics.NewPipelineMetrics(serviceName)
	validateUC := usecase.NewValidateDocumentUseCase(
		store, storage, splitter, tokens, clients, schemas, service, engine, profile,
	)

	return &App{
		Config:  cfg,
		Profile: profile,

		Store:    store,
		Queue:    queue,
		IntakeUC: usecase.NewAcceptDocumentUseCase(store, storage, queue),
		StatusUC: usecase.NewJobStatusUseCase(store),
		ProcessUC: &instrumentedProcessor{
			inner:   validateUC,
			store:   store,
			metrics: pipelineMetrics,
			logger:  slog.Default(),
		},

		HTTPMetrics:     metrics.NewHTTPServerMetrics(serviceName),
		PipelineMetrics: pipelineMetrics,
		DOXMetrics:      doxMetrics,

		closeFn: func() {
			queue.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// instrumentedProcessor records pipeline metrics and the terminal log
// line around each job run.
type instrumentedProcessor struct {
	inner   ports.JobProcessor
	store   ports.JobStore
	metrics *metrics.PipelineMetrics
	logger  *slog.Logger
}

func (p *instrumentedProcessor) ProcessByID(ctx context.Context, jobID string) error {
	start := time.Now()
	p.metrics.StartJob()
	err := p.inner.ProcessByID(ctx, jobID)
	took := time.Since(start)
	p.metrics.FinishJob(serviceName, took, err)

	status, disposition := "", ""
	if job, getErr := p.store.Get(ctx, jobID); getErr == nil {
		status = string(job.Status)
		disposition = string(job.Disposition)
		p.metrics.RecordChunks(serviceName, len(job.Chunks))
		for _, chunk := range job.Chunks {
			p.metrics.RecordPollAttempts(serviceName, chunk.AttemptCount)
		}
		if job.Status == domain.StatusCompleted {
			p.metrics.RecordConfidence(serviceName, job.Confidence)
			p.metrics.RecordDisposition(serviceName, disposition)
		}
	}
	logging.JobOutcome(p.logger, jobID, status, disposition, took, err)
	return err
}
