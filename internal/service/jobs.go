package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/archivemind/insight-api/internal/config"
	"github.com/archivemind/insight-api/internal/events"
	"github.com/archivemind/insight-api/internal/orchestrator"
	"github.com/archivemind/insight-api/internal/service/mappers"
	"github.com/archivemind/insight-api/internal/store"
	"github.com/archivemind/insight-api/internal/store/model"
	"github.com/archivemind/insight-api/pkg/metrics"
)

type JobService struct {
	store    store.Store
	registry *orchestrator.Registry
	producer *events.EventProducer
	cfg      *config.Config
}

func NewJobService(s store.Store, producer *events.EventProducer, cfg *config.Config) *JobService {
	return &JobService{
		store:    s,
		registry: orchestrator.NewRegistry(),
		producer: producer,
		cfg:      cfg,
	}
}

// RunJob launches a worker for the form and blocks until the job reaches a
// terminal state. Events are pushed to the writer as they arrive; the
// returned job carries the persisted terminal snapshot.
func (s *JobService) RunJob(ctx context.Context, form mappers.JobCreateForm, writer orchestrator.FrameWriter) (*model.Job, error) {
	if !mappers.IsValidJobKind(form.Kind) {
		return nil, NewErrInvalidJobKind(form.Kind)
	}

	id := uuid.New()
	job, err := s.store.Job().Create(ctx, form.ToJob(id))
	if err != nil {
		return nil, err
	}

	coordinator := orchestrator.NewCoordinator(orchestrator.Options{
		JobID:       id,
		Kind:        form.Kind,
		Binary:      s.cfg.Worker.Binary,
		Args:        form.WorkerArgs(),
		WorkingDir:  s.cfg.Worker.WorkingDir,
		ScratchDir:  s.cfg.Worker.ScratchDir,
		GracePeriod: s.cfg.Worker.TerminationGracePeriod,
		Writer:      writer,
	})

	s.registry.Add(id, coordinator)
	defer s.registry.Remove(id)

	metrics.UpdateJobsRunningMetric(form.Kind, 1)
	defer metrics.UpdateJobsRunningMetric(form.Kind, -1)

	s.publishLifecycleEvent(ctx, events.JobStartedMessageKind, *job, 0)

	// the run blocks for the whole lifetime of the worker; cancellation
	// arrives through the registry or through ctx
	outcome := coordinator.Run(ctx)

	finished := time.Now()
	job.State = outcome.State
	job.Phase = outcome.Phase
	job.Error = outcome.Error
	job.ErrorType = outcome.ErrorType
	job.FinishedAt = &finished
	if len(outcome.Stats) > 0 {
		job.Stats, _ = json.Marshal(outcome.Stats)
	}
	if len(outcome.Cost) > 0 {
		job.Cost, _ = json.Marshal(outcome.Cost)
	}
	if len(outcome.Result) > 0 {
		job.Result = outcome.Result
	}

	updated, err := s.store.Job().Update(ctx, *job)
	if err != nil {
		// the caller already saw the terminal event; log and return the
		// in-memory snapshot
		zap.S().Named("job_service").Errorw("failed to persist job outcome", "job_id", id, "error", err)
		updated = job
	}

	metrics.IncreaseJobsTotalMetric(form.Kind, outcome.State)
	metrics.ObserveJobDurationMetric(form.Kind, outcome.State, outcome.Duration)

	s.publishLifecycleEvent(ctx, lifecycleMessageKind(outcome.State), *updated, outcome.Duration)

	return updated, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

func (s *JobService) ListJobs(ctx context.Context, filter *JobFilter) (model.JobList, error) {
	storeFilter := store.NewJobQueryFilter()
	opts := store.NewJobQueryOptions().WithNewestFirst()

	if filter != nil {
		if filter.Kind != "" {
			storeFilter = storeFilter.ByKind(filter.Kind)
		}
		if filter.State != "" {
			storeFilter = storeFilter.ByState(filter.State)
		}
		if filter.Limit > 0 {
			opts = opts.WithLimit(filter.Limit)
		}
	}

	return s.store.Job().List(ctx, storeFilter, opts)
}

// CancelJob asks a running job to stop. A live job is signalled through the
// registry and its terminal state is persisted by the RunJob call that owns
// the worker. A row still marked running after a server restart has no
// coordinator to signal; it is reconciled to cancelled here, under a
// transaction so the state check and the update cannot interleave with a
// concurrent finalisation.
func (s *JobService) CancelJob(ctx context.Context, id uuid.UUID) error {
	if s.registry.Cancel(id) {
		return nil
	}

	ctx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return err
	}

	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, store.ErrRecordNotFound) {
			return NewErrJobNotFound(id)
		}
		return err
	}

	if job.State != model.JobStateRunning {
		_, _ = store.Rollback(ctx)
		return NewErrJobAlreadyFinished(id)
	}

	finished := time.Now()
	job.State = model.JobStateCancelled
	job.FinishedAt = &finished
	if _, err := s.store.Job().Update(ctx, *job); err != nil {
		_, _ = store.Rollback(ctx)
		return err
	}

	if _, err := store.Commit(ctx); err != nil {
		return err
	}

	zap.S().Named("job_service").Infow("reconciled orphaned running job", "job_id", id)
	return nil
}

func (s *JobService) publishLifecycleEvent(ctx context.Context, kind string, job model.Job, duration time.Duration) {
	if s.producer == nil {
		return
	}

	payload, err := json.Marshal(events.JobEvent{
		JobID:      job.ID,
		Kind:       job.Kind,
		State:      job.State,
		Phase:      job.Phase,
		Error:      job.Error,
		ErrorType:  job.ErrorType,
		DurationMs: duration.Milliseconds(),
	})
	if err != nil {
		return
	}

	if err := s.producer.Write(ctx, kind, bytes.NewReader(payload)); err != nil {
		zap.S().Named("job_service").Errorw("failed to publish lifecycle event", "job_id", job.ID, "error", err)
	}
}

func lifecycleMessageKind(state string) string {
	switch state {
	case model.JobStateCompleted:
		return events.JobCompletedMessageKind
	case model.JobStateCancelled:
		return events.JobCancelledMessageKind
	default:
		return events.JobFailedMessageKind
	}
}

type JobFilterFunc func(f *JobFilter)

type JobFilter struct {
	Kind  string
	State string
	Limit int
}

func NewJobFilter(filters ...JobFilterFunc) *JobFilter {
	f := &JobFilter{}
	for _, fn := range filters {
		fn(f)
	}
	return f
}

func WithKind(kind string) JobFilterFunc {
	return func(f *JobFilter) {
		f.Kind = kind
	}
}

func WithState(state string) JobFilterFunc {
	return func(f *JobFilter) {
		f.State = state
	}
}

func WithLimit(limit int) JobFilterFunc {
	return func(f *JobFilter) {
		f.Limit = limit
	}
}
