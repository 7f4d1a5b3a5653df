package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bizchat/wagateway/internal/platform/jobqueue"
	"github.com/bizchat/wagateway/internal/platform/messagebroker"
)

// SubjectJobDeadLettered is the NATS subject for exhausted jobs.
const SubjectJobDeadLettered = "wagateway.job.deadlettered"

// WorkerConfig holds the polling loop configuration.
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"WORKER_POLL_INTERVAL"`
}

// JobQueue is the consumer surface of the durable queue. Satisfied by
// *jobqueue.Queue.
type JobQueue interface {
	ProcessNext(ctx context.Context, exec jobqueue.Executor) (jobqueue.Result, error)
	Len(ctx context.Context) (int64, error)
	DeadLetterLen(ctx context.Context) (int64, error)
}

// JobDeadLetteredEvent is published on NATS when a job exhausts its retry
// budget.
type JobDeadLetteredEvent struct {
	JobID       string    `json:"job_id"`
	Destination string    `json:"destination"`
	Retries     int       `json:"retries"`
	Error       string    `json:"error,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Worker is the consumer loop: it polls the durable queue on a fixed
// interval and drains it through the dispatcher. Multiple workers may poll
// the same queue; the queue itself provides the at-least-once semantics.
type Worker struct {
	queue      JobQueue
	dispatcher jobqueue.Executor
	events     messagebroker.Publisher
	logger     *slog.Logger
	config     WorkerConfig
}

// NewWorker creates a Worker. events may be nil.
func NewWorker(
	queue JobQueue,
	dispatcher jobqueue.Executor,
	events messagebroker.Publisher,
	logger *slog.Logger,
	cfg WorkerConfig,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		events:     events,
		logger:     logger.With("component", "dispatch_worker"),
		config:     cfg,
	}
}

// Run blocks until the context is cancelled, polling the queue every
// PollInterval and draining it on each tick.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Dispatch worker started", "poll_interval", w.config.PollInterval.String())

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Dispatch worker shutting down")
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
			w.observeDepths(ctx)
		}
	}
}

// drain processes jobs until the queue is empty or the head job is not yet
// due. Stopping on a deferred job matters: it was pushed back onto the
// head, so popping again in the same cycle would spin on it.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		result, err := w.queue.ProcessNext(ctx, w.timedExecutor())
		if err != nil {
			w.logger.ErrorContext(ctx, "Queue processing error", "error", err)
			return
		}

		switch result.Outcome {
		case jobqueue.OutcomeEmpty, jobqueue.OutcomeDeferred:
			return
		case jobqueue.OutcomeDeadLettered:
			w.recordOutcome(result)
			w.publishDeadLettered(ctx, result)
		default:
			w.recordOutcome(result)
		}
	}
}

func (w *Worker) recordOutcome(result jobqueue.Result) {
	destination := "unknown"
	if result.Job != nil {
		destination = result.Job.Destination
	}
	jobsProcessedCounter.WithLabelValues(destination, string(result.Outcome)).Inc()
}

// timedExecutor wraps the dispatcher so each attempt's duration is
// observed per destination.
func (w *Worker) timedExecutor() jobqueue.Executor {
	return executorFunc(func(ctx context.Context, job *jobqueue.QueueJob) error {
		timer := prometheus.NewTimer(jobDurationHist.WithLabelValues(job.Destination))
		defer timer.ObserveDuration()
		return w.dispatcher.Execute(ctx, job)
	})
}

func (w *Worker) observeDepths(ctx context.Context) {
	if depth, err := w.queue.Len(ctx); err == nil {
		queueDepthGauge.Set(float64(depth))
	}
	if depth, err := w.queue.DeadLetterLen(ctx); err == nil {
		deadLetterDepthGauge.Set(float64(depth))
	}
}

func (w *Worker) publishDeadLettered(ctx context.Context, result jobqueue.Result) {
	if w.events == nil || result.Job == nil {
		return
	}
	event := JobDeadLetteredEvent{
		JobID:       result.Job.ID,
		Destination: result.Job.Destination,
		Retries:     result.Job.Retries,
		OccurredAt:  time.Now().UTC(),
	}
	if result.ExecErr != nil {
		event.Error = result.ExecErr.Error()
	}
	data, err := json.Marshal(event)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to marshal dead-letter event", "error", err)
		return
	}
	if err := w.events.Publish(ctx, SubjectJobDeadLettered, data); err != nil {
		w.logger.WarnContext(ctx, "Failed to publish dead-letter event", "error", err, "job_id", event.JobID)
	}
}

type executorFunc func(ctx context.Context, job *jobqueue.QueueJob) error

func (f executorFunc) Execute(ctx context.Context, job *jobqueue.QueueJob) error {
	return f(ctx, job)
}
