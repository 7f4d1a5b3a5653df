// Package jobqueue implements the durable job queue backing the
// classification → dispatch pipeline. Jobs are JSON blobs on a Redis list:
// producers LPUSH to the head, consumers RPOP from the tail, so ordering
// between the two ends is FIFO. Failed jobs are re-enqueued with
// exponential backoff until their retry budget is exhausted, then moved to
// a dead-letter list for manual inspection.
package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
)

// Outcome describes what one ProcessNext call did.
type Outcome string

const (
	// OutcomeEmpty means the queue had no jobs.
	OutcomeEmpty Outcome = "empty"
	// OutcomeDeferred means the popped job was not yet due and was pushed
	// back onto the head of the queue.
	OutcomeDeferred Outcome = "deferred"
	// OutcomeSuccess means the job executed successfully (terminal).
	OutcomeSuccess Outcome = "success"
	// OutcomeRetried means the job failed and was re-enqueued with backoff.
	OutcomeRetried Outcome = "retried"
	// OutcomeDeadLettered means the job failed with no retries remaining
	// and was moved to the dead-letter list (terminal).
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// Result is the outcome of one ProcessNext call. Job is nil for
// OutcomeEmpty; ExecErr carries the execution error for retried and
// dead-lettered jobs.
type Result struct {
	Outcome Outcome
	Job     *QueueJob
	ExecErr error
}

// Executor runs one job. Implementations must treat the context deadline
// as the job's execution budget.
type Executor interface {
	Execute(ctx context.Context, job *QueueJob) error
}

// EnqueueOptions tune a single enqueue. A nil options pointer uses the
// queue defaults.
type EnqueueOptions struct {
	// DelaySeconds delays the job's earliest execution. The delay is
	// stamped onto the job as a not-before time; scheduling stays with
	// the consumer.
	DelaySeconds int
	// MaxRetries overrides the queue's default retry budget when >= 0.
	MaxRetries int
}

// Queue is a Redis-list backed FIFO-ish job queue. It keeps no in-process
// state, so any number of producers and consumers may share one queue name;
// delivery is at-least-once.
type Queue struct {
	store             ListStore
	name              string
	defaultMaxRetries int
	logger            *slog.Logger
	now               func() time.Time
}

// NewQueue creates a queue over the given list store.
func NewQueue(store ListStore, name string, defaultMaxRetries int, logger *slog.Logger) *Queue {
	return &Queue{
		store:             store,
		name:              name,
		defaultMaxRetries: defaultMaxRetries,
		logger:            logger.With("component", "jobqueue", "queue", name),
		now:               time.Now,
	}
}

func (q *Queue) deadLetterKey() string {
	return q.name + ":dlq"
}

// Enqueue serializes the payload into a new job and pushes it onto the
// head of the queue. Returns the generated job id.
func (q *Queue) Enqueue(ctx context.Context, destination string, payload any, opts *EnqueueOptions) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	now := q.now().UTC()
	job := QueueJob{
		ID:           uuid.NewString(),
		Destination:  destination,
		Payload:      data,
		Retries:      0,
		MaxRetries:   q.defaultMaxRetries,
		CreatedAt:    now,
		ProcessAfter: now,
	}
	if opts != nil {
		if opts.MaxRetries >= 0 {
			job.MaxRetries = opts.MaxRetries
		}
		if opts.DelaySeconds > 0 {
			job.ProcessAfter = now.Add(time.Duration(opts.DelaySeconds) * time.Second)
		}
	}

	if err := q.pushJob(ctx, q.name, &job); err != nil {
		return "", err
	}

	q.logger.InfoContext(ctx, "Job enqueued",
		"job_id", job.ID,
		"destination", destination,
		"max_retries", job.MaxRetries,
		"process_after", job.ProcessAfter.Format(time.RFC3339),
	)
	return job.ID, nil
}

// ProcessNext pops one job from the tail of the queue and runs it through
// the executor. Jobs whose not-before time is in the future are pushed back
// onto the head and reported as deferred; this trades strict FIFO order for
// simplicity, so a delayed job can make ready jobs behind it wait until the
// next poll cycle. Failed jobs are re-enqueued with a 2^retries seconds
// backoff until MaxRetries is reached, then moved verbatim to the
// dead-letter list.
func (q *Queue) ProcessNext(ctx context.Context, exec Executor) (Result, error) {
	raw, found, err := q.store.RPop(ctx, q.name)
	if err != nil {
		return Result{}, fmt.Errorf("failed to pop job: %w", err)
	}
	if !found {
		return Result{Outcome: OutcomeEmpty}, nil
	}

	var job QueueJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// An unparseable entry can never execute; park it for inspection.
		q.logger.ErrorContext(ctx, "Failed to decode queued job, moving to dead-letter list", "error", err)
		if dlqErr := q.store.LPush(ctx, q.deadLetterKey(), raw); dlqErr != nil {
			return Result{}, fmt.Errorf("failed to dead-letter undecodable job: %w", dlqErr)
		}
		return Result{Outcome: OutcomeDeadLettered, ExecErr: err}, nil
	}

	now := q.now().UTC()
	if !job.Due(now) {
		if err := q.pushJob(ctx, q.name, &job); err != nil {
			return Result{}, err
		}
		q.logger.DebugContext(ctx, "Job not due yet, pushed back",
			"job_id", job.ID, "process_after", job.ProcessAfter.Format(time.RFC3339))
		return Result{Outcome: OutcomeDeferred, Job: &job}, nil
	}

	q.logger.InfoContext(ctx, "Processing job",
		"job_id", job.ID,
		"destination", job.Destination,
		"attempt", job.Retries+1,
		"max_retries", job.MaxRetries,
	)

	execErr := exec.Execute(ctx, &job)
	if execErr == nil {
		return Result{Outcome: OutcomeSuccess, Job: &job}, nil
	}

	if job.Retries < job.MaxRetries {
		job.Retries++
		job.ProcessAfter = now.Add(backoff(job.Retries))
		if err := q.pushJob(ctx, q.name, &job); err != nil {
			return Result{}, err
		}
		q.logger.WarnContext(ctx, "Job failed, requeued for retry",
			"job_id", job.ID,
			"error", execErr,
			"attempt", job.Retries,
			"next_attempt_at", job.ProcessAfter.Format(time.RFC3339),
		)
		return Result{Outcome: OutcomeRetried, Job: &job, ExecErr: execErr}, nil
	}

	if err := q.pushJob(ctx, q.deadLetterKey(), &job); err != nil {
		return Result{}, err
	}
	q.logger.ErrorContext(ctx, "Job failed after max retries, moved to dead-letter list",
		"job_id", job.ID,
		"destination", job.Destination,
		"error", execErr,
		"retries", job.Retries,
	)
	return Result{Outcome: OutcomeDeadLettered, Job: &job, ExecErr: execErr}, nil
}

// Len returns the number of live jobs on the queue.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.store.LLen(ctx, q.name)
}

// DeadLetterLen returns the number of dead-lettered jobs.
func (q *Queue) DeadLetterLen(ctx context.Context) (int64, error) {
	return q.store.LLen(ctx, q.deadLetterKey())
}

// Clear removes all live jobs. Administrative; the dead-letter list is
// deliberately left untouched.
func (q *Queue) Clear(ctx context.Context) error {
	return q.store.Del(ctx, q.name)
}

func (q *Queue) pushJob(ctx context.Context, key string, job *QueueJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.store.LPush(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// backoff returns the delay before the given retry attempt: 2^n seconds.
func backoff(retries int) time.Duration {
	return time.Duration(math.Pow(2, float64(retries))) * time.Second
}
