package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
	"github.com/bizchat/wagateway/internal/platform/jobqueue"
)

// Dispatcher executes queue jobs by POSTing their payload to the worker
// pipeline endpoint for the job's destination. It holds no retry state;
// any failure is returned to the queue's retry logic.
type Dispatcher struct {
	baseURL        string
	destinations   map[domain.Destination]domain.DestinationConfig
	defaultTimeout time.Duration
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewDispatcher creates a Dispatcher. destinations is the same table the
// routing layer uses, so destination-specific timeouts carry through to
// execution; jobs for unlisted destinations fail. defaultTimeout bounds
// destinations configured without one.
func NewDispatcher(
	baseURL string,
	destinations map[domain.Destination]domain.DestinationConfig,
	defaultTimeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		baseURL:        strings.TrimRight(baseURL, "/"),
		destinations:   destinations,
		defaultTimeout: defaultTimeout,
		// Per-call deadlines come from the destination config via context.
		httpClient: &http.Client{},
		logger:     logger.With("component", "dispatcher"),
	}
}

// Execute performs the single outbound call for one job. Non-2xx statuses,
// transport errors and timeouts are all reported uniformly as an error.
func (d *Dispatcher) Execute(ctx context.Context, job *jobqueue.QueueJob) error {
	cfg, ok := d.destinations[domain.Destination(job.Destination)]
	if !ok {
		return fmt.Errorf("unknown destination %q", job.Destination)
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("destination %q has no endpoint", job.Destination)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := d.baseURL + cfg.Endpoint
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(job.Payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("worker call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("worker returned %d: %s", resp.StatusCode, string(body))
	}

	d.logger.InfoContext(ctx, "Job executed",
		"job_id", job.ID,
		"destination", job.Destination,
		"url", url,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}
