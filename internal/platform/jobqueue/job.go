package jobqueue

import (
	"encoding/json"
	"time"
)

// QueueJob is one durable unit of work on the queue. It is serialized as
// JSON onto a Redis list; consumers mutate Retries and ProcessAfter when
// re-enqueueing after a failure. A job moved to the dead-letter list is
// never mutated again.
type QueueJob struct {
	ID          string          `json:"id"`
	Destination string          `json:"destination"`
	Payload     json.RawMessage `json:"payload"`
	Retries     int             `json:"retries"`
	MaxRetries  int             `json:"max_retries"`
	CreatedAt   time.Time       `json:"created_at"`
	// ProcessAfter is the not-before time for delayed or backed-off jobs.
	// The consumer re-checks it on every pop.
	ProcessAfter time.Time `json:"process_after"`
}

// Due reports whether the job may be executed at the given time.
func (j *QueueJob) Due(now time.Time) bool {
	return !j.ProcessAfter.After(now)
}
