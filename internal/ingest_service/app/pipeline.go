package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
	"github.com/bizchat/wagateway/internal/platform/jobqueue"
	"github.com/bizchat/wagateway/internal/platform/messagebroker"
)

// SubjectMessagePersisted is the NATS subject for successful producer
// passes.
const SubjectMessagePersisted = "wagateway.message.persisted"

// Enqueuer is the producer side of the durable queue. Satisfied by
// *jobqueue.Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, destination string, payload any, opts *jobqueue.EnqueueOptions) (string, error)
}

// PipelineResult reports what happened to one inbound message.
type PipelineResult struct {
	Processed   bool
	Duplicate   bool
	Reason      string
	ContentType domain.ContentType
	Destination domain.Destination
	JobID       string
}

// MessagePersistedEvent is published on NATS after a message is durably
// recorded and its job enqueued.
type MessagePersistedEvent struct {
	MessageID      string             `json:"message_id"`
	ConversationID string             `json:"conversation_id"`
	CompanyID      string             `json:"company_id"`
	ContentType    domain.ContentType `json:"content_type"`
	Destination    domain.Destination `json:"destination"`
	JobID          string             `json:"job_id"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// Pipeline is the producer path: classify → route → resolve identity →
// persist → build payload → enqueue. It runs once per provider callback;
// consumers pick the job up from the durable queue on their own cadence.
type Pipeline struct {
	router    *Router
	resolver  *IdentityResolver
	persister *MessagePersister
	queue     Enqueuer
	events    messagebroker.Publisher
	logger    *slog.Logger
}

// NewPipeline wires the producer pipeline. events may be nil; operational
// event publishing is best-effort and never fails the pipeline.
func NewPipeline(
	router *Router,
	resolver *IdentityResolver,
	persister *MessagePersister,
	queue Enqueuer,
	events messagebroker.Publisher,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		router:    router,
		resolver:  resolver,
		persister: persister,
		queue:     queue,
		events:    events,
		logger:    logger.With("component", "pipeline"),
	}
}

// HandleMessage runs one inbound message through the producer path.
// The returned error means the event was not durably recorded and the
// caller may retry the whole delivery; everything after enqueue is
// operational and surfaces only through logs and metrics.
func (p *Pipeline) HandleMessage(ctx context.Context, msg domain.InboundMessage, ownerToken string) (PipelineResult, error) {
	cls := Classify(msg)
	messagesReceivedCounter.WithLabelValues(string(cls.ContentType)).Inc()

	decision := p.router.Route(msg, cls)
	result := PipelineResult{
		ContentType: cls.ContentType,
		Destination: decision.Destination,
	}

	p.logger.InfoContext(ctx, "Message classified",
		"provider_message_id", msg.ProviderMessageID,
		"content_type", cls.ContentType,
		"destination", decision.Destination,
		"priority", cls.Priority,
		"estimated_seconds", cls.EstimatedSeconds,
		"should_process", decision.ShouldProcess,
	)

	if !decision.ShouldProcess {
		result.Reason = decision.Reason
		messagesProcessedCounter.WithLabelValues(string(decision.Destination), "ignored").Inc()
		return result, nil
	}

	timer := prometheus.NewTimer(pipelineDurationHist.WithLabelValues(string(decision.Destination)))
	defer timer.ObserveDuration()

	identity, err := p.resolver.Resolve(ctx, msg, ownerToken)
	if err != nil {
		messagesProcessedCounter.WithLabelValues(string(decision.Destination), "error").Inc()
		return result, fmt.Errorf("identity resolution: %w", err)
	}

	stored, created, err := p.persister.Append(ctx, AppendParams{
		ConversationID:    identity.Conversation.ID,
		SenderID:          identity.User.ID,
		SenderType:        domain.SenderUser,
		Content:           cls.TextContent,
		ProviderType:      firstNonEmpty(msg.MessageType, msg.Type),
		ProviderMessageID: msg.ProviderMessageID,
		Metadata: map[string]any{
			"provider_type": firstNonEmpty(msg.MessageType, msg.Type),
			"media_type":    msg.MediaType,
			"chat_id":       msg.ChatID,
			"is_group":      msg.IsGroup,
			"timestamp":     msg.Timestamp,
		},
	})
	if err != nil {
		messagesProcessedCounter.WithLabelValues(string(decision.Destination), "error").Inc()
		return result, fmt.Errorf("persist message: %w", err)
	}
	if !created {
		result.Duplicate = true
		result.Reason = "duplicate provider message id"
		messagesProcessedCounter.WithLabelValues(string(decision.Destination), "duplicate").Inc()
		return result, nil
	}

	payload := BuildPayload(msg, cls, decision, *identity)
	jobID, err := p.queue.Enqueue(ctx, string(decision.Destination), payload, &jobqueue.EnqueueOptions{
		MaxRetries: decision.Config.MaxRetries,
	})
	if err != nil {
		messagesProcessedCounter.WithLabelValues(string(decision.Destination), "error").Inc()
		return result, fmt.Errorf("enqueue job: %w", err)
	}

	result.Processed = true
	result.JobID = jobID
	messagesProcessedCounter.WithLabelValues(string(decision.Destination), "enqueued").Inc()

	p.publishPersistedEvent(ctx, stored, identity, cls, decision, jobID)

	p.logger.InfoContext(ctx, "Message durably recorded and enqueued",
		"message_id", stored.ID,
		"conversation_id", identity.Conversation.ID,
		"destination", decision.Destination,
		"job_id", jobID,
	)
	return result, nil
}

func (p *Pipeline) publishPersistedEvent(
	ctx context.Context,
	stored *domain.Message,
	identity *ResolvedIdentity,
	cls domain.Classification,
	decision domain.RoutingDecision,
	jobID string,
) {
	if p.events == nil {
		return
	}
	event := MessagePersistedEvent{
		MessageID:      stored.ID.String(),
		ConversationID: identity.Conversation.ID.String(),
		CompanyID:      identity.Company.ID.String(),
		ContentType:    cls.ContentType,
		Destination:    decision.Destination,
		JobID:          jobID,
		OccurredAt:     time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to marshal persisted event", "error", err)
		return
	}
	if err := p.events.Publish(ctx, SubjectMessagePersisted, data); err != nil {
		p.logger.WarnContext(ctx, "Failed to publish persisted event", "error", err, "message_id", event.MessageID)
	}
}
