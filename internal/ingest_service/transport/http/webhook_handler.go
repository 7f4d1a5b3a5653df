package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	chi_middleware "github.com/go-chi/chi/v5/middleware" // For GetReqID
	"github.com/go-playground/validator/v10"

	"github.com/bizchat/wagateway/internal/ingest_service/app"
	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

// MessagePipeline is the producer pipeline surface the handler depends on.
// Satisfied by *app.Pipeline.
type MessagePipeline interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage, ownerToken string) (app.PipelineResult, error)
}

// WebhookHandler accepts provider webhook callbacks and feeds message
// events into the producer pipeline.
type WebhookHandler struct {
	pipeline MessagePipeline
	logger   *slog.Logger
	validate *validator.Validate
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(pipeline MessagePipeline, logger *slog.Logger, validate *validator.Validate) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		logger:   logger.With("handler", "webhook"),
		validate: validate,
	}
}

// HandleWebhook processes one provider callback. Only "messages" events
// enter the pipeline; other event types are acknowledged and logged. The
// response is 400 for malformed payloads, 500 when the message could not
// be durably recorded (the provider may redeliver), 200 otherwise —
// failures past the enqueue point never change the response.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := chi_middleware.GetReqID(ctx)
	logger := h.logger.With("request_id", requestID)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logger.WarnContext(ctx, "Invalid webhook JSON", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON payload"})
		return
	}

	if err := h.validate.StructCtx(ctx, payload); err != nil {
		logger.WarnContext(ctx, "Webhook payload failed validation", "error", err, "event_type", payload.EventType)
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid webhook payload structure"})
		return
	}

	logger.InfoContext(ctx, "Webhook received", "event_type", payload.EventType, "owner", payload.Owner)

	switch payload.EventType {
	case "messages":
		if payload.Message == nil || payload.Chat == nil {
			logger.WarnContext(ctx, "Messages event missing message or chat")
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "messages event requires message and chat"})
			return
		}
		h.handleMessageEvent(w, r, logger, payload)
	case "messages_update", "connection", "presence", "contacts", "groups":
		// Acknowledged but outside this core's scope.
		logger.InfoContext(ctx, "Event type acknowledged without processing", "event_type", payload.EventType)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "event acknowledged"})
	default:
		logger.InfoContext(ctx, "Unhandled webhook event type", "event_type", payload.EventType)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "event acknowledged"})
	}
}

func (h *WebhookHandler) handleMessageEvent(w http.ResponseWriter, r *http.Request, logger *slog.Logger, payload WebhookPayload) {
	ctx := r.Context()
	msg := toInboundMessage(payload.Message, payload.Chat)

	result, err := h.pipeline.HandleMessage(ctx, msg, payload.Token)
	if err != nil {
		// Not durably recorded; the provider may retry the delivery.
		logger.ErrorContext(ctx, "Pipeline failed for message event",
			"error", err, "provider_message_id", msg.ProviderMessageID)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "message processing failed"})
		return
	}

	logger.InfoContext(ctx, "Message event handled",
		"provider_message_id", msg.ProviderMessageID,
		"content_type", result.ContentType,
		"destination", result.Destination,
		"processed", result.Processed,
		"duplicate", result.Duplicate,
		"reason", result.Reason,
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"processed": result.Processed,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleHealth is a liveness probe for the webhook endpoint.
func (h *WebhookHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "webhook",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func toInboundMessage(m *MessageDTO, chat *ChatDTO) domain.InboundMessage {
	providerID := m.MessageID
	if providerID == "" {
		providerID = m.ID
	}
	var ts time.Time
	if m.MessageTimestamp > 0 {
		ts = time.UnixMilli(m.MessageTimestamp).UTC()
	}
	chatName := chat.Name
	if chatName == "" {
		chatName = chat.WaName
	}
	return domain.InboundMessage{
		ProviderMessageID: providerID,
		Sender:            m.Sender,
		ChatID:            m.ChatID,
		ChatName:          chatName,
		SenderName:        m.SenderName,
		Type:              m.Type,
		MessageType:       m.MessageType,
		MediaType:         m.MediaType,
		Text:              m.Text,
		Content:           m.Content,
		FromMe:            m.FromMe,
		IsGroup:           m.IsGroup,
		Timestamp:         ts,
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
