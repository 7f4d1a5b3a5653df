package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizchat/wagateway/internal/ingest_service/app"
	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) HandleMessage(ctx context.Context, msg domain.InboundMessage, ownerToken string) (app.PipelineResult, error) {
	args := m.Called(ctx, msg, ownerToken)
	return args.Get(0).(app.PipelineResult), args.Error(1)
}

func newTestHandler(pipeline *MockPipeline) *WebhookHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWebhookHandler(pipeline, logger, validator.New())
}

func postWebhook(t *testing.T, handler *WebhookHandler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.HandleWebhook(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func messagesPayload() map[string]any {
	return map[string]any{
		"EventType": "messages",
		"owner":     "5511000000000",
		"token":     "instance-token",
		"message": map[string]any{
			"id":               "wamid.1",
			"sender":           "5511999999999@s.whatsapp.net",
			"messageType":      "conversation",
			"text":             "hello",
			"senderName":       "John",
			"messageTimestamp": 1717243200000,
		},
		"chat": map[string]any{
			"id":   "chat-1",
			"name": "John",
		},
	}
}

func TestHandleWebhook_InvalidJSON(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	rr := postWebhook(t, handler, []byte("{not json"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	pipeline.AssertNotCalled(t, "HandleMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_MissingRequiredFields(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	payload, _ := json.Marshal(map[string]any{"EventType": "messages"})
	rr := postWebhook(t, handler, payload)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	pipeline.AssertNotCalled(t, "HandleMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_MessagesEventWithoutMessage(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	payload := messagesPayload()
	delete(payload, "message")
	data, _ := json.Marshal(payload)

	rr := postWebhook(t, handler, data)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	pipeline.AssertNotCalled(t, "HandleMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_MessagesEventProcessed(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	pipeline.On("HandleMessage", mock.Anything, mock.MatchedBy(func(msg domain.InboundMessage) bool {
		return msg.ProviderMessageID == "wamid.1" &&
			msg.Sender == "5511999999999@s.whatsapp.net" &&
			msg.Text == "hello" &&
			msg.Timestamp.Equal(time.UnixMilli(1717243200000).UTC())
	}), "instance-token").Return(app.PipelineResult{
		Processed:   true,
		ContentType: domain.ContentTextOnly,
		Destination: domain.DestinationText,
		JobID:       "job-1",
	}, nil).Once()

	data, _ := json.Marshal(messagesPayload())
	rr := postWebhook(t, handler, data)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["processed"])
	assert.NotEmpty(t, body["timestamp"])
	pipeline.AssertExpectations(t)
}

func TestHandleWebhook_MessageIDFallback(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	payload := messagesPayload()
	msg := payload["message"].(map[string]any)
	delete(msg, "id")
	msg["messageid"] = "alt-id"

	pipeline.On("HandleMessage", mock.Anything, mock.MatchedBy(func(m domain.InboundMessage) bool {
		return m.ProviderMessageID == "alt-id"
	}), "instance-token").Return(app.PipelineResult{Processed: true}, nil).Once()

	data, _ := json.Marshal(payload)
	rr := postWebhook(t, handler, data)

	assert.Equal(t, http.StatusOK, rr.Code)
	pipeline.AssertExpectations(t)
}

func TestHandleWebhook_PipelineErrorReturns500(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	pipeline.On("HandleMessage", mock.Anything, mock.Anything, mock.Anything).
		Return(app.PipelineResult{}, assert.AnError).Once()

	data, _ := json.Marshal(messagesPayload())
	rr := postWebhook(t, handler, data)

	// The provider may redeliver; the event was not durably recorded.
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
}

func TestHandleWebhook_IgnoredMessageStillReturns200(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	pipeline.On("HandleMessage", mock.Anything, mock.Anything, mock.Anything).
		Return(app.PipelineResult{Processed: false, Reason: "ignored message type: sticker"}, nil).Once()

	data, _ := json.Marshal(messagesPayload())
	rr := postWebhook(t, handler, data)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["processed"])
}

func TestHandleWebhook_OtherEventTypesAcknowledged(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	for _, eventType := range []string{"messages_update", "connection", "presence", "contacts", "groups", "something_new"} {
		payload, _ := json.Marshal(map[string]any{
			"EventType": eventType,
			"owner":     "5511000000000",
			"token":     "instance-token",
		})
		rr := postWebhook(t, handler, payload)
		assert.Equal(t, http.StatusOK, rr.Code, "event type %s", eventType)
	}
	pipeline.AssertNotCalled(t, "HandleMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_ChatNameFallsBackToWaName(t *testing.T) {
	pipeline := new(MockPipeline)
	handler := newTestHandler(pipeline)

	payload := messagesPayload()
	payload["chat"] = map[string]any{"id": "chat-1", "wa_name": "Group Chat"}

	pipeline.On("HandleMessage", mock.Anything, mock.MatchedBy(func(m domain.InboundMessage) bool {
		return m.ChatName == "Group Chat"
	}), "instance-token").Return(app.PipelineResult{Processed: true}, nil).Once()

	data, _ := json.Marshal(payload)
	rr := postWebhook(t, handler, data)

	assert.Equal(t, http.StatusOK, rr.Code)
	pipeline.AssertExpectations(t)
}

func TestHandleHealth(t *testing.T) {
	handler := newTestHandler(new(MockPipeline))

	req := httptest.NewRequest(http.MethodGet, "/webhooks/provider", nil)
	rr := httptest.NewRecorder()
	handler.HandleHealth(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "ok", body["status"])
}
