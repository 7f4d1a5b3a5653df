package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultRouterConfig_CoversEveryContentType(t *testing.T) {
	assert.NoError(t, DefaultRouterConfig().Validate())
}

func TestRouter_DestinationMapping(t *testing.T) {
	router := NewRouter(DefaultRouterConfig(), testLogger())

	tests := []struct {
		contentType domain.ContentType
		destination domain.Destination
	}{
		{domain.ContentTextOnly, domain.DestinationText},
		{domain.ContentTextWithImage, domain.DestinationMedia},
		{domain.ContentImageOnly, domain.DestinationMedia},
		{domain.ContentTextWithVideo, domain.DestinationMedia},
		{domain.ContentVideoOnly, domain.DestinationMedia},
		{domain.ContentTextWithAudio, domain.DestinationAudio},
		{domain.ContentAudioOnly, domain.DestinationAudio},
		{domain.ContentTextWithDocument, domain.DestinationDocument},
		{domain.ContentDocumentOnly, domain.DestinationDocument},
		{domain.ContentButtonReply, domain.DestinationAutoReply},
		{domain.ContentListReply, domain.DestinationAutoReply},
		{domain.ContentSticker, domain.DestinationIgnore},
		{domain.ContentLocation, domain.DestinationIgnore},
		{domain.ContentContact, domain.DestinationIgnore},
		{domain.ContentPoll, domain.DestinationIgnore},
		{domain.ContentUnknown, domain.DestinationManualReview},
	}

	for _, tc := range tests {
		t.Run(string(tc.contentType), func(t *testing.T) {
			decision := router.Route(
				domain.InboundMessage{Text: "x"},
				domain.Classification{ContentType: tc.contentType, HasText: true},
			)
			assert.Equal(t, tc.destination, decision.Destination)
		})
	}
}

func TestRouter_DefaultTimeoutsAndRetries(t *testing.T) {
	cfg := DefaultRouterConfig()

	tests := []struct {
		destination domain.Destination
		endpoint    string
		timeout     time.Duration
		maxRetries  int
	}{
		{domain.DestinationText, "/process", 3 * time.Minute, 2},
		{domain.DestinationMedia, "/process/media", 5 * time.Minute, 1},
		{domain.DestinationAudio, "/process/audio", 4 * time.Minute, 1},
		{domain.DestinationDocument, "/process/document", 3 * time.Minute, 1},
		{domain.DestinationAutoReply, "/auto-reply", 5 * time.Second, 0},
		{domain.DestinationIgnore, "", 0, 0},
		{domain.DestinationManualReview, "/queue/manual", 10 * time.Second, 0},
	}

	for _, tc := range tests {
		dc, ok := cfg.Destinations[tc.destination]
		require.True(t, ok, "destination %s missing", tc.destination)
		assert.Equal(t, tc.endpoint, dc.Endpoint)
		assert.Equal(t, tc.timeout, dc.Timeout)
		assert.Equal(t, tc.maxRetries, dc.MaxRetries)
	}
}

func TestRouterConfig_WithTimeoutOverride(t *testing.T) {
	base := DefaultRouterConfig()
	overridden := base.WithTimeoutOverride(domain.DestinationText, 30*time.Second)

	assert.Equal(t, 30*time.Second, overridden.Destinations[domain.DestinationText].Timeout)
	// The original table stays untouched.
	assert.Equal(t, 3*time.Minute, base.Destinations[domain.DestinationText].Timeout)
	// Zero is a no-op.
	same := base.WithTimeoutOverride(domain.DestinationText, 0)
	assert.Equal(t, 3*time.Minute, same.Destinations[domain.DestinationText].Timeout)
}

func TestRouter_GatingFromMe(t *testing.T) {
	router := NewRouter(DefaultRouterConfig(), testLogger())

	decision := router.Route(
		domain.InboundMessage{Text: "hello", FromMe: true},
		domain.Classification{ContentType: domain.ContentTextOnly, HasText: true},
	)
	assert.False(t, decision.ShouldProcess)
	assert.Equal(t, "message sent by us", decision.Reason)
	// The destination is still reported for observability.
	assert.Equal(t, domain.DestinationText, decision.Destination)
}

func TestRouter_GatingIgnoredTypes(t *testing.T) {
	router := NewRouter(DefaultRouterConfig(), testLogger())

	decision := router.Route(
		domain.InboundMessage{MessageType: "stickerMessage"},
		domain.Classification{ContentType: domain.ContentSticker, HasMedia: true},
	)
	assert.False(t, decision.ShouldProcess)
	assert.Contains(t, decision.Reason, "ignored message type")
	assert.Contains(t, decision.Reason, "sticker")
}

func TestRouter_GatingNoContent(t *testing.T) {
	router := NewRouter(DefaultRouterConfig(), testLogger())

	decision := router.Route(
		domain.InboundMessage{},
		domain.Classification{ContentType: domain.ContentUnknown},
	)
	assert.False(t, decision.ShouldProcess)
	assert.Equal(t, "no content to process", decision.Reason)
}

func TestRouter_ProcessableMessageCarriesConfig(t *testing.T) {
	router := NewRouter(DefaultRouterConfig(), testLogger())

	decision := router.Route(
		domain.InboundMessage{Text: "hello"},
		domain.Classification{ContentType: domain.ContentTextOnly, HasText: true},
	)
	assert.True(t, decision.ShouldProcess)
	assert.Empty(t, decision.Reason)
	assert.Equal(t, "/process", decision.Config.Endpoint)
	assert.Equal(t, 2, decision.Config.MaxRetries)
}
