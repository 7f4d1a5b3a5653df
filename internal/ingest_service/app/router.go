package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

// RouterConfig is the explicit destination table handed to the Router at
// construction time. Every destination the content-type mapping can produce
// must be present.
type RouterConfig struct {
	Destinations map[domain.Destination]domain.DestinationConfig
}

// DefaultRouterConfig returns the built-in destination table. Text gets a
// generous timeout because the downstream pipeline itself is slow; media
// analysis gets longer timeouts and fewer retries because re-running it is
// expensive; interactive replies take a fast path with no retries; unknown
// input goes to a manual-review queue so it stays observable.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Destinations: map[domain.Destination]domain.DestinationConfig{
			domain.DestinationText: {
				Endpoint:    "/process",
				Timeout:     3 * time.Minute,
				MaxRetries:  2,
				Description: "Full text analysis",
			},
			domain.DestinationMedia: {
				Endpoint:    "/process/media",
				Timeout:     5 * time.Minute,
				MaxRetries:  1,
				Description: "Image/video analysis",
			},
			domain.DestinationAudio: {
				Endpoint:    "/process/audio",
				Timeout:     4 * time.Minute,
				MaxRetries:  1,
				Description: "Audio transcription and analysis",
			},
			domain.DestinationDocument: {
				Endpoint:    "/process/document",
				Timeout:     3 * time.Minute,
				MaxRetries:  1,
				Description: "Document processing",
			},
			domain.DestinationAutoReply: {
				Endpoint:    "/auto-reply",
				Timeout:     5 * time.Second,
				MaxRetries:  0,
				Description: "Fast automatic reply",
			},
			domain.DestinationIgnore: {
				Endpoint:    "",
				Timeout:     0,
				MaxRetries:  0,
				Description: "Ignored message type",
			},
			domain.DestinationManualReview: {
				Endpoint:    "/queue/manual",
				Timeout:     10 * time.Second,
				MaxRetries:  0,
				Description: "Queued for manual review",
			},
		},
	}
}

// WithTimeoutOverride returns a copy of the config with the destination's
// timeout replaced. A zero override is ignored.
func (c RouterConfig) WithTimeoutOverride(dest domain.Destination, timeout time.Duration) RouterConfig {
	if timeout <= 0 {
		return c
	}
	out := RouterConfig{Destinations: make(map[domain.Destination]domain.DestinationConfig, len(c.Destinations))}
	for k, v := range c.Destinations {
		out.Destinations[k] = v
	}
	dc := out.Destinations[dest]
	dc.Timeout = timeout
	out.Destinations[dest] = dc
	return out
}

// Validate checks that every content type resolves to a configured
// destination.
func (c RouterConfig) Validate() error {
	for _, ct := range domain.AllContentTypes {
		dest := destinationFor(ct)
		if _, ok := c.Destinations[dest]; !ok {
			return fmt.Errorf("routing table missing destination %q for content type %q", dest, ct)
		}
	}
	return nil
}

// Router is the static, total mapping from classifications to routing
// decisions. It performs no I/O.
type Router struct {
	destinations map[domain.Destination]domain.DestinationConfig
	logger       *slog.Logger
}

// NewRouter creates a Router over the given destination table.
func NewRouter(cfg RouterConfig, logger *slog.Logger) *Router {
	return &Router{
		destinations: cfg.Destinations,
		logger:       logger.With("component", "router"),
	}
}

// Route maps a classification to its single routing decision and applies
// the content-independent gating: echoes of our own sends are never
// processed, nor are messages with neither text nor media.
func (r *Router) Route(msg domain.InboundMessage, cls domain.Classification) domain.RoutingDecision {
	dest := destinationFor(cls.ContentType)
	decision := domain.RoutingDecision{
		Destination:   dest,
		Config:        r.destinations[dest],
		ShouldProcess: true,
	}

	switch {
	case msg.FromMe:
		decision.ShouldProcess = false
		decision.Reason = "message sent by us"
	case dest == domain.DestinationIgnore:
		decision.ShouldProcess = false
		decision.Reason = fmt.Sprintf("ignored message type: %s", cls.ContentType)
	case !cls.HasText && !cls.HasMedia:
		decision.ShouldProcess = false
		decision.Reason = "no content to process"
	}

	r.logger.Debug("Message routed",
		"content_type", cls.ContentType,
		"destination", dest,
		"should_process", decision.ShouldProcess,
		"priority", cls.Priority,
	)
	return decision
}

// destinationFor is the closed content-type → destination mapping. Unknown
// content deliberately routes to manual review instead of being dropped.
func destinationFor(contentType domain.ContentType) domain.Destination {
	switch contentType {
	case domain.ContentTextOnly:
		return domain.DestinationText
	case domain.ContentTextWithImage, domain.ContentTextWithVideo,
		domain.ContentImageOnly, domain.ContentVideoOnly:
		return domain.DestinationMedia
	case domain.ContentTextWithAudio, domain.ContentAudioOnly:
		return domain.DestinationAudio
	case domain.ContentTextWithDocument, domain.ContentDocumentOnly:
		return domain.DestinationDocument
	case domain.ContentButtonReply, domain.ContentListReply:
		return domain.DestinationAutoReply
	case domain.ContentSticker, domain.ContentLocation, domain.ContentContact, domain.ContentPoll:
		return domain.DestinationIgnore
	default:
		return domain.DestinationManualReview
	}
}
