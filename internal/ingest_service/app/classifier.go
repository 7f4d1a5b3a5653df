package app

import (
	"strings"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

// mediaKeywords are the provider type/subtype markers that indicate a media
// payload of some kind.
var mediaKeywords = []string{"image", "audio", "video", "document", "sticker", "ptt"}

// estimatedSeconds is a fixed processing-time hint per content type, used
// only to size downstream timeouts.
var estimatedSeconds = map[domain.ContentType]int{
	domain.ContentTextOnly:         30,
	domain.ContentTextWithImage:    60,
	domain.ContentImageOnly:        60,
	domain.ContentTextWithAudio:    120,
	domain.ContentAudioOnly:        120,
	domain.ContentTextWithVideo:    180,
	domain.ContentVideoOnly:        180,
	domain.ContentTextWithDocument: 90,
	domain.ContentDocumentOnly:     90,
	domain.ContentButtonReply:      5,
	domain.ContentListReply:        5,
}

// Classify maps a raw inbound message onto the closed content-type
// taxonomy. Pure and total: every input yields a Classification, ambiguous
// or unrecognized shapes resolve to ContentUnknown rather than an error.
func Classify(msg domain.InboundMessage) domain.Classification {
	msgType := strings.ToLower(firstNonEmpty(msg.MessageType, msg.Type))
	media := strings.ToLower(msg.MediaType)

	// The text field is the actual typed text (caption for media). The
	// content field can carry a media descriptor blob, so it only counts
	// as a textual body when no media marker is present.
	hasCaption := strings.TrimSpace(msg.Text) != ""
	hasMedia := containsAnyKeyword(msgType, media)
	hasText := hasCaption || (!hasMedia && strings.TrimSpace(msg.Content) != "")

	contentType := determineContentType(msgType, media, hasCaption, hasText)

	c := domain.Classification{
		ContentType: contentType,
		HasText:     hasText,
		HasMedia:    hasMedia,
		HasCaption:  hasCaption && hasMedia,
		MediaType:   msg.MediaType,
		TextContent: firstNonEmpty(msg.Text, msg.Content),
		Priority:    determinePriority(contentType),
	}
	if secs, ok := estimatedSeconds[contentType]; ok {
		c.EstimatedSeconds = secs
	} else {
		c.EstimatedSeconds = 30
	}
	return c
}

// determineContentType resolves the taxonomy value. Special closed-form
// types win over media families because some payloads carry both markers.
func determineContentType(msgType, media string, hasCaption, hasText bool) domain.ContentType {
	switch {
	case strings.Contains(msgType, "sticker"):
		return domain.ContentSticker
	case strings.Contains(msgType, "location"):
		return domain.ContentLocation
	case strings.Contains(msgType, "contact") || strings.Contains(msgType, "vcard"):
		return domain.ContentContact
	case strings.Contains(msgType, "poll"):
		return domain.ContentPoll
	case strings.Contains(msgType, "button"):
		return domain.ContentButtonReply
	case strings.Contains(msgType, "list"):
		return domain.ContentListReply
	}

	switch {
	case strings.Contains(msgType, "image") || strings.Contains(media, "image"):
		return pickMediaVariant(hasCaption, domain.ContentTextWithImage, domain.ContentImageOnly)
	case strings.Contains(msgType, "audio") || strings.Contains(media, "audio") || strings.Contains(msgType, "ptt"):
		return pickMediaVariant(hasCaption, domain.ContentTextWithAudio, domain.ContentAudioOnly)
	case strings.Contains(msgType, "video") || strings.Contains(media, "video"):
		return pickMediaVariant(hasCaption, domain.ContentTextWithVideo, domain.ContentVideoOnly)
	case strings.Contains(msgType, "document") || strings.Contains(media, "document") || strings.Contains(media, "application"):
		return pickMediaVariant(hasCaption, domain.ContentTextWithDocument, domain.ContentDocumentOnly)
	}

	if hasText {
		return domain.ContentTextOnly
	}
	return domain.ContentUnknown
}

func pickMediaVariant(hasCaption bool, withText, only domain.ContentType) domain.ContentType {
	if hasCaption {
		return withText
	}
	return only
}

// determinePriority: pure text expects a fast answer, captioned media sits
// in the middle, everything else is background work.
func determinePriority(contentType domain.ContentType) domain.Priority {
	if contentType == domain.ContentTextOnly {
		return domain.PriorityHigh
	}
	if strings.HasPrefix(string(contentType), "text_with_") {
		return domain.PriorityMedium
	}
	return domain.PriorityLow
}

func containsAnyKeyword(msgType, media string) bool {
	for _, kw := range mediaKeywords {
		if strings.Contains(msgType, kw) || strings.Contains(media, kw) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
