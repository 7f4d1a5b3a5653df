package domain

import "time"

// InboundMessage is the provider-supplied raw message, as handed to the
// pipeline by the webhook transport. Immutable once received; only derived
// fields are persisted.
type InboundMessage struct {
	// ProviderMessageID is the provider's unique id for this message,
	// kept for dedupe and traceability.
	ProviderMessageID string
	// Sender is the provider's sender identifier, a phone-number-like
	// string possibly suffixed with a domain tag
	// (e.g. "5511999999999@s.whatsapp.net").
	Sender     string
	ChatID     string
	ChatName   string
	SenderName string
	// Type and MessageType are the provider's type/subtype strings
	// (e.g. "conversation", "imageMessage"). Either may be empty.
	Type        string
	MessageType string
	MediaType   string
	// Text is the plain text body; Content is the provider's content
	// field, which for media messages may hold a JSON descriptor or a
	// bare URL.
	Text    string
	Content string
	FromMe  bool
	IsGroup bool
	// Timestamp is the provider's message timestamp.
	Timestamp time.Time
}

// ContentType is the closed classification of a message's shape.
type ContentType string

const (
	ContentTextOnly ContentType = "text_only"

	ContentTextWithImage    ContentType = "text_with_image"
	ContentTextWithAudio    ContentType = "text_with_audio"
	ContentTextWithVideo    ContentType = "text_with_video"
	ContentTextWithDocument ContentType = "text_with_document"

	ContentImageOnly    ContentType = "image_only"
	ContentAudioOnly    ContentType = "audio_only"
	ContentVideoOnly    ContentType = "video_only"
	ContentDocumentOnly ContentType = "document_only"

	ContentSticker     ContentType = "sticker"
	ContentLocation    ContentType = "location"
	ContentContact     ContentType = "contact"
	ContentPoll        ContentType = "poll"
	ContentButtonReply ContentType = "button_reply"
	ContentListReply   ContentType = "list_reply"

	ContentUnknown ContentType = "unknown"
)

// AllContentTypes enumerates every classification value; the routing table
// must cover each one.
var AllContentTypes = []ContentType{
	ContentTextOnly,
	ContentTextWithImage,
	ContentTextWithAudio,
	ContentTextWithVideo,
	ContentTextWithDocument,
	ContentImageOnly,
	ContentAudioOnly,
	ContentVideoOnly,
	ContentDocumentOnly,
	ContentSticker,
	ContentLocation,
	ContentContact,
	ContentPoll,
	ContentButtonReply,
	ContentListReply,
	ContentUnknown,
}

// Priority is the processing-priority hint attached by classification.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Classification is the derived shape of an inbound message. Every input
// resolves to exactly one ContentType; ambiguity falls back to
// ContentUnknown, never an error.
type Classification struct {
	ContentType ContentType
	// HasText reports whether any textual body is present (text field or
	// non-media content field).
	HasText  bool
	HasMedia bool
	// HasCaption reports text accompanying media.
	HasCaption bool
	MediaType  string
	// TextContent is the resolved text: the text field, falling back to
	// the raw content field.
	TextContent string
	Priority    Priority
	// EstimatedSeconds is a processing-time hint used for downstream
	// timeout configuration, not a contract.
	EstimatedSeconds int
}
