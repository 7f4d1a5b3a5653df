package app

import (
	"encoding/json"
	"strings"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

// PayloadContext carries the conversation context sent to every worker.
type PayloadContext struct {
	Source         string             `json:"source"`
	ConversationID string             `json:"conversation_id"`
	ChatName       string             `json:"chat_name,omitempty"`
	SenderName     string             `json:"sender_name,omitempty"`
	IsGroup        bool               `json:"is_group"`
	MessageType    domain.ContentType `json:"message_type"`
	Priority       domain.Priority    `json:"priority"`
}

// MediaDescriptor describes an attached image or video.
type MediaDescriptor struct {
	Type       string `json:"type,omitempty"`
	URL        string `json:"url,omitempty"`
	HasCaption bool   `json:"has_caption"`
}

// AudioDescriptor describes an attached audio message.
type AudioDescriptor struct {
	URL                   string `json:"url,omitempty"`
	TranscriptionRequired bool   `json:"transcription_required"`
}

// DocumentDescriptor describes an attached document.
type DocumentDescriptor struct {
	URL         string `json:"url,omitempty"`
	ExtractText bool   `json:"extract_text"`
}

// DispatchPayload is the destination-specific request body queued for the
// worker pipeline. Exactly one of Media/Audio/Document is set, and only for
// the corresponding destinations.
type DispatchPayload struct {
	Message     string              `json:"message"`
	UserID      string              `json:"user_id"`
	PhoneNumber string              `json:"phone_number"`
	Context     PayloadContext      `json:"context"`
	Media       *MediaDescriptor    `json:"media,omitempty"`
	Audio       *AudioDescriptor    `json:"audio,omitempty"`
	Document    *DocumentDescriptor `json:"document,omitempty"`
}

// BuildPayload assembles the worker request body from the raw message, its
// classification and the resolved identity.
func BuildPayload(
	msg domain.InboundMessage,
	cls domain.Classification,
	decision domain.RoutingDecision,
	identity ResolvedIdentity,
) DispatchPayload {
	payload := DispatchPayload{
		Message:     cls.TextContent,
		UserID:      identity.User.ID.String(),
		PhoneNumber: NormalizePhoneNumber(msg.Sender),
		Context: PayloadContext{
			Source:         "whatsapp",
			ConversationID: identity.Conversation.ID.String(),
			ChatName:       msg.ChatName,
			SenderName:     msg.SenderName,
			IsGroup:        msg.IsGroup,
			MessageType:    cls.ContentType,
			Priority:       cls.Priority,
		},
	}

	switch decision.Destination {
	case domain.DestinationMedia:
		url, _ := ExtractMediaURL(msg.Content)
		payload.Media = &MediaDescriptor{
			Type:       cls.MediaType,
			URL:        url,
			HasCaption: cls.HasCaption,
		}
	case domain.DestinationAudio:
		url, _ := ExtractMediaURL(msg.Content)
		payload.Audio = &AudioDescriptor{
			URL:                   url,
			TranscriptionRequired: true,
		}
	case domain.DestinationDocument:
		url, _ := ExtractMediaURL(msg.Content)
		payload.Document = &DocumentDescriptor{
			URL:         url,
			ExtractText: true,
		}
	}

	return payload
}

// NormalizePhoneNumber strips a provider domain suffix from a sender
// identifier: "5511999999999@s.whatsapp.net" → "5511999999999".
func NormalizePhoneNumber(sender string) string {
	if idx := strings.Index(sender, "@"); idx >= 0 {
		if idx == 0 {
			return sender
		}
		return sender[:idx]
	}
	return sender
}

// mediaContentFields is the structured shape some providers put into the
// content field for media messages.
type mediaContentFields struct {
	MediaURL string `json:"mediaUrl"`
	URL      string `json:"url"`
	Media    string `json:"media"`
}

// ExtractMediaURL extracts a media URL from the raw content field.
// Three-way: a structured JSON parse looking for URL-shaped fields, else
// the whole content if it is itself a bare URL, else absent.
func ExtractMediaURL(content string) (string, bool) {
	if content == "" {
		return "", false
	}

	var fields mediaContentFields
	if err := json.Unmarshal([]byte(content), &fields); err == nil {
		for _, candidate := range []string{fields.MediaURL, fields.URL, fields.Media} {
			if candidate != "" {
				return candidate, true
			}
		}
		return "", false
	}

	if strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		return content, true
	}
	return "", false
}
