package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

// providerTypeMap maps provider message type strings onto the internal
// closed message-type set.
var providerTypeMap = map[string]domain.MessageType{
	"conversation":        domain.MessageTypeText,
	"text":                domain.MessageTypeText,
	"extendedtextmessage": domain.MessageTypeText,
	"imagemessage":        domain.MessageTypeImage,
	"image":               domain.MessageTypeImage,
	"audiomessage":        domain.MessageTypeAudio,
	"audio":               domain.MessageTypeAudio,
	"ptt":                 domain.MessageTypePTT,
	"videomessage":        domain.MessageTypeVideo,
	"video":               domain.MessageTypeVideo,
	"documentmessage":     domain.MessageTypeDocument,
	"document":            domain.MessageTypeDocument,
	"stickermessage":      domain.MessageTypeSticker,
	"sticker":             domain.MessageTypeSticker,
}

// MapProviderMessageType maps a provider type string to the internal
// message type. Unmapped types default to text: availability over
// strictness.
func MapProviderMessageType(providerType string) domain.MessageType {
	if mapped, ok := providerTypeMap[strings.ToLower(providerType)]; ok {
		return mapped
	}
	return domain.MessageTypeText
}

// AppendParams are the inputs for persisting one inbound message.
type AppendParams struct {
	ConversationID    uuid.UUID
	SenderID          uuid.UUID
	SenderType        domain.SenderType
	Content           string
	ProviderType      string
	ProviderMessageID string
	Metadata          map[string]any
}

// MessagePersister appends inbound messages to their conversation.
// Append-only: nothing in this service ever updates or deletes a stored
// message.
type MessagePersister struct {
	messages domain.MessageRepository
	logger   *slog.Logger
}

// NewMessagePersister creates a MessagePersister.
func NewMessagePersister(messages domain.MessageRepository, logger *slog.Logger) *MessagePersister {
	return &MessagePersister{
		messages: messages,
		logger:   logger.With("component", "message_persister"),
	}
}

// Append stores the message. Re-deliveries of a provider message id already
// on record are skipped: the stored message is not returned, created is
// false, and no error is raised.
func (p *MessagePersister) Append(ctx context.Context, params AppendParams) (msg *domain.Message, created bool, err error) {
	if params.ProviderMessageID != "" {
		exists, err := p.messages.ExistsByProviderMessageID(ctx, params.ProviderMessageID)
		if err != nil {
			return nil, false, fmt.Errorf("dedupe lookup: %w", err)
		}
		if exists {
			p.logger.InfoContext(ctx, "Skipping duplicate provider message",
				"provider_message_id", params.ProviderMessageID,
				"conversation_id", params.ConversationID,
			)
			return nil, false, nil
		}
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	stored, err := p.messages.Create(ctx, &domain.Message{
		ConversationID:    params.ConversationID,
		SenderType:        params.SenderType,
		SenderID:          params.SenderID,
		Content:           params.Content,
		MessageType:       MapProviderMessageType(params.ProviderType),
		ProviderMessageID: params.ProviderMessageID,
		Status:            domain.MessageStatusDelivered,
		Metadata:          metadata,
	})
	if err != nil {
		return nil, false, fmt.Errorf("insert message: %w", err)
	}

	p.logger.InfoContext(ctx, "Message persisted",
		"message_id", stored.ID,
		"conversation_id", stored.ConversationID,
		"message_type", stored.MessageType,
		"provider_message_id", stored.ProviderMessageID,
	)
	return stored, true, nil
}
