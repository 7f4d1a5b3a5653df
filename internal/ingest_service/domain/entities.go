package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Company is the tenant root, identified by its provider-issued instance
// token. Created lazily on first message from an unseen token.
type Company struct {
	ID               uuid.UUID
	Name             string
	ProviderToken    string
	SubscriptionPlan string
	IsActive         bool
	Settings         map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// WaUser is an end user reaching the system over WhatsApp, unique by
// normalized phone number within a company. Every inbound message refreshes
// the last-interaction timestamp and the rolling session-expiry window.
type WaUser struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	PhoneNumber string
	Name        string
	OptIn       bool
	// LastInteractionAt and WindowExpiresAt implement the messaging-window
	// policy: the window is extended on every inbound message.
	LastInteractionAt sql.NullTime
	WindowExpiresAt   sql.NullTime
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ConversationStatus is the lifecycle state of a conversation. This core
// only creates and reads active conversations; close/archive transitions
// happen elsewhere.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationWaiting  ConversationStatus = "waiting"
	ConversationClosed   ConversationStatus = "closed"
	ConversationArchived ConversationStatus = "archived"
)

// ConversationPriority mirrors the stored priority enum.
type ConversationPriority string

const (
	ConversationPriorityLow    ConversationPriority = "low"
	ConversationPriorityMedium ConversationPriority = "medium"
	ConversationPriorityHigh   ConversationPriority = "high"
)

// Conversation is the active thread between a WaUser and the system.
// Invariant: at most one active conversation per user at a time.
type Conversation struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CompanyID     uuid.UUID
	Status        ConversationStatus
	Priority      ConversationPriority
	Context       map[string]any
	StartedAt     time.Time
	LastMessageAt time.Time
}

// SenderType distinguishes who authored a stored message.
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderAgent  SenderType = "agent"
	SenderSystem SenderType = "system"
)

// MessageType is the internal closed set of stored message types. Provider
// type strings are mapped onto it; unmapped types default to text.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeDocument MessageType = "document"
	MessageTypeAudio    MessageType = "audio"
	MessageTypePTT      MessageType = "ptt"
	MessageTypeSticker  MessageType = "sticker"
)

// MessageStatus is the delivery status of a stored message.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// Message is an immutable append-only record of one message in a
// conversation.
type Message struct {
	ID                uuid.UUID
	ConversationID    uuid.UUID
	SenderType        SenderType
	SenderID          uuid.UUID
	Content           string
	MessageType       MessageType
	ProviderMessageID string
	Status            MessageStatus
	Metadata          map[string]any
	SentAt            time.Time
}
