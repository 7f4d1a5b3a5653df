package http

// WebhookPayload is the provider's webhook envelope. Different event types
// carry different substructures; only EventType, Owner and Token are common
// to all of them.
type WebhookPayload struct {
	EventType string      `json:"EventType" validate:"required"`
	Owner     string      `json:"owner" validate:"required"`
	Token     string      `json:"token" validate:"required"`
	BaseURL   string      `json:"BaseUrl,omitempty"`
	Message   *MessageDTO `json:"message,omitempty"`
	Chat      *ChatDTO    `json:"chat,omitempty"`
	Event     string      `json:"event,omitempty"`
	Type      string      `json:"type,omitempty"`
}

// MessageDTO is the provider's message object for "messages" events.
type MessageDTO struct {
	ID string `json:"id"`
	// MessageID is the provider's alternative id field; either may be set.
	MessageID   string `json:"messageid,omitempty"`
	Sender      string `json:"sender"`
	ChatID      string `json:"chatid,omitempty"`
	Type        string `json:"type,omitempty"`
	MessageType string `json:"messageType,omitempty"`
	MediaType   string `json:"mediaType,omitempty"`
	Text        string `json:"text,omitempty"`
	Content     string `json:"content,omitempty"`
	SenderName  string `json:"senderName,omitempty"`
	FromMe      bool   `json:"fromMe"`
	IsGroup     bool   `json:"isGroup"`
	// MessageTimestamp is milliseconds since epoch.
	MessageTimestamp int64 `json:"messageTimestamp,omitempty"`
}

// ChatDTO is the provider's parent chat metadata.
type ChatDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	WaChatID string `json:"wa_chatid,omitempty"`
	WaName   string `json:"wa_name,omitempty"`
}
