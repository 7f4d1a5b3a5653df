package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CompanyRepository stores tenants keyed by their provider token.
type CompanyRepository interface {
	// GetByToken returns ErrNotFound when no company holds the token.
	GetByToken(ctx context.Context, token string) (*Company, error)
	// Create returns ErrDuplicateEntry on a token collision so the caller
	// can re-select (first-contact race, see IdentityResolver).
	Create(ctx context.Context, company *Company) (*Company, error)
}

// WaUserRepository stores WhatsApp end users, unique by phone number
// within a company.
type WaUserRepository interface {
	// GetByPhone returns ErrNotFound when the phone is unseen for the company.
	GetByPhone(ctx context.Context, companyID uuid.UUID, phoneNumber string) (*WaUser, error)
	Create(ctx context.Context, user *WaUser) (*WaUser, error)
	// RefreshWindow unconditionally updates the last-interaction timestamp
	// and the rolling session-expiry window.
	RefreshWindow(ctx context.Context, id uuid.UUID, lastInteractionAt, windowExpiresAt time.Time) error
}

// ConversationRepository stores conversation threads.
type ConversationRepository interface {
	// GetLatestActiveByUserID returns the user's most recently active
	// conversation with status active, or ErrNotFound.
	GetLatestActiveByUserID(ctx context.Context, userID uuid.UUID) (*Conversation, error)
	Create(ctx context.Context, conversation *Conversation) (*Conversation, error)
	BumpLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error
}

// MessageRepository appends message records. This core never updates or
// deletes messages.
type MessageRepository interface {
	Create(ctx context.Context, message *Message) (*Message, error)
	// ExistsByProviderMessageID reports whether a message with the given
	// provider id was already stored, to skip duplicate webhook deliveries.
	ExistsByProviderMessageID(ctx context.Context, providerMessageID string) (bool, error)
}
