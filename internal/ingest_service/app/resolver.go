package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

// sessionWindow is the rolling messaging-window duration, refreshed on
// every inbound message.
const sessionWindow = 24 * time.Hour

// ResolvedIdentity bundles the company, user and conversation an inbound
// message belongs to.
type ResolvedIdentity struct {
	Company      *domain.Company
	User         *domain.WaUser
	Conversation *domain.Conversation
}

// IdentityResolver idempotently resolves company → user → conversation for
// an inbound message, creating records on first contact and reusing them
// afterwards. Any failure aborts the whole resolution; no partial identity
// is ever returned.
type IdentityResolver struct {
	companies     domain.CompanyRepository
	users         domain.WaUserRepository
	conversations domain.ConversationRepository
	logger        *slog.Logger
	now           func() time.Time
}

// NewIdentityResolver creates an IdentityResolver.
func NewIdentityResolver(
	companies domain.CompanyRepository,
	users domain.WaUserRepository,
	conversations domain.ConversationRepository,
	logger *slog.Logger,
) *IdentityResolver {
	return &IdentityResolver{
		companies:     companies,
		users:         users,
		conversations: conversations,
		logger:        logger.With("component", "identity_resolver"),
		now:           time.Now,
	}
}

// Resolve returns the identity for the message's owner token and sender.
// Resolving twice for the same (token, phone) pair yields the same company,
// user and conversation ids.
func (r *IdentityResolver) Resolve(ctx context.Context, msg domain.InboundMessage, ownerToken string) (*ResolvedIdentity, error) {
	company, err := r.resolveCompany(ctx, ownerToken)
	if err != nil {
		return nil, fmt.Errorf("resolve company: %w", err)
	}

	user, err := r.resolveUser(ctx, company, msg)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	conversation, err := r.resolveConversation(ctx, company, user)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	return &ResolvedIdentity{Company: company, User: user, Conversation: conversation}, nil
}

// resolveCompany looks the tenant up by provider token and creates it on
// first contact. The token column is unique, so a concurrent first contact
// loses the insert with a duplicate error and re-selects the winner's row.
func (r *IdentityResolver) resolveCompany(ctx context.Context, token string) (*domain.Company, error) {
	company, err := r.companies.GetByToken(ctx, token)
	if err == nil {
		return company, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created, err := r.companies.Create(ctx, &domain.Company{
		Name:             "Unclaimed company",
		ProviderToken:    token,
		SubscriptionPlan: "starter",
		IsActive:         true,
		Settings:         map[string]any{},
	})
	if err == nil {
		r.logger.InfoContext(ctx, "Created company on first contact", "company_id", created.ID)
		return created, nil
	}
	if errors.Is(err, domain.ErrDuplicateEntry) {
		// Lost the first-contact race; the row exists now.
		return r.companies.GetByToken(ctx, token)
	}
	return nil, err
}

// resolveUser looks the sender up by normalized phone within the company.
// First contact creates the user with opt-in implied by the act of
// messaging; every subsequent message refreshes the interaction timestamp
// and extends the 24h session window.
func (r *IdentityResolver) resolveUser(ctx context.Context, company *domain.Company, msg domain.InboundMessage) (*domain.WaUser, error) {
	phone := NormalizePhoneNumber(msg.Sender)
	now := r.now().UTC()
	windowExpiry := now.Add(sessionWindow)

	user, err := r.users.GetByPhone(ctx, company.ID, phone)
	if err == nil {
		if err := r.users.RefreshWindow(ctx, user.ID, now, windowExpiry); err != nil {
			return nil, err
		}
		user.LastInteractionAt = sql.NullTime{Time: now, Valid: true}
		user.WindowExpiresAt = sql.NullTime{Time: windowExpiry, Valid: true}
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	name := msg.SenderName
	if name == "" {
		name = phone
	}
	created, err := r.users.Create(ctx, &domain.WaUser{
		CompanyID:         company.ID,
		PhoneNumber:       phone,
		Name:              name,
		OptIn:             true,
		LastInteractionAt: sql.NullTime{Time: now, Valid: true},
		WindowExpiresAt:   sql.NullTime{Time: windowExpiry, Valid: true},
	})
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "Created user on first contact",
		"company_id", company.ID, "user_id", created.ID, "phone_number", phone)
	return created, nil
}

// resolveConversation reuses the user's most recently active conversation,
// bumping lastMessageAt, or opens a new one. At most one active
// conversation exists per user.
func (r *IdentityResolver) resolveConversation(ctx context.Context, company *domain.Company, user *domain.WaUser) (*domain.Conversation, error) {
	now := r.now().UTC()

	conversation, err := r.conversations.GetLatestActiveByUserID(ctx, user.ID)
	if err == nil {
		if err := r.conversations.BumpLastMessage(ctx, conversation.ID, now); err != nil {
			return nil, err
		}
		conversation.LastMessageAt = now
		return conversation, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	created, err := r.conversations.Create(ctx, &domain.Conversation{
		UserID:        user.ID,
		CompanyID:     company.ID,
		Status:        domain.ConversationActive,
		Priority:      domain.ConversationPriorityMedium,
		Context:       map[string]any{},
		StartedAt:     now,
		LastMessageAt: now,
	})
	if err != nil {
		return nil, err
	}
	r.logger.InfoContext(ctx, "Opened new conversation",
		"user_id", user.ID, "conversation_id", created.ID)
	return created, nil
}
