package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fyiona/accounts/internal/domain"
)

type profileStore interface {
	Put(ctx context.Context, p *domain.Profile) error
}

type tokenIssuer interface {
	Issue(ctx context.Context, ownerID, purpose, payload string) (string, error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// Hooks holds the side effects of user lifecycle events: profile
// provisioning, ephemeral-token issuance and notification dispatch. They run
// synchronously on the request that triggered the write; a mail failure
// surfaces to the caller even though the state mutation already committed.
type Hooks struct {
	profiles   profileStore
	tokens     tokenIssuer
	mailer     mailer
	domainName string
}

func NewHooks(profiles profileStore, tokens tokenIssuer, mailer mailer, domainName string) *Hooks {
	return &Hooks{profiles: profiles, tokens: tokens, mailer: mailer, domainName: domainName}
}

// Register wires the hooks into the bus. Called once at startup.
func (h *Hooks) Register(bus *Bus) {
	bus.Subscribe(EventUserCreated, h.onUserCreated)
	bus.Subscribe(EventEmailChangeRequested, h.onEmailChangeRequested)
}

func (h *Hooks) onUserCreated(ctx context.Context, evt Event) error {
	e, ok := evt.(UserCreated)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", evt.Name())
	}
	now := time.Now().UTC()
	profile := &domain.Profile{
		UserID:    e.User.UserID,
		Avatar:    domain.DefaultAvatar,
		Biography: domain.DefaultBiography,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.profiles.Put(ctx, profile); err != nil {
		return fmt.Errorf("provision profile: %w", err)
	}

	confirmToken, err := h.tokens.Issue(ctx, e.User.UserID, domain.PurposeEmailConfirm, "")
	if err != nil {
		return fmt.Errorf("issue confirmation token: %w", err)
	}

	tokenURL := fmt.Sprintf("%s/v1/accounts/registration/confirmation/%s", h.domainName, confirmToken)
	body := fmt.Sprintf("Follow the link below to confirm your Email address:\n%s", tokenURL)
	slog.Info("sending email confirmation token", "user_id", e.User.UserID)
	return h.mailer.SendEmail(e.User.Email, "Confirmation Email Token", body)
}

func (h *Hooks) onEmailChangeRequested(ctx context.Context, evt Event) error {
	e, ok := evt.(EmailChangeRequested)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", evt.Name())
	}
	updateToken, err := h.tokens.Issue(ctx, e.User.UserID, domain.PurposeEmailUpdate, e.NewEmail)
	if err != nil {
		return fmt.Errorf("issue email-update token: %w", err)
	}

	tokenURL := fmt.Sprintf("%s/v1/users/email/confirmation/%s", h.domainName, updateToken)
	body := fmt.Sprintf("Please follow the link to reset your email.\nThis link is active for 1 hour only!\n\n%s", tokenURL)
	slog.Info("sending email-change confirmation token", "user_id", e.User.UserID)
	return h.mailer.SendEmail(e.NewEmail, "Confirmation New Email", body)
}
