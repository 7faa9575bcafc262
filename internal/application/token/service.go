package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyiona/accounts/internal/domain"
	pkgtoken "github.com/fyiona/accounts/internal/pkg/token"
)

// stalenessWindow is the maximum age of a live token, per purpose. One window
// governs both rotation at issuance and rejection at consumption. Email-update
// and account-deletion tokens skip the issuance check (an existing live token
// is always handed back) but are still rejected here once consumed too late.
var stalenessWindow = map[string]time.Duration{
	domain.PurposeEmailConfirm:  24 * time.Hour,
	domain.PurposePasswordReset: 10 * time.Minute,
	domain.PurposeEmailUpdate:   time.Hour,
	domain.PurposeAccountDelete: time.Hour,
}

// Service manages the lifecycle of ephemeral single-use tokens. Each
// (owner, purpose) slot holds at most one live token; staleness is checked
// lazily on the next issue or consume, never by a background sweeper.
type Service interface {
	// Issue returns a live token for (ownerID, purpose), rotating a stale one
	// first. Re-issuing within the staleness window returns the existing token
	// unchanged. payload, when non-empty, is appended to the random string
	// after the separator (used by email_update to carry the pending address).
	Issue(ctx context.Context, ownerID, purpose, payload string) (string, error)
	// Consume resolves raw to its owner and deletes the record (single use).
	// Returns ErrTokenNotFound for unknown tokens and ErrTokenExpired (after
	// purging) for tokens older than the purpose's window.
	Consume(ctx context.Context, purpose, raw string) (string, error)
	// Find is the non-consuming lookup used by confirmation-preview endpoints.
	Find(ctx context.Context, purpose, raw string) (*domain.AccessToken, error)
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.AccessToken) error
	Get(ctx context.Context, userID, purpose string) (*domain.AccessToken, error)
	GetByToken(ctx context.Context, purpose, token string) (*domain.AccessToken, error)
	Delete(ctx context.Context, userID, purpose string) error
}

type service struct {
	repo tokenStore
	now  func() time.Time
}

func NewService(repo tokenStore) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Issue(ctx context.Context, ownerID, purpose, payload string) (string, error) {
	window, ok := stalenessWindow[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q: %w", purpose, domain.ErrBadRequest)
	}

	existing, err := s.repo.Get(ctx, ownerID, purpose)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if existing != nil {
		// Deletion and email-update tokens are returned as-is; their age only
		// matters at consumption time.
		if purpose == domain.PurposeAccountDelete || purpose == domain.PurposeEmailUpdate {
			return existing.Token, nil
		}
		if s.now().Sub(existing.CreatedAt) <= window {
			return existing.Token, nil
		}
		if err := s.repo.Delete(ctx, ownerID, purpose); err != nil {
			return "", err
		}
	}

	raw, err := s.generate(purpose)
	if err != nil {
		return "", err
	}
	if payload != "" {
		raw += domain.EmailUpdateSeparator + payload
	}
	t := &domain.AccessToken{
		UserID:    ownerID,
		Purpose:   purpose,
		Token:     raw,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Put(ctx, t); err != nil {
		return "", err
	}
	return raw, nil
}

func (s *service) Consume(ctx context.Context, purpose, raw string) (string, error) {
	t, err := s.repo.GetByToken(ctx, purpose, raw)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrTokenNotFound
		}
		return "", err
	}
	if s.now().Sub(t.CreatedAt) > stalenessWindow[purpose] {
		if err := s.repo.Delete(ctx, t.UserID, t.Purpose); err != nil {
			return "", err
		}
		return "", domain.ErrTokenExpired
	}
	if err := s.repo.Delete(ctx, t.UserID, t.Purpose); err != nil {
		return "", err
	}
	return t.UserID, nil
}

func (s *service) Find(ctx context.Context, purpose, raw string) (*domain.AccessToken, error) {
	t, err := s.repo.GetByToken(ctx, purpose, raw)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *service) generate(purpose string) (string, error) {
	if purpose == domain.PurposeEmailConfirm {
		return pkgtoken.NewConfirmationToken()
	}
	return pkgtoken.NewUpdateToken()
}
