package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/fyiona/accounts/internal/application/lifecycle"
	"github.com/fyiona/accounts/internal/application/token"
	"github.com/fyiona/accounts/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Phone-confirmation OTPs live in the same access-token table as the other
// ephemeral tokens but are keyed per user and compared by code, not resolved
// through the token index: a 6-digit OTP is not globally unique.
const (
	purposePhoneConfirm = "phone_confirm"
	otpLifetime         = 15 * time.Minute
)

type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error)
	ConfirmEmail(ctx context.Context, rawToken string) error

	RequestPasswordReset(ctx context.Context, email string) error
	PreviewPasswordReset(ctx context.Context, rawToken string) (*domain.User, error)
	CompletePasswordReset(ctx context.Context, rawToken, newPassword string) error

	RequestEmailChange(ctx context.Context, userID, newEmail string) error
	ConfirmEmailChange(ctx context.Context, rawToken string) (string, error)

	RequestAccountDeletion(ctx context.Context, userID string) error
	ConfirmAccountDeletion(ctx context.Context, rawToken string) (string, error)

	RequestPhoneConfirmation(ctx context.Context, userID string) error
	ConfirmPhoneOTP(ctx context.Context, userID, otp string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	Delete(ctx context.Context, userID string) error
	SearchByAttr(ctx context.Context, attr, query string) ([]domain.User, error)
}

type profileStore interface {
	Delete(ctx context.Context, userID string) error
}

type otpStore interface {
	Put(ctx context.Context, t *domain.AccessToken) error
	Get(ctx context.Context, userID, purpose string) (*domain.AccessToken, error)
	Delete(ctx context.Context, userID, purpose string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type credentialIssuer interface {
	Issue(userID string) (string, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, evt lifecycle.Event) error
}

type service struct {
	users      userStore
	profiles   profileStore
	tokens     token.Service
	otps       otpStore
	mailer     mailer
	sms        smsSender
	codec      credentialIssuer
	bus        eventPublisher
	domainName string
	now        func() time.Time
}

type ServiceDeps struct {
	UserRepo    userStore
	ProfileRepo profileStore
	Tokens      token.Service
	OTPRepo     otpStore
	Mailer      mailer
	SMSSender   smsSender
	Codec       credentialIssuer
	Bus         eventPublisher
	DomainName  string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:      deps.UserRepo,
		profiles:   deps.ProfileRepo,
		tokens:     deps.Tokens,
		otps:       deps.OTPRepo,
		mailer:     deps.Mailer,
		sms:        deps.SMSSender,
		codec:      deps.Codec,
		bus:        deps.Bus,
		domainName: deps.DomainName,
		now:        time.Now,
	}
}

// Login verifies credentials by email (or phone when no email is given) and
// issues a fresh bearer credential. Accounts with unconfirmed email are
// rejected even on a correct password.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error) {
	u, err := s.resolveLoginUser(ctx, req)
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, fmt.Errorf("wrong credentials: %w", domain.ErrUnauthorized)
	}
	if !u.EmailConfirmed {
		return "", nil, fmt.Errorf("email is not confirmed: %w", domain.ErrForbidden)
	}
	if !u.Active {
		return "", nil, fmt.Errorf("user %s has been deactivated: %w", u.Email, domain.ErrForbidden)
	}
	bearer, err := s.codec.Issue(u.UserID)
	if err != nil {
		return "", nil, err
	}
	now := s.now().UTC()
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"last_login": now.Format(time.RFC3339)}); err != nil {
		slog.Warn("failed to record last login", "user_id", u.UserID, "err", err)
	}
	u.LastLogin = &now
	return bearer, u, nil
}

func (s *service) resolveLoginUser(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	if req.Email != nil && *req.Email != "" {
		u, err := s.users.GetByEmail(ctx, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("wrong credentials: %w", domain.ErrUnauthorized)
		}
		return u, nil
	}
	if req.Phone != nil && *req.Phone != "" {
		found, err := s.users.SearchByAttr(ctx, "phone_number", *req.Phone)
		if err != nil {
			return nil, err
		}
		for i := range found {
			if found[i].Phone != nil && *found[i].Phone == *req.Phone {
				return &found[i], nil
			}
		}
		return nil, fmt.Errorf("wrong credentials: %w", domain.ErrUnauthorized)
	}
	return nil, fmt.Errorf("email or phone_number required: %w", domain.ErrBadRequest)
}

// ConfirmEmail consumes a registration confirmation token, marking the owner
// as confirmed and activating the account.
func (s *service) ConfirmEmail(ctx context.Context, rawToken string) error {
	userID, err := s.tokens.Consume(ctx, domain.PurposeEmailConfirm, rawToken)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{
		"email_confirmed": true,
		"active":          true,
	})
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("there is no user with such email address: %w", domain.ErrNotFound)
	}
	resetToken, err := s.tokens.Issue(ctx, u.UserID, domain.PurposePasswordReset, "")
	if err != nil {
		return err
	}
	tokenURL := fmt.Sprintf("%s/v1/accounts/password/reset/confirmation?token=%s", s.domainName, resetToken)
	body := fmt.Sprintf(`Dear %s %s,

You just have sent a request to reset Your password!

Please, follow the link below to reset Your password:
%s`, u.FirstName, u.LastName, tokenURL)
	return s.mailer.SendEmail(u.Email, "Password Reset", body)
}

// PreviewPasswordReset is the read-only confirmation step: it resolves the
// token to its owner without consuming it, so the reset form can render.
func (s *service) PreviewPasswordReset(ctx context.Context, rawToken string) (*domain.User, error) {
	t, err := s.tokens.Find(ctx, domain.PurposePasswordReset, rawToken)
	if err != nil {
		return nil, err
	}
	return s.users.Get(ctx, t.UserID)
}

func (s *service) CompletePasswordReset(ctx context.Context, rawToken, newPassword string) error {
	userID, err := s.tokens.Consume(ctx, domain.PurposePasswordReset, rawToken)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

// RequestEmailChange fires the email-change lifecycle event, which issues the
// pending-email token and mails the confirmation link to the new address.
func (s *service) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	newEmail = strings.ToLower(newEmail)
	if _, err := s.users.GetByEmail(ctx, newEmail); err == nil {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return s.bus.Publish(ctx, lifecycle.EmailChangeRequested{User: u, NewEmail: newEmail})
}

// ConfirmEmailChange consumes an email-update token, recovers the pending
// address from the payload after the separator and assigns it to the owner.
// Returns the new email address.
func (s *service) ConfirmEmailChange(ctx context.Context, rawToken string) (string, error) {
	userID, err := s.tokens.Consume(ctx, domain.PurposeEmailUpdate, rawToken)
	if err != nil {
		return "", err
	}
	parts := strings.SplitN(rawToken, domain.EmailUpdateSeparator, 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("token carries no pending email: %w", domain.ErrBadRequest)
	}
	newEmail := strings.ToLower(parts[1])
	// The address was free at request time, but someone may have registered
	// it while the token sat in the inbox.
	if _, err := s.users.GetByEmail(ctx, newEmail); err == nil {
		return "", fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"email": newEmail}); err != nil {
		return "", err
	}
	return newEmail, nil
}

func (s *service) RequestAccountDeletion(ctx context.Context, userID string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	deleteToken, err := s.tokens.Issue(ctx, u.UserID, domain.PurposeAccountDelete, "")
	if err != nil {
		return err
	}
	tokenURL := fmt.Sprintf("%s/v1/accounts/delete?token=%s", s.domainName, deleteToken)
	body := fmt.Sprintf(`Dear %s %s,

IMPORTANT:
You just have sent a request to delete Your account!
As soon as you follow the link below, your account will be deleted, think twice!

Please, follow the link below to delete Your account:
%s`, u.FirstName, u.LastName, tokenURL)
	return s.mailer.SendEmail(u.Email, "Delete Account", body)
}

// ConfirmAccountDeletion consumes an account-deletion token and removes the
// owner's profile and user records. Returns the deleted account's email.
func (s *service) ConfirmAccountDeletion(ctx context.Context, rawToken string) (string, error) {
	userID, err := s.tokens.Consume(ctx, domain.PurposeAccountDelete, rawToken)
	if err != nil {
		return "", err
	}
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := s.profiles.Delete(ctx, userID); err != nil {
		return "", err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return "", err
	}
	return u.Email, nil
}

func (s *service) RequestPhoneConfirmation(ctx context.Context, userID string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.Phone == nil || *u.Phone == "" {
		return fmt.Errorf("no phone number on account: %w", domain.ErrBadRequest)
	}
	// The SNS sender is optional at startup; without it the flow must fail
	// before an OTP row is stored, not after.
	if s.sms == nil {
		return fmt.Errorf("SMS delivery is not available: %w", domain.ErrBadRequest)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(999999))
	if err != nil {
		return err
	}
	otp := fmt.Sprintf("%06d", n.Int64())
	t := &domain.AccessToken{
		UserID:    userID,
		Purpose:   purposePhoneConfirm,
		Token:     otp,
		CreatedAt: s.now().UTC(),
	}
	if err := s.otps.Put(ctx, t); err != nil {
		return err
	}
	return s.sms.SendSMS(ctx, *u.Phone, "Your verification code: "+otp)
}

func (s *service) ConfirmPhoneOTP(ctx context.Context, userID, otp string) error {
	t, err := s.otps.Get(ctx, userID, purposePhoneConfirm)
	if err != nil {
		return fmt.Errorf("OTP not found: %w", domain.ErrNotFound)
	}
	if subtle.ConstantTimeCompare([]byte(t.Token), []byte(otp)) != 1 {
		return fmt.Errorf("invalid OTP: %w", domain.ErrUnauthorized)
	}
	if s.now().Sub(t.CreatedAt) > otpLifetime {
		if err := s.otps.Delete(ctx, userID, purposePhoneConfirm); err != nil {
			return err
		}
		return fmt.Errorf("OTP expired: %w", domain.ErrUnauthorized)
	}
	if err := s.otps.Delete(ctx, userID, purposePhoneConfirm); err != nil {
		slog.Warn("failed to delete phone OTP record", "user_id", userID, "err", err)
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"phone_number_confirmed": true})
}
