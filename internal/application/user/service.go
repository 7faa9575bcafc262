package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyiona/accounts/internal/application/lifecycle"
	"github.com/fyiona/accounts/internal/domain"
	"github.com/fyiona/accounts/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldFirstName    = "first_name"
	fieldLastName     = "last_name"
	fieldAvatar       = "avatar"
	fieldBiography    = "biography"
	fieldPasswordHash = "password_hash"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	Detail(ctx context.Context, userID string) (*domain.User, *domain.Profile, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) error
	SearchByEmail(ctx context.Context, query string) ([]domain.User, error)
	SearchByPhone(ctx context.Context, query string) ([]domain.User, error)
	Follow(ctx context.Context, targetID, followerID string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	SearchByAttr(ctx context.Context, attr, query string) ([]domain.User, error)
}

type profileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	AddFollower(ctx context.Context, userID, followerID string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, evt lifecycle.Event) error
}

type service struct {
	repo     userStore
	profiles profileStore
	bus      eventPublisher
}

type ServiceDeps struct {
	UserRepo    userStore
	ProfileRepo profileStore
	Bus         eventPublisher
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.UserRepo,
		profiles: deps.ProfileRepo,
		bus:      deps.Bus,
	}
}

// Register creates a new inactive account. The user stays deactivated and
// unconfirmed until the emailed confirmation token is consumed. The
// user-created lifecycle event fires after the row is persisted, so a hook
// failure leaves the account in place but unconfirmed.
func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email := strings.ToLower(req.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         domain.RoleUser,
		Active:       false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	if err := s.bus.Publish(ctx, lifecycle.UserCreated{User: u}); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) Detail(ctx context.Context, userID string) (*domain.User, *domain.Profile, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return u, p, nil
}

func (s *service) List(ctx context.Context, limit int, cursor string) ([]domain.User, string, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ScanPage(ctx, int32(limit), cursor)
}

// Update applies the account-editable fields: first/last name on the user
// row, avatar/biography on the profile. Anything else is rejected at the
// handler layer before reaching here.
func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) error {
	userUpdates := map[string]interface{}{}
	if req.FirstName != nil {
		userUpdates[fieldFirstName] = *req.FirstName
	}
	if req.LastName != nil {
		userUpdates[fieldLastName] = *req.LastName
	}
	profileUpdates := map[string]interface{}{}
	if req.Avatar != nil {
		profileUpdates[fieldAvatar] = *req.Avatar
	}
	if req.Biography != nil {
		profileUpdates[fieldBiography] = *req.Biography
	}
	if len(userUpdates) == 0 && len(profileUpdates) == 0 {
		return fmt.Errorf("provide at least one field to update: %w", domain.ErrBadRequest)
	}
	if len(userUpdates) > 0 {
		if err := s.repo.Update(ctx, userID, userUpdates); err != nil {
			return err
		}
	}
	if len(profileUpdates) > 0 {
		if err := s.profiles.Update(ctx, userID, profileUpdates); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) SearchByEmail(ctx context.Context, query string) ([]domain.User, error) {
	return s.repo.SearchByAttr(ctx, "email", strings.ToLower(query))
}

func (s *service) SearchByPhone(ctx context.Context, query string) ([]domain.User, error) {
	return s.repo.SearchByAttr(ctx, "phone_number", query)
}

func (s *service) Follow(ctx context.Context, targetID, followerID string) error {
	if targetID == followerID {
		return fmt.Errorf("cannot follow yourself: %w", domain.ErrBadRequest)
	}
	if _, err := s.repo.Get(ctx, targetID); err != nil {
		return err
	}
	return s.profiles.AddFollower(ctx, targetID, followerID)
}

// ChangePassword sets a new password for an authenticated user. The new
// password must differ from the old one, and the old one must verify.
func (s *service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if oldPassword == newPassword {
		return fmt.Errorf("new password is the same as the old password: %w", domain.ErrBadRequest)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("the old password does not match: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}
