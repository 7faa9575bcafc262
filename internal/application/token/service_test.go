package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fyiona/accounts/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTokenStore struct{ mock.Mock }

func (m *mockTokenStore) Put(ctx context.Context, t *domain.AccessToken) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockTokenStore) Get(ctx context.Context, userID, purpose string) (*domain.AccessToken, error) {
	args := m.Called(ctx, userID, purpose)
	if t, _ := args.Get(0).(*domain.AccessToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) GetByToken(ctx context.Context, purpose, token string) (*domain.AccessToken, error) {
	args := m.Called(ctx, purpose, token)
	if t, _ := args.Get(0).(*domain.AccessToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenStore) Delete(ctx context.Context, userID, purpose string) error {
	return m.Called(ctx, userID, purpose).Error(0)
}

func newServiceAt(repo *mockTokenStore, now time.Time) *service {
	return &service{repo: repo, now: func() time.Time { return now }}
}

// --- Issue ---

func TestIssue_UnknownPurpose(t *testing.T) {
	svc := NewService(&mockTokenStore{})
	_, err := svc.Issue(context.Background(), "u1", "bogus", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestIssue_NoExisting_StoresFreshToken(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "u1", domain.PurposeEmailConfirm).Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.AccessToken")).Return(nil)

	svc := NewService(repo)
	raw, err := svc.Issue(context.Background(), "u1", domain.PurposeEmailConfirm, "")

	require.NoError(t, err)
	assert.Len(t, raw, 128) // hex confirmation token
	repo.AssertExpectations(t)
}

func TestIssue_LiveToken_ReturnedUnchanged(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "u1", domain.PurposePasswordReset).Return(&domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposePasswordReset,
		Token:     "livetoken",
		CreatedAt: now.Add(-5 * time.Minute),
	}, nil)

	svc := newServiceAt(repo, now)
	raw, err := svc.Issue(context.Background(), "u1", domain.PurposePasswordReset, "")

	require.NoError(t, err)
	assert.Equal(t, "livetoken", raw)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssue_StaleToken_RotatedToFresh(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "u1", domain.PurposePasswordReset).Return(&domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposePasswordReset,
		Token:     "staletoken",
		CreatedAt: now.Add(-11 * time.Minute),
	}, nil)
	repo.On("Delete", mock.Anything, "u1", domain.PurposePasswordReset).Return(nil)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.AccessToken")).Return(nil)

	svc := newServiceAt(repo, now)
	raw, err := svc.Issue(context.Background(), "u1", domain.PurposePasswordReset, "")

	require.NoError(t, err)
	assert.NotEqual(t, "staletoken", raw)
	assert.Len(t, raw, 120)
	repo.AssertExpectations(t)
}

func TestIssue_AccountDelete_ExistingReturnedRegardlessOfAge(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "u1", domain.PurposeAccountDelete).Return(&domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposeAccountDelete,
		Token:     "oldtoken",
		CreatedAt: now.Add(-48 * time.Hour),
	}, nil)

	svc := newServiceAt(repo, now)
	raw, err := svc.Issue(context.Background(), "u1", domain.PurposeAccountDelete, "")

	require.NoError(t, err)
	assert.Equal(t, "oldtoken", raw)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestIssue_EmailUpdate_PayloadAppendedAfterSeparator(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("Get", mock.Anything, "u1", domain.PurposeEmailUpdate).Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.AccessToken")).Return(nil)

	svc := NewService(repo)
	raw, err := svc.Issue(context.Background(), "u1", domain.PurposeEmailUpdate, "new@example.com")

	require.NoError(t, err)
	random, pending, found := strings.Cut(raw, domain.EmailUpdateSeparator)
	require.True(t, found)
	assert.Len(t, random, 120)
	assert.Equal(t, "new@example.com", pending)
}

// --- Consume ---

func TestConsume_UnknownToken(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("GetByToken", mock.Anything, domain.PurposeEmailConfirm, "nope").Return(nil, domain.ErrNotFound)

	svc := NewService(repo)
	_, err := svc.Consume(context.Background(), domain.PurposeEmailConfirm, "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenNotFound))
}

func TestConsume_LiveToken_ReturnsOwnerAndDeletes(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockTokenStore{}
	repo.On("GetByToken", mock.Anything, domain.PurposePasswordReset, "tok").Return(&domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposePasswordReset,
		Token:     "tok",
		CreatedAt: now.Add(-2 * time.Minute),
	}, nil)
	repo.On("Delete", mock.Anything, "u1", domain.PurposePasswordReset).Return(nil)

	svc := newServiceAt(repo, now)
	ownerID, err := svc.Consume(context.Background(), domain.PurposePasswordReset, "tok")

	require.NoError(t, err)
	assert.Equal(t, "u1", ownerID)
	repo.AssertExpectations(t)
}

func TestConsume_SecondUse_FailsNotFound(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockTokenStore{}
	repo.On("GetByToken", mock.Anything, domain.PurposePasswordReset, "tok").Return(&domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposePasswordReset,
		Token:     "tok",
		CreatedAt: now,
	}, nil).Once()
	repo.On("Delete", mock.Anything, "u1", domain.PurposePasswordReset).Return(nil)
	repo.On("GetByToken", mock.Anything, domain.PurposePasswordReset, "tok").Return(nil, domain.ErrNotFound)

	svc := newServiceAt(repo, now)
	_, err := svc.Consume(context.Background(), domain.PurposePasswordReset, "tok")
	require.NoError(t, err)

	_, err = svc.Consume(context.Background(), domain.PurposePasswordReset, "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenNotFound))
}

func TestConsume_ExpiredToken_PurgedAndRejected(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockTokenStore{}
	repo.On("GetByToken", mock.Anything, domain.PurposePasswordReset, "tok").Return(&domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposePasswordReset,
		Token:     "tok",
		CreatedAt: now.Add(-11 * time.Minute),
	}, nil)
	repo.On("Delete", mock.Anything, "u1", domain.PurposePasswordReset).Return(nil)

	svc := newServiceAt(repo, now)
	_, err := svc.Consume(context.Background(), domain.PurposePasswordReset, "tok")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenExpired))
	repo.AssertCalled(t, "Delete", mock.Anything, "u1", domain.PurposePasswordReset)
}

func TestConsume_EmailUpdate_ExpiresDespiteAsIsIssuance(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockTokenStore{}
	repo.On("GetByToken", mock.Anything, domain.PurposeEmailUpdate, "tok~new@x.com").Return(&domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposeEmailUpdate,
		Token:     "tok~new@x.com",
		CreatedAt: now.Add(-2 * time.Hour),
	}, nil)
	repo.On("Delete", mock.Anything, "u1", domain.PurposeEmailUpdate).Return(nil)

	svc := newServiceAt(repo, now)
	_, err := svc.Consume(context.Background(), domain.PurposeEmailUpdate, "tok~new@x.com")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenExpired))
}

// --- Find ---

func TestFind_DoesNotDelete(t *testing.T) {
	repo := &mockTokenStore{}
	stored := &domain.AccessToken{
		UserID:    "u1",
		Purpose:   domain.PurposePasswordReset,
		Token:     "tok",
		CreatedAt: time.Now().UTC(),
	}
	repo.On("GetByToken", mock.Anything, domain.PurposePasswordReset, "tok").Return(stored, nil)

	svc := NewService(repo)
	got, err := svc.Find(context.Background(), domain.PurposePasswordReset, "tok")

	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestFind_UnknownToken(t *testing.T) {
	repo := &mockTokenStore{}
	repo.On("GetByToken", mock.Anything, domain.PurposeEmailUpdate, "nope").Return(nil, domain.ErrNotFound)

	svc := NewService(repo)
	_, err := svc.Find(context.Background(), domain.PurposeEmailUpdate, "nope")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenNotFound))
}
