package user

import (
	"context"
	"errors"
	"testing"

	"github.com/fyiona/accounts/internal/application/lifecycle"
	"github.com/fyiona/accounts/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockUserStore) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	args := m.Called(ctx, limit, cursor)
	us, _ := args.Get(0).([]domain.User)
	return us, args.String(1), args.Error(2)
}
func (m *mockUserStore) SearchByAttr(ctx context.Context, attr, query string) ([]domain.User, error) {
	args := m.Called(ctx, attr, query)
	us, _ := args.Get(0).([]domain.User)
	return us, args.Error(1)
}

type mockProfileStore struct{ mock.Mock }

func (m *mockProfileStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if p, _ := args.Get(0).(*domain.Profile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProfileStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}
func (m *mockProfileStore) AddFollower(ctx context.Context, userID, followerID string) error {
	return m.Called(ctx, userID, followerID).Error(0)
}

type mockBus struct{ mock.Mock }

func (m *mockBus) Publish(ctx context.Context, evt lifecycle.Event) error {
	return m.Called(ctx, evt).Error(0)
}

func newService(us *mockUserStore, ps *mockProfileStore, bus *mockBus) Service {
	return NewService(ServiceDeps{UserRepo: us, ProfileRepo: ps, Bus: bus})
}

func strPtr(s string) *string { return &s }

// --- Register ---

func TestRegister_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	bus := &mockBus{}
	us.On("GetByEmail", mock.Anything, "ann@b.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	bus.On("Publish", mock.Anything, mock.MatchedBy(func(evt lifecycle.Event) bool {
		_, ok := evt.(lifecycle.UserCreated)
		return ok
	})).Return(nil)

	svc := newService(us, nil, bus)
	u, err := svc.Register(context.Background(), domain.CreateUserRequest{
		Email:     "Ann@B.com",
		Password:  "secret123",
		FirstName: "Ann",
		LastName:  "Lee",
	})

	require.NoError(t, err)
	assert.Equal(t, "ann@b.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.False(t, u.Active)
	assert.False(t, u.EmailConfirmed)
	assert.NotEmpty(t, u.UserID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret123")))
	us.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestRegister_DuplicateEmail_Conflict(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ann@b.com").Return(&domain.User{UserID: "u1"}, nil)

	svc := newService(us, nil, nil)
	_, err := svc.Register(context.Background(), domain.CreateUserRequest{
		Email:     "ann@b.com",
		Password:  "secret123",
		FirstName: "Ann",
		LastName:  "Lee",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRegister_HookFailure_Propagates(t *testing.T) {
	us := &mockUserStore{}
	bus := &mockBus{}
	us.On("GetByEmail", mock.Anything, "ann@b.com").Return(nil, domain.ErrNotFound)
	us.On("Put", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newService(us, nil, bus)
	_, err := svc.Register(context.Background(), domain.CreateUserRequest{
		Email:     "ann@b.com",
		Password:  "secret123",
		FirstName: "Ann",
		LastName:  "Lee",
	})

	require.Error(t, err)
	us.AssertCalled(t, "Put", mock.Anything, mock.Anything)
}

// --- Update ---

func TestUpdate_SplitsUserAndProfileFields(t *testing.T) {
	us := &mockUserStore{}
	ps := &mockProfileStore{}
	us.On("Update", mock.Anything, "u1", map[string]interface{}{"first_name": "New"}).Return(nil)
	ps.On("Update", mock.Anything, "u1", map[string]interface{}{"biography": "bio"}).Return(nil)

	svc := newService(us, ps, nil)
	err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{
		FirstName: strPtr("New"),
		Biography: strPtr("bio"),
	})

	require.NoError(t, err)
	us.AssertExpectations(t)
	ps.AssertExpectations(t)
}

func TestUpdate_NoFields_BadRequest(t *testing.T) {
	svc := newService(nil, nil, nil)
	err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUpdate_ProfileOnly_SkipsUserRow(t *testing.T) {
	us := &mockUserStore{}
	ps := &mockProfileStore{}
	ps.On("Update", mock.Anything, "u1", map[string]interface{}{"avatar": "pic.png"}).Return(nil)

	svc := newService(us, ps, nil)
	err := svc.Update(context.Background(), "u1", domain.UpdateUserRequest{Avatar: strPtr("pic.png")})

	require.NoError(t, err)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// --- Follow ---

func TestFollow_Self_BadRequest(t *testing.T) {
	svc := newService(nil, nil, nil)
	err := svc.Follow(context.Background(), "u1", "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestFollow_UnknownTarget(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u2").Return(nil, domain.ErrNotFound)

	svc := newService(us, nil, nil)
	err := svc.Follow(context.Background(), "u2", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFollow_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	ps := &mockProfileStore{}
	us.On("Get", mock.Anything, "u2").Return(&domain.User{UserID: "u2"}, nil)
	ps.On("AddFollower", mock.Anything, "u2", "u1").Return(nil)

	svc := newService(us, ps, nil)
	err := svc.Follow(context.Background(), "u2", "u1")

	require.NoError(t, err)
	ps.AssertExpectations(t)
}

// --- ChangePassword ---

func TestChangePassword_SamePassword_BadRequest(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	svc := newService(us, nil, nil)
	err := svc.ChangePassword(context.Background(), "u1", "same", "same")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	require.NoError(t, err)
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: string(hash)}, nil)

	svc := newService(us, nil, nil)
	err = svc.ChangePassword(context.Background(), "u1", "wrong", "newpass123")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestChangePassword_HappyPath(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("oldpass123"), bcrypt.MinCost)
	require.NoError(t, err)
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", PasswordHash: string(hash)}, nil)
	us.On("Update", mock.Anything, "u1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		h, ok := updates["password_hash"].(string)
		return ok && bcrypt.CompareHashAndPassword([]byte(h), []byte("newpass123")) == nil
	})).Return(nil)

	svc := newService(us, nil, nil)
	err = svc.ChangePassword(context.Background(), "u1", "oldpass123", "newpass123")

	require.NoError(t, err)
	us.AssertExpectations(t)
}

// --- List ---

func TestList_DefaultsLimit(t *testing.T) {
	us := &mockUserStore{}
	us.On("ScanPage", mock.Anything, int32(50), "").Return([]domain.User{{UserID: "u1"}}, "next", nil)

	svc := newService(us, nil, nil)
	users, cursor, err := svc.List(context.Background(), 0, "")

	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, "next", cursor)
}

// --- Search ---

func TestSearchByEmail_LowercasesQuery(t *testing.T) {
	us := &mockUserStore{}
	us.On("SearchByAttr", mock.Anything, "email", "ann").Return([]domain.User{{UserID: "u1"}}, nil)

	svc := newService(us, nil, nil)
	found, err := svc.SearchByEmail(context.Background(), "ANN")

	require.NoError(t, err)
	assert.Len(t, found, 1)
	us.AssertExpectations(t)
}
