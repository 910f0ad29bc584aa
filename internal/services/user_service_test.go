package services_test

import (
	"errors"
	"io"
	"os"
	"testing"

	"projectwatch/internal/apperror"
	"projectwatch/internal/models"
	"projectwatch/internal/services"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) user(args mock.Arguments) (*models.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Get(id uint) (*models.User, error) {
	return m.user(m.Called(id))
}

func (m *MockUserRepository) GetAll() ([]models.User, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Create(user *models.User) (*models.User, error) {
	return m.user(m.Called(user))
}

func (m *MockUserRepository) Update(id uint, patch models.UserPatch) (*models.User, error) {
	return m.user(m.Called(id, patch))
}

func (m *MockUserRepository) Delete(id uint) (*models.User, error) {
	return m.user(m.Called(id))
}

func (m *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	return m.user(m.Called(username))
}

func (m *MockUserRepository) ExistsByUsername(username string) (bool, error) {
	args := m.Called(username)
	return args.Bool(0), args.Error(1)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(event services.UserEvent) error {
	return m.Called(event).Error(0)
}

func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func strPtr(s string) *string { return &s }

var hasher = services.NewBcryptHasher(bcrypt.MinCost)

func eventOfType(eventType string) any {
	return mock.MatchedBy(func(e services.UserEvent) bool { return e.Type == eventType })
}

func TestUserService_RegisterUser(t *testing.T) {
	repo := new(MockUserRepository)
	events := new(MockPublisher)
	service := services.NewUserService(repo, hasher, events)

	repo.On("ExistsByUsername", "alice").Return(false, nil).Once()
	repo.On("Create", mock.MatchedBy(func(u *models.User) bool {
		return u.Username == "alice" &&
			u.IsActive &&
			u.PasswordHash != "" && u.PasswordHash != "Secret123" &&
			hasher.Compare(u.PasswordHash, "Secret123") &&
			u.Profile != nil && *u.Profile.FirstName == "Alice" && *u.Profile.LastName == ""
	})).Return(&models.User{ID: 1, Username: "alice", IsActive: true}, nil).Once()
	events.On("Publish", eventOfType(services.EventUserCreated)).Return(nil).Once()

	user, err := service.RegisterUser(models.UserCreate{Username: "alice", Password: "Secret123", FirstName: strPtr("Alice")})

	require.NoError(t, err)
	assert.Equal(t, uint(1), user.ID)
	repo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestUserService_RegisterUserDuplicate(t *testing.T) {
	repo := new(MockUserRepository)
	service := services.NewUserService(repo, hasher, nil)

	repo.On("ExistsByUsername", "alice").Return(true, nil).Once()

	_, err := service.RegisterUser(models.UserCreate{Username: "alice", Password: "Secret123"})

	require.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "Username 'alice' is already registered", apperror.PublicMessage(err))
	repo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestUserService_RegisterUserRaceHitsConstraint(t *testing.T) {
	repo := new(MockUserRepository)
	service := services.NewUserService(repo, hasher, nil)

	repo.On("ExistsByUsername", "alice").Return(false, nil).Once()
	repo.On("Create", mock.Anything).Return(nil, apperror.Conflict("Resource already exists", nil)).Once()

	_, err := service.RegisterUser(models.UserCreate{Username: "alice", Password: "Secret123"})

	require.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "Username 'alice' is already registered", apperror.PublicMessage(err))
}

func TestUserService_RegisterUserStoreFailure(t *testing.T) {
	repo := new(MockUserRepository)
	service := services.NewUserService(repo, hasher, nil)

	repo.On("ExistsByUsername", "alice").Return(false, apperror.StoreUnavailable("exists", errors.New("connection refused"))).Once()

	_, err := service.RegisterUser(models.UserCreate{Username: "alice", Password: "Secret123"})

	assert.True(t, errors.Is(err, apperror.ErrStoreUnavailable))
}

func TestUserService_PublishFailureDoesNotFailRequest(t *testing.T) {
	repo := new(MockUserRepository)
	events := new(MockPublisher)
	service := services.NewUserService(repo, hasher, events)

	repo.On("Delete", uint(3)).Return(&models.User{ID: 3, Username: "carol"}, nil).Once()
	events.On("Publish", eventOfType(services.EventUserDeleted)).Return(errors.New("broker down")).Once()

	user, err := service.DeleteUser(3)

	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	events.AssertExpectations(t)
}

func TestUserService_UpdateUserOnlyActiveFlag(t *testing.T) {
	repo := new(MockUserRepository)
	events := new(MockPublisher)
	service := services.NewUserService(repo, hasher, events)
	inactive := false

	repo.On("Update", uint(1), models.UserPatch{IsActive: &inactive}).
		Return(&models.User{ID: 1, Username: "alice", IsActive: false}, nil).Once()
	events.On("Publish", eventOfType(services.EventUserUpdated)).Return(nil).Once()

	user, err := service.UpdateUser(1, models.UserUpdate{IsActive: &inactive})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.IsActive)
	repo.AssertExpectations(t)
}

func TestUserService_UpdateUserHashesPassword(t *testing.T) {
	repo := new(MockUserRepository)
	service := services.NewUserService(repo, hasher, nil)

	repo.On("Update", uint(1), mock.MatchedBy(func(p models.UserPatch) bool {
		return p.PasswordHash != nil && hasher.Compare(*p.PasswordHash, "N3wSecret") && p.Username == nil
	})).Return(&models.User{ID: 1, Username: "alice"}, nil).Once()

	_, err := service.UpdateUser(1, models.UserUpdate{Password: strPtr("N3wSecret")})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUserService_UpdateUserRenameToTakenName(t *testing.T) {
	repo := new(MockUserRepository)
	service := services.NewUserService(repo, hasher, nil)

	repo.On("Get", uint(2)).Return(&models.User{ID: 2, Username: "bob"}, nil).Once()
	repo.On("ExistsByUsername", "alice").Return(true, nil).Once()

	_, err := service.UpdateUser(2, models.UserUpdate{Username: strPtr("alice")})

	assert.True(t, errors.Is(err, apperror.ErrConflict))
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_UpdateUserEmptyPatch(t *testing.T) {
	repo := new(MockUserRepository)
	service := services.NewUserService(repo, hasher, nil)

	repo.On("Get", uint(1)).Return(&models.User{ID: 1, Username: "alice"}, nil).Once()

	user, err := service.UpdateUser(1, models.UserUpdate{})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_Lookups(t *testing.T) {
	repo := new(MockUserRepository)
	service := services.NewUserService(repo, hasher, nil)

	repo.On("Get", uint(9)).Return(nil, apperror.NotFound("User", 9)).Once()
	repo.On("GetByUsername", "ghost").Return(nil, apperror.NotFoundBy("User", "username", "ghost")).Once()
	repo.On("GetAll").Return([]models.User{}, nil).Once()

	_, err := service.GetUser(9)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = service.FindByUsername("ghost")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	users, err := service.ListUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
	repo.AssertExpectations(t)
}
