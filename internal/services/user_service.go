package services

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"projectwatch/internal/apperror"
	"projectwatch/internal/models"
	"projectwatch/internal/repositories"
)

// UserService handles business logic related to users.
type UserService struct {
	repo   repositories.UserRepository
	hasher PasswordHasher
	events EventPublisher
}

// NewUserService creates a new UserService. A nil publisher disables events.
func NewUserService(repo repositories.UserRepository, hasher PasswordHasher, events EventPublisher) *UserService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &UserService{
		repo:   repo,
		hasher: hasher,
		events: events,
	}
}

func usernameTaken(username string) error {
	return apperror.Conflict(fmt.Sprintf("Username '%s' is already registered", username), nil)
}

// RegisterUser creates a user with a hashed password and a profile. Absent
// names are stored as empty strings.
func (s *UserService) RegisterUser(input models.UserCreate) (*models.User, error) {
	exists, err := s.repo.ExistsByUsername(input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, usernameTaken(input.Username)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	firstName, lastName := "", ""
	if input.FirstName != nil {
		firstName = *input.FirstName
	}
	if input.LastName != nil {
		lastName = *input.LastName
	}

	user, err := s.repo.Create(&models.User{
		Username:     input.Username,
		PasswordHash: hash,
		IsActive:     true,
		Profile:      &models.UserProfile{FirstName: &firstName, LastName: &lastName},
	})
	if err != nil {
		if apperror.Is(err, apperror.ErrConflict) {
			return nil, usernameTaken(input.Username)
		}
		return nil, err
	}

	log.WithFields(log.Fields{"user_id": user.ID, "username": user.Username}).Info("User registered")
	publishBestEffort(s.events, newUserEvent(EventUserCreated, user))
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(id uint) (*models.User, error) {
	return s.repo.Get(id)
}

// ListUsers retrieves every user.
func (s *UserService) ListUsers() ([]models.User, error) {
	return s.repo.GetAll()
}

// FindByUsername retrieves a user by exact username.
func (s *UserService) FindByUsername(username string) (*models.User, error) {
	return s.repo.GetByUsername(username)
}

// UpdateUser applies the supplied fields of input and leaves the rest alone.
// A new password is hashed before it is stored.
func (s *UserService) UpdateUser(id uint, input models.UserUpdate) (*models.User, error) {
	patch := models.UserPatch{
		Username:  input.Username,
		IsActive:  input.IsActive,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}
	if patch.IsEmpty() {
		return s.repo.Get(id)
	}

	if input.Username != nil {
		current, err := s.repo.Get(id)
		if err != nil {
			return nil, err
		}
		if current.Username != *input.Username {
			exists, err := s.repo.ExistsByUsername(*input.Username)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, usernameTaken(*input.Username)
			}
		}
	}

	user, err := s.repo.Update(id, patch)
	if err != nil {
		if apperror.Is(err, apperror.ErrConflict) && input.Username != nil {
			return nil, usernameTaken(*input.Username)
		}
		return nil, err
	}
	publishBestEffort(s.events, newUserEvent(EventUserUpdated, user))
	return user, nil
}

// DeleteUser removes a user and its profile, returning what was removed.
func (s *UserService) DeleteUser(id uint) (*models.User, error) {
	user, err := s.repo.Delete(id)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "username": user.Username}).Info("User deleted")
	publishBestEffort(s.events, newUserEvent(EventUserDeleted, user))
	return user, nil
}
