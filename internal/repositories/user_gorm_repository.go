package repositories

import (
	"projectwatch/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository. Users are
// always read together with their profile.
type GORMUserRepository struct {
	store *Store[models.User, *models.User]
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		store: NewStore[models.User](db, "User", "Profile"),
	}
}

// Get retrieves a user by ID.
func (r *GORMUserRepository) Get(id uint) (*models.User, error) {
	return r.store.Get(id)
}

// GetAll retrieves every user ordered by ID.
func (r *GORMUserRepository) GetAll() ([]models.User, error) {
	return r.store.GetAll()
}

// Create inserts a user and its profile.
func (r *GORMUserRepository) Create(user *models.User) (*models.User, error) {
	return r.store.Create(user)
}

// Update applies patch to the user with the given ID.
func (r *GORMUserRepository) Update(id uint, patch models.UserPatch) (*models.User, error) {
	return r.store.Update(id, patch)
}

// Delete removes a user. The profile goes with it.
func (r *GORMUserRepository) Delete(id uint) (*models.User, error) {
	return r.store.Delete(id)
}

// GetByUsername retrieves a user by their username.
func (r *GORMUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.store.FindOne("username", username)
}

func (r *GORMUserRepository) ExistsByUsername(username string) (bool, error) {
	return r.store.Exists("username", username)
}
