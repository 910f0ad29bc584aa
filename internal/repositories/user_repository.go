package repositories

import "projectwatch/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Get(id uint) (*models.User, error)
	GetAll() ([]models.User, error)
	Create(user *models.User) (*models.User, error)
	Update(id uint, patch models.UserPatch) (*models.User, error)
	Delete(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	ExistsByUsername(username string) (bool, error)
}
