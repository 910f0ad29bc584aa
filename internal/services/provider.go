package services

import (
	"time"

	"gorm.io/gorm"

	"projectwatch/internal/repositories"
)

// Provider holds the process-wide collaborators services need and builds
// services bound to one request's database session.
type Provider struct {
	hasher PasswordHasher
	events EventPublisher
	jwtKey string
	ttl    time.Duration
}

// NewProvider creates a Provider. A nil publisher disables events.
func NewProvider(hasher PasswordHasher, events EventPublisher, jwtKey string, ttl time.Duration) *Provider {
	if events == nil {
		events = NoopPublisher{}
	}
	return &Provider{hasher: hasher, events: events, jwtKey: jwtKey, ttl: ttl}
}

// Users returns a UserService over db.
func (p *Provider) Users(db *gorm.DB) *UserService {
	return NewUserService(repositories.NewGORMUserRepository(db), p.hasher, p.events)
}

// Auth returns an AuthService over db.
func (p *Provider) Auth(db *gorm.DB) *AuthService {
	return NewAuthService(repositories.NewGORMUserRepository(db), p.hasher, p.jwtKey, p.ttl)
}
