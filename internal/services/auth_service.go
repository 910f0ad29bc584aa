package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"projectwatch/internal/apperror"
	"projectwatch/internal/models"
	"projectwatch/internal/repositories"
)

// DefaultTokenTTL is how long an access token is valid unless configured otherwise.
const DefaultTokenTTL = 30 * time.Minute

// TokenType is the scheme clients present tokens under.
const TokenType = "bearer"

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInvalidToken       = "Could not validate credentials"
)

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	users  repositories.UserRepository
	hasher PasswordHasher
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService creates a new AuthService signing HS256 tokens with secret.
// A non-positive ttl means DefaultTokenTTL.
func NewAuthService(users repositories.UserRepository, hasher PasswordHasher, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		users:  users,
		hasher: hasher,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source used to issue and check tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Authenticate returns the user whose password matches. Unknown usernames and
// wrong passwords fail identically.
func (s *AuthService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.hasher.Compare("", password)
		log.WithField("username", username).Info("Login attempt for unknown user")
		return nil, apperror.Unauthorized(msgInvalidCredentials, nil)
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		log.WithField("username", username).Info("Login attempt with wrong password")
		return nil, apperror.Unauthorized(msgInvalidCredentials, nil)
	}
	return user, nil
}

// IssueToken signs a token for subject valid for ttl, or the service's TTL
// when ttl is not positive.
func (s *AuthService) IssueToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// Login authenticates the credentials and issues a bearer token for the user.
func (s *AuthService) Login(username, password string) (*models.TokenResponse, error) {
	user, err := s.Authenticate(username, password)
	if err != nil {
		return nil, err
	}
	token, err := s.IssueToken(user.Username, 0)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{AccessToken: token, TokenType: TokenType}, nil
}

// ResolveCurrentUser verifies token and returns the user named by its subject.
func (s *AuthService) ResolveCurrentUser(tokenString string) (*models.User, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		log.WithError(err).Debug("Token validation failed")
		return nil, apperror.Unauthorized(msgInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, apperror.Unauthorized(msgInvalidToken, errors.New("token has no subject"))
	}

	user, err := s.users.GetByUsername(claims.Subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidToken, err)
		}
		return nil, err
	}
	return user, nil
}
