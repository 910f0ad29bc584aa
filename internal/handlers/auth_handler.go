package handlers

import (
	"projectwatch/internal/apperror"
	"projectwatch/internal/database"
	"projectwatch/internal/middleware"
	"projectwatch/internal/models"
	"projectwatch/internal/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	registry *database.Registry
	provider *services.Provider
	validate *Validator
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(registry *database.Registry, provider *services.Provider) *AuthHandler {
	return &AuthHandler{
		registry: registry,
		provider: provider,
		validate: NewValidator(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth", middleware.Session(h.registry))
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", middleware.AuthRequired(h.provider), h.HandleMe)
}

// sessionDB returns the request's database handle.
func sessionDB(c *fiber.Ctx) (*gorm.DB, error) {
	session := middleware.SessionFrom(c)
	if session == nil {
		return nil, apperror.NotInitialized()
	}
	return session.DB(), nil
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req models.UserCreate
	if err := h.validate.parseBody(c, &req); err != nil {
		return err
	}
	db, err := sessionDB(c)
	if err != nil {
		return err
	}

	user, err := h.provider.Users(db).RegisterUser(req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.NewUserResponse(user))
}

// HandleLogin exchanges form (or JSON) credentials for a bearer token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := h.validate.parseBody(c, &req); err != nil {
		return err
	}
	db, err := sessionDB(c)
	if err != nil {
		return err
	}

	token, err := h.provider.Auth(db).Login(req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(token)
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperror.Unauthorized("Not authenticated", nil)
	}
	return c.JSON(models.NewUserResponse(user))
}
