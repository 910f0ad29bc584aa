package handlers

import (
	"net/url"

	"projectwatch/internal/apperror"
	"projectwatch/internal/database"
	"projectwatch/internal/middleware"
	"projectwatch/internal/models"
	"projectwatch/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for user CRUD.
type UserHandler struct {
	registry *database.Registry
	provider *services.Provider
	validate *Validator
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(registry *database.Registry, provider *services.Provider) *UserHandler {
	return &UserHandler{
		registry: registry,
		provider: provider,
		validate: NewValidator(),
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/user", middleware.Session(h.registry))
	userRoutes.Post("/create", h.HandleCreateUser)
	userRoutes.Get("/read", h.HandleListUsers)
	userRoutes.Get("/read/:id", h.HandleGetUser)
	userRoutes.Get("/user/read/:name", h.HandleGetUserByName)
	userRoutes.Put("/update/:id", h.HandleUpdateUser)
	userRoutes.Delete("/delete/:id", h.HandleDeleteUser)
}

func (h *UserHandler) users(c *fiber.Ctx) (*services.UserService, error) {
	db, err := sessionDB(c)
	if err != nil {
		return nil, err
	}
	return h.provider.Users(db), nil
}

// HandleCreateUser creates a user the same way registration does.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req models.UserCreate
	if err := h.validate.parseBody(c, &req); err != nil {
		return err
	}
	users, err := h.users(c)
	if err != nil {
		return err
	}
	user, err := users.RegisterUser(req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.NewUserResponse(user))
}

// HandleListUsers returns every user.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.users(c)
	if err != nil {
		return err
	}
	list, err := users.ListUsers()
	if err != nil {
		return err
	}
	resp := make([]*models.UserResponse, 0, len(list))
	for i := range list {
		resp = append(resp, models.NewUserResponse(&list[i]))
	}
	return c.JSON(resp)
}

// HandleGetUser returns one user by ID.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	users, err := h.users(c)
	if err != nil {
		return err
	}
	user, err := users.GetUser(id)
	if err != nil {
		return err
	}
	return c.JSON(models.NewUserResponse(user))
}

// HandleGetUserByName returns one user by exact username.
func (h *UserHandler) HandleGetUserByName(c *fiber.Ctx) error {
	users, err := h.users(c)
	if err != nil {
		return err
	}
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil {
		return apperror.Validation("username", "encoding", "Field 'username' is not a valid path segment")
	}
	user, err := users.FindByUsername(name)
	if err != nil {
		return err
	}
	return c.JSON(models.NewUserResponse(user))
}

// HandleUpdateUser applies a partial update.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req models.UserUpdate
	if err := h.validate.parseBody(c, &req); err != nil {
		return err
	}
	users, err := h.users(c)
	if err != nil {
		return err
	}
	user, err := users.UpdateUser(id, req)
	if err != nil {
		return err
	}
	return c.JSON(models.NewUserResponse(user))
}

// HandleDeleteUser removes a user and its profile.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	users, err := h.users(c)
	if err != nil {
		return err
	}
	if _, err := users.DeleteUser(id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
