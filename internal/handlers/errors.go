package handlers

import (
	"errors"

	"projectwatch/internal/apperror"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Kind {
	case apperror.ErrNotFound:
		return fiber.StatusNotFound
	case apperror.ErrConflict:
		return fiber.StatusConflict
	case apperror.ErrValidation:
		return fiber.StatusBadRequest
	case apperror.ErrUnauthorized:
		return fiber.StatusUnauthorized
	case apperror.ErrNotInitialized:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the Fiber error handler. Internal failures are logged in
// full and reported to the client with a generic message only.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
	}

	status := StatusFor(err)
	fields := log.Fields{
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     status,
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	}
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(fields).Error("Request failed")
	} else {
		log.WithError(err).WithFields(fields).Debug("Request rejected")
	}

	body := fiber.Map{"message": apperror.PublicMessage(err)}
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind == apperror.ErrValidation {
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		if appErr.Rule != "" {
			body["rule"] = appErr.Rule
		}
	}
	if status == fiber.StatusUnauthorized {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	return c.Status(status).JSON(body)
}
