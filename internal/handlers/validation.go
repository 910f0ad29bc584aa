package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"projectwatch/internal/apperror"
	"projectwatch/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Validator checks request payloads and reports the first failure as an
// apperror validation error.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that knows the "password" rule and names
// fields by their JSON keys.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return models.CheckPassword(fl.Field().String()) == nil
	})
	return &Validator{validate: v}
}

// Struct validates s.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperror.Validation("", "invalid", "Invalid request body")
	}

	fe := verrs[0]
	if fe.Tag() == "password" {
		if perr := models.CheckPassword(stringValue(fe.Value())); perr != nil {
			return perr
		}
	}
	return apperror.Validation(fe.Field(), fe.Tag(), message(fe))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s characters long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case *string:
		if s != nil {
			return *s
		}
	}
	return ""
}

// parseBody decodes the request body into out and validates it.
func (v *Validator) parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("", "body", "Invalid request body")
	}
	return v.Struct(out)
}

// userID reads the ":id" route parameter.
func userID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperror.Validation("user_id", "integer", "User ID must be a positive integer")
	}
	return uint(id), nil
}
