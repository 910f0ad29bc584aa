package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"projectwatch/internal/apperror"

	"github.com/stretchr/testify/assert"
)

func TestError_IsKind(t *testing.T) {
	err := apperror.NotFound("User", 7)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.False(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "User with ID 7 not found", err.Error())

	wrapped := fmt.Errorf("loading profile: %w", err)
	assert.True(t, errors.Is(wrapped, apperror.ErrNotFound))
	assert.True(t, apperror.Is(wrapped, apperror.ErrNotFound))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:3306: connection refused")
	err := apperror.StoreUnavailable("get", cause)

	assert.True(t, errors.Is(err, apperror.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPublicMessage(t *testing.T) {
	cause := errors.New("Error 1054: Unknown column 'secret' in 'field list'")

	assert.Equal(t, "User with username 'bob' not found", apperror.PublicMessage(apperror.NotFoundBy("User", "username", "bob")))
	assert.Equal(t, "username taken", apperror.PublicMessage(apperror.Conflict("username taken", cause)))
	assert.Equal(t, apperror.InternalMessage, apperror.PublicMessage(apperror.Store("create", cause)))
	assert.Equal(t, apperror.InternalMessage, apperror.PublicMessage(cause))
	assert.Equal(t, "Service temporarily unavailable", apperror.PublicMessage(apperror.NotInitialized()))
	assert.NotContains(t, apperror.PublicMessage(apperror.Store("create", cause)), "1054")
}

func TestValidation_CarriesFieldAndRule(t *testing.T) {
	err := apperror.Validation("password", "digit", "password must contain at least one digit")

	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Equal(t, "password", err.Field)
	assert.Equal(t, "digit", err.Rule)
}
