package models

import "time"

// UserCreate is the registration / creation payload.
type UserCreate struct {
	Username  string  `json:"username" validate:"required,min=1,max=50"`
	Password  string  `json:"password" validate:"required,password"`
	FirstName *string `json:"first_name" validate:"omitnil,max=50"`
	LastName  *string `json:"last_name" validate:"omitnil,max=50"`
}

// UserUpdate is a partial update payload; omitted fields are left unchanged.
type UserUpdate struct {
	Username  *string `json:"username" validate:"omitnil,min=1,max=50"`
	Password  *string `json:"password" validate:"omitnil,password"`
	IsActive  *bool   `json:"is_active"`
	FirstName *string `json:"first_name" validate:"omitnil,max=50"`
	LastName  *string `json:"last_name" validate:"omitnil,max=50"`
}

// ProfileResponse is the nested profile view.
type ProfileResponse struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// UserResponse is what the API returns for a user. It deliberately has no
// password hash field.
type UserResponse struct {
	ID        uint             `json:"user_id"`
	Username  string           `json:"username"`
	IsActive  bool             `json:"is_active"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Profile   *ProfileResponse `json:"profile"`
}

// NewUserResponse shapes a stored user for output. Profile is nil when the
// user has none.
func NewUserResponse(u *User) *UserResponse {
	resp := &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Profile != nil {
		resp.Profile = &ProfileResponse{
			FirstName: u.Profile.FirstName,
			LastName:  u.Profile.LastName,
		}
	}
	return resp
}

// LoginRequest carries OAuth2 password-form credentials (form or JSON).
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
