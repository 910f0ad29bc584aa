package models

import "time"

// User is an account record. The profile row shares the user's primary key
// and is removed by the database when the user is deleted.
type User struct {
	ID           uint         `json:"user_id" gorm:"primaryKey;autoIncrement"`
	Username     string       `json:"username" gorm:"uniqueIndex;size:50;not null"`
	PasswordHash string       `json:"-" gorm:"size:255;not null"` // never serialized
	IsActive     bool         `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	Profile      *UserProfile `json:"profile,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string { return "users" }

// PrimaryKey returns the server-assigned identifier.
func (u *User) PrimaryKey() uint { return u.ID }

// UserProfile holds optional personal details, keyed by the owning user's ID.
type UserProfile struct {
	UserID    uint    `json:"-" gorm:"primaryKey;autoIncrement:false"`
	FirstName *string `json:"first_name" gorm:"size:50"`
	LastName  *string `json:"last_name" gorm:"size:50"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// UserPatch is a partial update. Nil fields leave the stored value unchanged.
type UserPatch struct {
	Username     *string
	PasswordHash *string
	IsActive     *bool
	FirstName    *string
	LastName     *string
}

// Apply merges the non-nil fields of p into u. Supplying either name field
// attaches a profile when the user has none.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
	if p.FirstName == nil && p.LastName == nil {
		return
	}
	if u.Profile == nil {
		u.Profile = &UserProfile{UserID: u.ID}
	}
	if p.FirstName != nil {
		u.Profile.FirstName = p.FirstName
	}
	if p.LastName != nil {
		u.Profile.LastName = p.LastName
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.PasswordHash == nil && p.IsActive == nil &&
		p.FirstName == nil && p.LastName == nil
}
