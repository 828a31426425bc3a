package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a platform user within a tenant.
type User struct {
	ID              uuid.UUID `json:"id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	Email           string    `json:"email"`
	Password        string    `json:"-"`
	FullName        string    `json:"full_name"`
	IsSuperAdmin    bool      `json:"is_super_admin"`
	IsTenantManager bool      `json:"is_tenant_manager"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{ID: u.ID, Email: u.Email, FullName: u.FullName}
}
