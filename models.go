package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleAdmin is the only privileged role in this service
const RoleAdmin = "admin"

// AdminAccount is the persisted admin identity
type AdminAccount struct {
	bun.BaseModel         `bun:"table:admin_users,alias:adm"`
	ID                    uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	FullName              string     `bun:"full_name,notnull" json:"fullName"`
	Username              string     `bun:"username,notnull,unique" json:"username"`
	Email                 string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash          string     `bun:"password_hash,notnull" json:"-"`
	Role                  string     `bun:"role,notnull" json:"role"`
	IsActive              bool       `bun:"is_active,notnull" json:"isActive"`
	LastLoginAt           *time.Time `bun:"last_login_at" json:"lastLoginAt,omitempty"`
	RefreshTokenHash      *string    `bun:"refresh_token_hash" json:"-"`
	RefreshTokenExpiresAt *time.Time `bun:"refresh_token_expires_at" json:"-"`
	CreatedAt             *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt             *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// AdminProfile is the public view of an account
type AdminProfile struct {
	ID          string     `json:"id"`
	FullName    string     `json:"fullName,omitempty"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Profile strips credential material from the account
func (a *AdminAccount) Profile() AdminProfile {
	return AdminProfile{
		ID:          a.ID.String(),
		FullName:    a.FullName,
		Username:    a.Username,
		Email:       a.Email,
		Role:        a.Role,
		LastLoginAt: a.LastLoginAt,
	}
}

// HasRefreshFingerprint reports whether a refresh credential is live on the record
func (a *AdminAccount) HasRefreshFingerprint() bool {
	return a.RefreshTokenHash != nil && *a.RefreshTokenHash != "" && a.RefreshTokenExpiresAt != nil
}
