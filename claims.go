package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind tags a credential as access or refresh
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Valid reports whether k is one of the known kinds
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// AdminClaims is the signed payload of both credential kinds. Email is only
// set on access tokens.
type AdminClaims struct {
	jwt.RegisteredClaims
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	UserRole  string    `json:"role,omitempty"`
	TokenType TokenKind `json:"tokenType"`
}

// UserID returns the subject
func (c *AdminClaims) UserID() string {
	return c.RegisteredClaims.Subject
}

// Role returns the role claim
func (c *AdminClaims) Role() string {
	return c.UserRole
}

// Kind returns the kind tag
func (c *AdminClaims) Kind() TokenKind {
	return c.TokenType
}

// HasRole checks for an exact role match
func (c *AdminClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// Expires returns the expiration time
func (c *AdminClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AdminClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Profile is the identity view handed to downstream handlers
func (c *AdminClaims) Profile() AdminProfile {
	return AdminProfile{
		ID:       c.UserID(),
		Username: c.Username,
		Email:    c.Email,
		Role:     c.UserRole,
	}
}
