package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// MinPasswordLength is the shortest password signup accepts
const MinPasswordLength = 6

// MaxPasswordBytes is the bcrypt input limit, counted in bytes not runes
const MaxPasswordBytes = 72

// TokenPair is the result of issuing fresh credentials for an account
type TokenPair struct {
	AccessToken      string    `json:"-"`
	RefreshToken     string    `json:"-"`
	AccessExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// AuthResult is returned by signup, login and refresh. CSRFToken is minted
// alongside the pair and expires with the refresh credential.
type AuthResult struct {
	User      AdminProfile `json:"user"`
	Tokens    TokenPair    `json:"tokens"`
	CSRFToken string       `json:"csrfToken"`
}

// SignupInput carries the fields needed to create an admin account
type SignupInput struct {
	FullName string `form:"fullName" json:"fullName"`
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupInput) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 0), maxBytes(MaxPasswordBytes)),
	)
	return validationFailure(err)
}

func maxBytes(limit int) *validation.StringRule {
	return validation.NewStringRule(func(s string) bool {
		return len(s) <= limit
	}, fmt.Sprintf("must be no more than %d bytes", limit))
}

// LoginInput payload. Username and Email are accepted as aliases for
// Identifier.
type LoginInput struct {
	Identifier string `form:"identifier" json:"identifier"`
	Username   string `form:"username" json:"username"`
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginInput) GetIdentifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Username != "":
		return r.Username
	default:
		return r.Email
	}
}

// Validate will run validation rules
func (r LoginInput) Validate() error {
	identifier := r.GetIdentifier()
	err := validation.Errors{
		"identifier": validation.Validate(identifier, validation.Required),
		"password":   validation.Validate(r.Password, validation.Required),
	}.Filter()
	return validationFailure(err)
}

func validationFailure(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]any{}
	if verrs, ok := err.(validation.Errors); ok {
		for name, ferr := range verrs {
			fields[name] = ferr.Error()
		}
	}

	return errors.Wrap(err, errors.CategoryValidation, "Validation failed").
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": fields,
		})
}
