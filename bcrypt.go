package auth

import (
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements Hasher with a tunable work factor
type BcryptHasher struct {
	cost int
}

var _ Hasher = BcryptHasher{}

// NewBcryptHasher returns a hasher using cost, or the build default when
// cost is outside the bcrypt range
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return BcryptHasher{cost: cost}
}

// Cost returns the configured work factor
func (h BcryptHasher) Cost() int {
	if h.cost == 0 {
		return passwordHashCost()
	}
	return h.cost
}

// Hash generates a salted digest, two calls never return the same string
func (h BcryptHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}

	d, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost())
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", errors.Wrap(err, errors.CategoryValidation, "secret is too long").
			WithCode(errors.CodeBadRequest)
	}
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash secret")
	}
	return string(d), nil
}

// Verify reports whether secret matches digest. Malformed digests return false.
func (h BcryptHasher) Verify(secret, digest string) bool {
	return ComparePasswordAndHash(secret, digest) == nil
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return BcryptHasher{}.Hash(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if hash == "" {
		return ErrMismatchedHashAndPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
