//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race builds run the session tests many times over
	return bcrypt.MinCost
}
