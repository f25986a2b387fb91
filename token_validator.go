package auth

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (*AdminClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (*AdminClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (*AdminClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// KindValidator binds a verifier to one token kind.
func KindValidator(verifier TokenVerifier, kind TokenKind) TokenValidator {
	return TokenValidatorFunc(func(tokenString string) (*AdminClaims, error) {
		if verifier == nil {
			return nil, ErrTokenMalformed
		}
		return verifier.Verify(kind, tokenString)
	})
}
