package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl signs and verifies access and refresh credentials with
// independent secrets and TTLs
type TokenServiceImpl struct {
	access  tokenPolicy
	refresh tokenPolicy
	issuer  string
	now     Clock
	logger  Logger
}

type tokenPolicy struct {
	secret []byte
	ttl    time.Duration
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceOption customizes a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenClock overrides the clock used for iat and exp
func WithTokenClock(now Clock) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService from cfg
func NewTokenService(cfg Config, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	cfg = cfg.WithDefaults()

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required", errors.CategoryBadInput)
	}

	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive", errors.CategoryBadInput)
	}

	ts := &TokenServiceImpl{
		access:  tokenPolicy{secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
		refresh: tokenPolicy{secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		issuer:  cfg.Issuer,
		now:     time.Now,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// Issue mints a credential of the given kind for account. The returned expiry
// is read back from the signed exp claim.
func (ts *TokenServiceImpl) Issue(kind TokenKind, account *AdminAccount) (string, time.Time, error) {
	if account == nil {
		return "", time.Time{}, errors.New("account is required", errors.CategoryBadInput)
	}

	policy, err := ts.policy(kind)
	if err != nil {
		return "", time.Time{}, err
	}

	now := ts.now()
	claims := &AdminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   account.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(policy.ttl)),
		},
		Username:  account.Username,
		UserRole:  account.Role,
		TokenType: kind,
	}

	if kind == TokenKindAccess {
		claims.Email = account.Email
	}

	ensureTokenID(&claims.RegisteredClaims)

	signed, err := ts.SignClaims(kind, claims)
	if err != nil {
		return "", time.Time{}, err
	}

	expires, err := signedExpiry(signed)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expires, nil
}

// signedExpiry decodes the exp claim of a token this service just signed
func signedExpiry(signed string) (time.Time, error) {
	decoded := &AdminClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(signed, decoded); err != nil {
		return time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to decode signed token")
	}
	if decoded.ExpiresAt == nil {
		return time.Time{}, errors.New("signed token has no exp claim", errors.CategoryInternal)
	}
	return decoded.ExpiresAt.Time, nil
}

// SignClaims signs claims with the secret belonging to kind
func (ts *TokenServiceImpl) SignClaims(kind TokenKind, claims *AdminClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	policy, err := ts.policy(kind)
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(policy.secret)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify parses and validates token against the secret of kind. The kind tag
// in the payload must match kind even when both secrets are equal.
func (ts *TokenServiceImpl) Verify(kind TokenKind, tokenString string) (*AdminClaims, error) {
	policy, err := ts.policy(kind)
	if err != nil {
		return nil, err
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token verify encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return policy.secret, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(errors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	if claims.TokenType != kind {
		ts.logger.Debug("token kind mismatch", "expected", string(kind), "got", string(claims.TokenType))
		return nil, ErrTokenKindMismatch
	}

	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// AccessValidator adapts the service to the access guard
func (ts *TokenServiceImpl) AccessValidator() TokenValidator {
	return KindValidator(ts, TokenKindAccess)
}

// TTL returns the configured lifetime for kind
func (ts *TokenServiceImpl) TTL(kind TokenKind) time.Duration {
	policy, err := ts.policy(kind)
	if err != nil {
		return 0
	}
	return policy.ttl
}

func (ts *TokenServiceImpl) policy(kind TokenKind) (tokenPolicy, error) {
	switch kind {
	case TokenKindAccess:
		return ts.access, nil
	case TokenKindRefresh:
		return ts.refresh, nil
	}
	return tokenPolicy{}, errors.New(fmt.Sprintf("unknown token kind %q", kind), errors.CategoryBadInput)
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
