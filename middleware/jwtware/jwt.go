package jwtware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-admin-auth"
	"github.com/goliatone/go-admin-auth/middleware/csrf"
	"github.com/goliatone/go-errors"
)

var (
	defaultTokenLookup = "header:" + fiber.HeaderAuthorization + ",cookie:" + auth.DefaultAccessCookieName

	// ErrJWTMissingOrMalformed is returned when no extractor yields a token
	ErrJWTMissingOrMalformed = errors.New("Missing access token", errors.CategoryAuth).
		WithTextCode(auth.TextCodeUnauthorized).
		WithCode(errors.CodeUnauthorized)

	// ErrInvalidToken is the uniform failure for any token that does not verify
	ErrInvalidToken = errors.New("Invalid or expired token", errors.CategoryAuth).
		WithTextCode(auth.TextCodeUnauthorized).
		WithCode(errors.CodeUnauthorized)
)

// ValidationListener is invoked after a token has been validated and before
// the CSRF check.
type ValidationListener func(c *fiber.Ctx, claims *auth.AdminClaims) error

type Config struct {
	// Filter skips the guard entirely when it returns true
	Filter func(*fiber.Ctx) bool

	// Routes declares which routes are public. Anything not listed is
	// protected.
	Routes *auth.RouteTable

	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler

	// ContextKey also exposes the claims through c.Locals
	ContextKey string

	// TokenLookup is a comma separated list of source:name pairs tried in
	// order, e.g. "header:Authorization,cookie:admin_access_token"
	TokenLookup string
	AuthScheme  string

	// TokenValidator must only accept access credentials
	TokenValidator auth.TokenValidator

	// CSRF configures the double submit check run on mutating methods
	CSRF csrf.Config

	// SessionCookies are the auth cookies whose presence makes a bearer
	// request subject to the CSRF check
	SessionCookies []string

	ValidationListeners []ValidationListener

	Logger auth.Logger
}

// New returns the access guard. Public routes pass through. Other routes need
// an access credential, from the Authorization header first and then the
// cookie, and mutating methods also need a matching CSRF header. A request
// that authenticated by header and carries no session cookie is exempt from
// the CSRF check.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		if cfg.Routes.IsPublic(c.Method(), c.Path()) {
			return c.Next()
		}

		raw, source, err := ExtractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, ErrJWTMissingOrMalformed)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			cfg.Logger.Debug("access token rejected", "path", c.Path(), "source", source, "error", err)
			return cfg.ErrorHandler(c, ErrInvalidToken)
		}

		if err := cfg.runValidationListeners(c, claims); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if !cfg.CSRF.IsSafeMethod(c.Method()) && cfg.requiresCSRF(c, source) {
			if err := cfg.CSRF.Validate(c); err != nil {
				cfg.Logger.Info("csrf check failed", "path", c.Path(), "user_id", claims.UserID(), "error", err)
				return cfg.ErrorHandler(c, auth.ErrForbidden)
			}
		}

		c.Locals(cfg.ContextKey, claims)
		c.SetUserContext(auth.WithClaimsContext(c.UserContext(), claims))

		return cfg.SuccessHandler(c)
	}
}

func (cfg Config) requiresCSRF(c *fiber.Ctx, source string) bool {
	if source != SourceHeader {
		return true
	}
	for _, name := range cfg.SessionCookies {
		if c.Cookies(name) != "" {
			return true
		}
	}
	return false
}

func (cfg Config) runValidationListeners(c *fiber.Ctx, claims *auth.AdminClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, claims); err != nil {
			return err
		}
	}
	return nil
}

func (cfg Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.Routes == nil {
		cfg.Routes = auth.NewRouteTable()
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "admin"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	cfg.CSRF = csrf.Default(cfg.CSRF)

	if cfg.SessionCookies == nil {
		cfg.SessionCookies = []string{auth.DefaultAccessCookieName, auth.DefaultRefreshCookieName}
	}

	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	return cfg
}

// ForwardError hands guard failures to the application error handler
func ForwardError(_ *fiber.Ctx, err error) error {
	return err
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	message := ErrInvalidToken.Message
	textCode := ErrInvalidToken.TextCode
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		message = richErr.Message
		textCode = richErr.TextCode
	}
	return c.Status(auth.HTTPStatus(err)).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"message":   message,
			"text_code": textCode,
		},
	})
}

const (
	SourceHeader = "header"
	SourceCookie = "cookie"
	SourceQuery  = "query"
)

// JWTExtractor pulls a raw token out of the request
type JWTExtractor struct {
	Source  string
	Extract func(c *fiber.Ctx) (string, error)
}

// ExtractRawToken runs extractors in order and returns the first token found
// together with the source it came from
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, string, error) {
	for _, extractor := range extractors {
		raw, err := extractor.Extract(c)
		if raw != "" && err == nil {
			return raw, extractor.Source, nil
		}
	}
	return "", "", ErrJWTMissingOrMalformed
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:admin_access_token,query:auth_token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case SourceHeader:
			extractors = append(extractors, JWTExtractor{Source: SourceHeader, Extract: jwtFromHeader(parts[1], authScheme)})
		case SourceQuery:
			extractors = append(extractors, JWTExtractor{Source: SourceQuery, Extract: jwtFromQuery(parts[1])})
		case SourceCookie:
			extractors = append(extractors, JWTExtractor{Source: SourceCookie, Extract: jwtFromCookie(parts[1])})
		}
	}

	return extractors
}

// jwtFromHeader returns a function that extracts token from the request header.
// The scheme is matched case insensitively.
func jwtFromHeader(header string, authScheme string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) func(c *fiber.Ctx) (string, error) {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
