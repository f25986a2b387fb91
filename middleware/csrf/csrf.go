package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrTokenMismatch = errors.New("CSRF token mismatch")
	ErrTokenMissing  = errors.New("CSRF token missing")
)

// DefaultTokenLength is the number of random bytes in a token, hex encoded
// on the wire
const DefaultTokenLength = 24

// DefaultCookieName is the script readable cookie carrying the token
const DefaultCookieName = "csrf_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// DefaultSafeMethods never require the double submit check
var DefaultSafeMethods = []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions}

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(*fiber.Ctx) bool

	// CookieName is the cookie holding the expected token
	CookieName string

	// HeaderName defines the header name for the token
	HeaderName string

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// ErrorHandler defines the error handler
	ErrorHandler fiber.ErrorHandler
}

// New creates a double submit CSRF middleware: the cookie value must equal
// the header value and neither may be empty.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		if cfg.IsSafeMethod(c.Method()) {
			return c.Next()
		}

		if err := cfg.Validate(c); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return c.Next()
	}
}

// Validate runs the double submit check against the request
func (cfg Config) Validate(c *fiber.Ctx) error {
	return Check(c.Cookies(cfg.CookieName), c.Get(cfg.HeaderName))
}

// IsSafeMethod reports whether method is exempt
func (cfg Config) IsSafeMethod(method string) bool {
	return slices.Contains(cfg.SafeMethods, strings.ToUpper(method))
}

// Check compares the cookie and header copies in constant time.
func Check(cookieToken, headerToken string) error {
	if cookieToken == "" || headerToken == "" {
		return ErrTokenMissing
	}

	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(headerToken)) != 1 {
		return ErrTokenMismatch
	}

	return nil
}

// GenerateToken returns length random bytes, hex encoded
func GenerateToken(length int) (string, error) {
	if length <= 0 {
		length = DefaultTokenLength
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("csrf: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IsCSRFError reports whether err came from the double submit check
func IsCSRFError(err error) bool {
	return errors.Is(err, ErrTokenMismatch) || errors.Is(err, ErrTokenMissing)
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if len(cfg.SafeMethods) == 0 {
		cfg.SafeMethods = DefaultSafeMethods
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return cfg
}

// Default fills unset fields, for callers that embed the check elsewhere
func Default(config ...Config) Config {
	return configDefault(config...)
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"success": false,
		"error": fiber.Map{
			"message": "Invalid CSRF token",
		},
	})
}
