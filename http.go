package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RouteAuthenticator owns the cookie side of the session transport
type RouteAuthenticator struct {
	cfg    Config
	now    Clock
	Logger Logger
}

func NewHTTPAuthenticator(cfg Config) *RouteAuthenticator {
	return &RouteAuthenticator{
		cfg:    cfg.WithDefaults(),
		now:    time.Now,
		Logger: defLogger{},
	}
}

// Config returns the resolved configuration
func (a *RouteAuthenticator) Config() Config {
	return a.cfg
}

// SetSessionCookies writes the access, refresh and CSRF cookies for res.
// The CSRF cookie stays readable by page scripts and lives as long as the
// refresh credential.
func (a *RouteAuthenticator) SetSessionCookies(c *fiber.Ctx, res *AuthResult) {
	if res == nil {
		return
	}

	a.setCookie(c, a.cfg.AccessCookieName, res.Tokens.AccessToken, res.Tokens.AccessExpiresAt, true)
	a.setCookie(c, a.cfg.RefreshCookieName, res.Tokens.RefreshToken, res.Tokens.RefreshExpiresAt, true)
	a.setCookie(c, a.cfg.CSRFCookieName, res.CSRFToken, res.Tokens.RefreshExpiresAt, false)
}

// ClearSessionCookies expires all three session cookies
func (a *RouteAuthenticator) ClearSessionCookies(c *fiber.Ctx) {
	a.cookieDel(c, a.cfg.AccessCookieName, true)
	a.cookieDel(c, a.cfg.RefreshCookieName, true)
	a.cookieDel(c, a.cfg.CSRFCookieName, false)
}

// RefreshToken returns the refresh credential carried by the request cookie
func (a *RouteAuthenticator) RefreshToken(c *fiber.Ctx) string {
	return c.Cookies(a.cfg.RefreshCookieName)
}

func (a *RouteAuthenticator) setCookie(c *fiber.Ctx, name, val string, expires time.Time, httpOnly bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    val,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: httpOnly,
		Secure:   a.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (a *RouteAuthenticator) cookieDel(c *fiber.Ctx, name string, httpOnly bool) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  a.now().Add(-time.Hour * (24 * 365)),
		MaxAge:   -1,
		HTTPOnly: httpOnly,
		Secure:   a.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message  string         `json:"message"`
	TextCode string         `json:"text_code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewErrorHandler returns a fiber.ErrorHandler that renders rich errors as
// JSON. Anything that is not already a rich error is reported as a server
// failure without its detail.
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var richErr *errors.Error
		if !errors.As(err, &richErr) {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(ErrorResponse{
					Error: ErrorDetail{Message: fiberErr.Message},
				})
			}
			richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := HTTPStatus(richErr)

		detail := ErrorDetail{
			Message:  richErr.Message,
			TextCode: richErr.TextCode,
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error(
				"request failed",
				"path", c.Path(),
				"error", err,
				"details", print.MaybePrettyJSON(richErr.Metadata),
			)
			detail = ErrorDetail{Message: "Internal server error", TextCode: richErr.TextCode}
		} else {
			logger.Debug(
				"request rejected",
				"path", c.Path(),
				"category", richErr.Category,
				"text_code", richErr.TextCode,
			)
			if richErr.Category == errors.CategoryValidation {
				detail.Metadata = richErr.Metadata
			}
		}

		return c.Status(status).JSON(ErrorResponse{Error: detail})
	}
}
