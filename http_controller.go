package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-admin-auth/middleware/csrf"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

type AuthControllerRoutes struct {
	Signup  string
	Login   string
	Refresh string
	Logout  string
	Me      string
}

// SessionResponse is the body returned by signup, login and refresh
type SessionResponse struct {
	Success   bool         `json:"success"`
	User      AdminProfile `json:"user"`
	CSRFToken string       `json:"csrfToken,omitempty"`
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Sessions Sessions
	Cookies  *RouteAuthenticator
	Routes   *AuthControllerRoutes
	// Limiter guards the endpoints that accept credentials
	Limiter fiber.Handler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

func WithCredentialLimiter(limiter fiber.Handler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Limiter = limiter
		return a
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func NewAuthController(sessions Sessions, cookies *RouteAuthenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Sessions: sessions,
		Cookies:  cookies,
		Routes: &AuthControllerRoutes{
			Signup:  "/admin/auth/signup",
			Login:   "/admin/auth/login",
			Refresh: "/admin/auth/refresh",
			Logout:  "/admin/auth/logout",
			Me:      "/admin/auth/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing Sessions in auth controller...")
	}

	if c.Cookies == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

// PublicRoutes lists the controller routes the access guard must let through.
// Refresh and logout are public for credentials but still run the CSRF check.
func (a *AuthController) PublicRoutes() *RouteTable {
	return NewRouteTable().
		Public(fiber.MethodPost, a.Routes.Signup).
		Public(fiber.MethodPost, a.Routes.Login).
		Public(fiber.MethodPost, a.Routes.Refresh).
		Public(fiber.MethodPost, a.Routes.Logout)
}

// RegisterRoutes mounts the session endpoints. The access guard is expected
// to be installed ahead of them with PublicRoutes merged into its table.
func (a *AuthController) RegisterRoutes(app fiber.Router) {
	cfg := a.Cookies.Config()
	csrfGuard := csrf.New(csrf.Config{
		CookieName: cfg.CSRFCookieName,
		HeaderName: cfg.CSRFHeaderName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			a.Logger.Info("csrf check failed", "path", c.Path(), "error", err)
			return ErrForbidden
		},
	})

	limit := a.Limiter
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Post(a.Routes.Signup, limit, a.Signup)
	app.Post(a.Routes.Login, limit, a.Login)
	app.Post(a.Routes.Refresh, limit, csrfGuard, a.Refresh)
	app.Post(a.Routes.Logout, csrfGuard, a.Logout)
	app.Get(a.Routes.Me, a.Me)
}

func (a *AuthController) Signup(c *fiber.Ctx) error {
	payload := new(SignupInput)
	if err := c.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	res, err := a.Sessions.Signup(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("signup", "user", print.MaybePrettyJSON(res.User))
	}

	a.Cookies.SetSessionCookies(c, res)

	return c.Status(fiber.StatusCreated).JSON(SessionResponse{
		Success:   true,
		User:      res.User,
		CSRFToken: res.CSRFToken,
	})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginInput)
	if err := c.BodyParser(payload); err != nil {
		return badPayload(err)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	res, err := a.Sessions.Login(c.UserContext(), payload.GetIdentifier(), payload.Password)
	if err != nil {
		return err
	}

	a.Cookies.SetSessionCookies(c, res)

	return c.JSON(SessionResponse{
		Success:   true,
		User:      res.User,
		CSRFToken: res.CSRFToken,
	})
}

func (a *AuthController) Refresh(c *fiber.Ctx) error {
	token := a.Cookies.RefreshToken(c)
	if token == "" {
		return ErrMissingRefreshToken
	}

	res, err := a.Sessions.Refresh(c.UserContext(), token)
	if err != nil {
		return err
	}

	a.Cookies.SetSessionCookies(c, res)

	return c.JSON(SessionResponse{
		Success:   true,
		User:      res.User,
		CSRFToken: res.CSRFToken,
	})
}

// Logout always succeeds and always clears the cookies
func (a *AuthController) Logout(c *fiber.Ctx) error {
	a.Sessions.Logout(c.UserContext(), a.Cookies.RefreshToken(c))
	a.Cookies.ClearSessionCookies(c)
	return c.JSON(fiber.Map{"success": true})
}

func (a *AuthController) Me(c *fiber.Ctx) error {
	claims, ok := ClaimsFromFiber(c)
	if !ok {
		return ErrUnauthorized
	}

	return c.JSON(SessionResponse{
		Success: true,
		User:    claims.Profile(),
	})
}

func badPayload(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "Malformed request body").
		WithCode(errors.CodeBadRequest)
}
