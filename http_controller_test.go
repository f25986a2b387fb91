package auth_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-admin-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSessions implements auth.Sessions for testing
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Signup(ctx context.Context, input auth.SignupInput) (*auth.AuthResult, error) {
	args := m.Called(ctx, input)
	if res := args.Get(0); res != nil {
		return res.(*auth.AuthResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) Login(ctx context.Context, identifier, password string) (*auth.AuthResult, error) {
	args := m.Called(ctx, identifier, password)
	if res := args.Get(0); res != nil {
		return res.(*auth.AuthResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) Refresh(ctx context.Context, refreshToken string) (*auth.AuthResult, error) {
	args := m.Called(ctx, refreshToken)
	if res := args.Get(0); res != nil {
		return res.(*auth.AuthResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) Logout(ctx context.Context, refreshToken string) {
	m.Called(ctx, refreshToken)
}

func stubResult() *auth.AuthResult {
	now := time.Now()
	return &auth.AuthResult{
		User: auth.AdminProfile{
			ID:       "4b7f3f5e-7a43-4d0e-9a3b-3c1c1f7f0a01",
			FullName: "Alice Admin",
			Username: "alice",
			Email:    "alice@x.com",
			Role:     auth.RoleAdmin,
		},
		Tokens: auth.TokenPair{
			AccessToken:      "access.jwt.value",
			RefreshToken:     "refresh.jwt.value",
			AccessExpiresAt:  now.Add(auth.DefaultAccessTTL),
			RefreshExpiresAt: now.Add(auth.DefaultRefreshTTL),
		},
		CSRFToken: "csrf-value",
	}
}

func newControllerApp(t *testing.T, sessions auth.Sessions) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.NewErrorHandler(silentLogger{}),
	})

	controller := auth.NewAuthController(
		sessions,
		auth.NewHTTPAuthenticator(testConfig()),
		auth.WithControllerLogger(silentLogger{}),
	)
	controller.RegisterRoutes(app)

	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withCSRF(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: auth.DefaultCSRFCookieName, Value: token})
	req.Header.Set(auth.DefaultCSRFHeaderName, token)
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeBody(t, resp)
	detail, ok := body["error"].(map[string]any)
	require.True(t, ok, "error envelope expected: %v", body)
	msg, _ := detail["message"].(string)
	return msg
}

func cookieMap(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestNewAuthController_PanicsWithoutCollaborators(t *testing.T) {
	assert.Panics(t, func() {
		auth.NewAuthController(nil, auth.NewHTTPAuthenticator(testConfig()))
	})
	assert.Panics(t, func() {
		auth.NewAuthController(&MockSessions{}, nil)
	})
}

func TestAuthController_Signup(t *testing.T) {
	sessions := &MockSessions{}
	sessions.On("Signup", mock.Anything, auth.SignupInput{
		FullName: "Alice Admin",
		Username: "alice",
		Email:    "alice@x.com",
		Password: "secret123",
	}).Return(stubResult(), nil)

	app := newControllerApp(t, sessions)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/signup",
		`{"fullName":"Alice Admin","username":"alice","email":"alice@x.com","password":"secret123"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cookies := cookieMap(resp)
	require.Len(t, cookies, 3)
	assert.Equal(t, "access.jwt.value", cookies[auth.DefaultAccessCookieName].Value)
	assert.True(t, cookies[auth.DefaultAccessCookieName].HttpOnly)
	assert.Equal(t, "refresh.jwt.value", cookies[auth.DefaultRefreshCookieName].Value)
	assert.True(t, cookies[auth.DefaultRefreshCookieName].HttpOnly)
	assert.Equal(t, "csrf-value", cookies[auth.DefaultCSRFCookieName].Value)
	assert.False(t, cookies[auth.DefaultCSRFCookieName].HttpOnly)
	for _, c := range cookies {
		assert.Equal(t, "/", c.Path)
	}

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "csrf-value", body["csrfToken"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, body, "tokens")

	sessions.AssertExpectations(t)
}

func TestAuthController_SignupRejectsInvalidPayload(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "short password", body: `{"fullName":"A","username":"a","email":"a@x.com","password":"12345"}`, field: "password"},
		{name: "bad email", body: `{"fullName":"A","username":"a","email":"nope","password":"secret123"}`, field: "email"},
		{name: "missing username", body: `{"fullName":"A","email":"a@x.com","password":"secret123"}`, field: "username"},
		{name: "missing full name", body: `{"username":"a","email":"a@x.com","password":"secret123"}`, field: "fullName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &MockSessions{}
			app := newControllerApp(t, sessions)

			resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/signup", tt.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			body := decodeBody(t, resp)
			detail := body["error"].(map[string]any)
			metadata := detail["metadata"].(map[string]any)
			fields := metadata["fields"].(map[string]any)
			assert.Contains(t, fields, tt.field)

			sessions.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		app := newControllerApp(t, &MockSessions{})
		resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/signup", `{"username":`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthController_SignupConflict(t *testing.T) {
	sessions := &MockSessions{}
	sessions.On("Signup", mock.Anything, mock.Anything).Return(nil, auth.ErrConflict)

	app := newControllerApp(t, sessions)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/signup",
		`{"fullName":"Alice Admin","username":"alice","email":"alice@x.com","password":"secret123"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Empty(t, resp.Cookies())

	body := decodeBody(t, resp)
	detail := body["error"].(map[string]any)
	assert.Equal(t, auth.TextCodeConflict, detail["text_code"])
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		identifier string
	}{
		{name: "identifier", body: `{"identifier":"alice","password":"secret123"}`, identifier: "alice"},
		{name: "username alias", body: `{"username":"alice","password":"secret123"}`, identifier: "alice"},
		{name: "email alias", body: `{"email":"alice@x.com","password":"secret123"}`, identifier: "alice@x.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &MockSessions{}
			sessions.On("Login", mock.Anything, tt.identifier, "secret123").Return(stubResult(), nil)

			app := newControllerApp(t, sessions)

			resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/login", tt.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Len(t, resp.Cookies(), 3)

			sessions.AssertExpectations(t)
		})
	}
}

func TestAuthController_LoginFailures(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		sessions := &MockSessions{}
		sessions.On("Login", mock.Anything, "alice", "wrong").Return(nil, auth.ErrUnauthorized)

		app := newControllerApp(t, sessions)
		resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/login", `{"identifier":"alice","password":"wrong"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", errorMessage(t, resp))
		assert.Empty(t, resp.Cookies())
	})

	t.Run("missing password", func(t *testing.T) {
		app := newControllerApp(t, &MockSessions{})
		resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/login", `{"identifier":"alice"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store failure is masked", func(t *testing.T) {
		sessions := &MockSessions{}
		sessions.On("Login", mock.Anything, "alice", "secret123").
			Return(nil, stderrors.New("dial tcp 10.0.0.5:5432: connection refused"))

		app := newControllerApp(t, sessions)
		resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/login", `{"identifier":"alice","password":"secret123"}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Internal server error", errorMessage(t, resp))
	})
}

func TestAuthController_Refresh(t *testing.T) {
	t.Run("rotates and resets cookies", func(t *testing.T) {
		sessions := &MockSessions{}
		sessions.On("Refresh", mock.Anything, "old.refresh").Return(stubResult(), nil)

		app := newControllerApp(t, sessions)

		req := withCSRF(jsonRequest(http.MethodPost, "/admin/auth/refresh", ""), "csrf-old")
		req.AddCookie(&http.Cookie{Name: auth.DefaultRefreshCookieName, Value: "old.refresh"})

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		cookies := cookieMap(resp)
		assert.Equal(t, "refresh.jwt.value", cookies[auth.DefaultRefreshCookieName].Value)
		assert.Equal(t, "csrf-value", cookies[auth.DefaultCSRFCookieName].Value)
		sessions.AssertExpectations(t)
	})

	t.Run("missing cookie", func(t *testing.T) {
		sessions := &MockSessions{}
		app := newControllerApp(t, sessions)

		resp, err := app.Test(withCSRF(jsonRequest(http.MethodPost, "/admin/auth/refresh", ""), "csrf"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Missing refresh token", errorMessage(t, resp))
		sessions.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("csrf required", func(t *testing.T) {
		sessions := &MockSessions{}
		app := newControllerApp(t, sessions)

		req := jsonRequest(http.MethodPost, "/admin/auth/refresh", "")
		req.AddCookie(&http.Cookie{Name: auth.DefaultRefreshCookieName, Value: "old.refresh"})
		req.AddCookie(&http.Cookie{Name: auth.DefaultCSRFCookieName, Value: "csrf"})

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "Invalid CSRF token", errorMessage(t, resp))
		sessions.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("rejected token", func(t *testing.T) {
		sessions := &MockSessions{}
		sessions.On("Refresh", mock.Anything, "used.refresh").Return(nil, auth.ErrUnauthorized)
		app := newControllerApp(t, sessions)

		req := withCSRF(jsonRequest(http.MethodPost, "/admin/auth/refresh", ""), "csrf")
		req.AddCookie(&http.Cookie{Name: auth.DefaultRefreshCookieName, Value: "used.refresh"})

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthController_Logout(t *testing.T) {
	tests := []struct {
		name    string
		refresh string
	}{
		{name: "with session", refresh: "live.refresh"},
		{name: "without session", refresh: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &MockSessions{}
			sessions.On("Logout", mock.Anything, tt.refresh).Return()
			app := newControllerApp(t, sessions)

			req := withCSRF(jsonRequest(http.MethodPost, "/admin/auth/logout", ""), "csrf")
			if tt.refresh != "" {
				req.AddCookie(&http.Cookie{Name: auth.DefaultRefreshCookieName, Value: tt.refresh})
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, true, decodeBody(t, resp)["success"])

			cookies := cookieMap(resp)
			require.Len(t, cookies, 3)
			for name, c := range cookies {
				assert.Empty(t, c.Value, name)
				assert.True(t, c.Expires.Before(time.Now()), name)
			}

			sessions.AssertExpectations(t)
		})
	}
}

func TestAuthController_MeWithoutGuard(t *testing.T) {
	app := newControllerApp(t, &MockSessions{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthController_CredentialLimiter(t *testing.T) {
	sessions := &MockSessions{}
	sessions.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, auth.ErrUnauthorized)

	calls := 0
	limiter := func(c *fiber.Ctx) error {
		calls++
		if calls > 1 {
			return c.SendStatus(fiber.StatusTooManyRequests)
		}
		return c.Next()
	}

	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(silentLogger{})})
	auth.NewAuthController(sessions, auth.NewHTTPAuthenticator(testConfig()),
		auth.WithControllerLogger(silentLogger{}),
		auth.WithCredentialLimiter(limiter),
	).RegisterRoutes(app)

	body := `{"identifier":"alice","password":"x"}`

	resp, err := app.Test(jsonRequest(http.MethodPost, "/admin/auth/login", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/admin/auth/login", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	sessions.AssertNumberOfCalls(t, "Login", 1)
}

func TestAuthController_PublicRoutes(t *testing.T) {
	controller := auth.NewAuthController(&MockSessions{}, auth.NewHTTPAuthenticator(testConfig()))
	routes := controller.PublicRoutes()

	for _, path := range []string{"/admin/auth/signup", "/admin/auth/login", "/admin/auth/refresh", "/admin/auth/logout"} {
		assert.True(t, routes.IsPublic(http.MethodPost, path), path)
	}
	assert.False(t, routes.IsPublic(http.MethodGet, "/admin/auth/me"))
	assert.False(t, routes.IsPublic(http.MethodGet, "/admin/auth/login"))
}
