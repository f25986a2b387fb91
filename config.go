package auth

import "time"

const (
	DefaultAccessTTL         = 15 * time.Minute
	DefaultRefreshTTL        = 7 * 24 * time.Hour
	DefaultAccessCookieName  = "admin_access_token"
	DefaultRefreshCookieName = "admin_refresh_token"
	DefaultCSRFCookieName    = "csrf_token"
	DefaultCSRFHeaderName    = "X-CSRF-Token"
	DefaultCSRFTokenBytes    = 24
)

// Config holds the explicit auth options. It is built once at process start
// and passed to the constructors that need it.
type Config struct {
	AccessSecret  string        `json:"access_secret"`
	RefreshSecret string        `json:"refresh_secret"`
	AccessTTL     time.Duration `json:"access_ttl"`
	RefreshTTL    time.Duration `json:"refresh_ttl"`
	Issuer        string        `json:"issuer"`
	BcryptCost    int           `json:"bcrypt_cost"`

	CookieSecure      bool   `json:"cookie_secure"`
	AccessCookieName  string `json:"access_cookie_name"`
	RefreshCookieName string `json:"refresh_cookie_name"`
	CSRFCookieName    string `json:"csrf_cookie_name"`
	CSRFHeaderName    string `json:"csrf_header_name"`
	CSRFTokenBytes    int    `json:"csrf_token_bytes"`
}

// WithDefaults fills zero values with the package defaults
func (c Config) WithDefaults() Config {
	if c.AccessTTL == 0 {
		c.AccessTTL = DefaultAccessTTL
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = DefaultRefreshTTL
	}
	if c.AccessCookieName == "" {
		c.AccessCookieName = DefaultAccessCookieName
	}
	if c.RefreshCookieName == "" {
		c.RefreshCookieName = DefaultRefreshCookieName
	}
	if c.CSRFCookieName == "" {
		c.CSRFCookieName = DefaultCSRFCookieName
	}
	if c.CSRFHeaderName == "" {
		c.CSRFHeaderName = DefaultCSRFHeaderName
	}
	if c.CSRFTokenBytes == 0 {
		c.CSRFTokenBytes = DefaultCSRFTokenBytes
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = passwordHashCost()
	}
	return c
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.AccessSecret != "" {
		c.AccessSecret = "********"
	}
	if c.RefreshSecret != "" {
		c.RefreshSecret = "********"
	}
	return c
}
