package deptsite

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName     = "admin_session"
	adminContextKey = "admin"

	loginPath     = "/admin/login"
	dashboardPath = "/admin/dashboard"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/static/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline' https://cdn.tiny.cloud; style-src 'self' 'unsafe-inline' https://cdn.tiny.cloud; img-src 'self' https: data: blob:; font-src 'self' https://cdn.tiny.cloud; connect-src 'self' https://cdn.tiny.cloud; media-src 'self' https:; frame-src https:",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:  middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup: "header:X-CSRF-Token,form:_csrf",
		CookieName:  "_csrf",
		CookiePath:  "/",
		CookieSameSite: func() http.SameSite {
			return http.SameSiteLaxMode
		}(),
		CookieSecure: a.Config.CookieSecure,
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	}))

	e.Use(cacheControlMiddleware)
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/static/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
			c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		case strings.HasPrefix(path, "/admin"):
			c.Response().Header().Set("Cache-Control", "no-store")
		default:
			c.Response().Header().Set("Cache-Control", "no-cache")
		}
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// AdminContext describes the authenticated administrator of a request.
// RequireAdmin places it on the echo.Context before calling the handler.
type AdminContext struct {
	Username   string
	LoggedInAt time.Time
}

// Admin returns the AdminContext set by RequireAdmin, or nil outside gated routes.
func Admin(c echo.Context) *AdminContext {
	admin, _ := c.Get(adminContextKey).(*AdminContext)
	return admin
}

// IsAdmin checks if the current session is authenticated.
func IsAdmin(c echo.Context) bool {
	return sessionAdmin(c) != nil
}

func sessionAdmin(c echo.Context) *AdminContext {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	auth, ok := sess.Values["authenticated"].(bool)
	if !ok || !auth {
		return nil
	}
	admin := &AdminContext{}
	admin.Username, _ = sess.Values["username"].(string)
	if ts, ok := sess.Values["logged_in_at"].(int64); ok {
		admin.LoggedInAt = time.Unix(ts, 0).UTC()
	}
	return admin
}

// RequireAdmin redirects to the login page unless the session is
// authenticated; otherwise it calls next with the same context.
func (a *App) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		admin := sessionAdmin(c)
		if admin == nil {
			return c.Redirect(http.StatusSeeOther, loginPath)
		}
		c.Set(adminContextKey, admin)
		return next(c)
	}
}

// Login checks the shared admin credential and, on a match, marks the
// session as authenticated.
func (a *App) Login(c echo.Context, username, password string) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Config.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.Config.AdminPassword)) == 1
	if !userOK || !passOK {
		return false, nil
	}
	sess, err := adminSession(c)
	if err != nil {
		return false, err
	}
	sess.Values["authenticated"] = true
	sess.Values["username"] = username
	sess.Values["logged_in_at"] = time.Now().Unix()
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return false, err
	}
	return true, nil
}

// Logout clears the admin session. It is safe to call when not logged in.
func Logout(c echo.Context) error {
	sess, err := adminSession(c)
	if err != nil {
		return err
	}
	delete(sess.Values, "authenticated")
	delete(sess.Values, "username")
	delete(sess.Values, "logged_in_at")
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// adminSession returns the admin session for writing. A cookie that no longer
// decodes (rotated secret, tampering) yields a fresh session from the registry
// along with the error; that session is used so saving it replaces the cookie.
func adminSession(c echo.Context) (*sessions.Session, error) {
	sess, err := session.Get(sessionName, c)
	if sess == nil {
		return nil, err
	}
	if err != nil {
		c.Logger().Warnf("discarding unreadable %s cookie: %v", sessionName, err)
	}
	return sess, nil
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
