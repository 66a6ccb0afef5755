// Package deptsite is the backend of a departmental website built with Go,
// Echo, and templ. It serves the public pages, a blog backed by a SQL table,
// a staff directory backed by a JSON file, and a session-gated admin area
// for managing both, including image and video uploads.
//
// Templates are supplied through the ViewFuncs struct; the views package
// ships a default set.
package deptsite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// ViewFuncs holds the templ components the handlers render.
type ViewFuncs struct {
	Home       func() templ.Component
	Services   func(hods []StaffEntry) templ.Component
	MDGeneral  func() templ.Component
	About      func() templ.Component
	Contact    func() templ.Component
	BlogList   func(posts []Post) templ.Component
	BlogDetail func(post Post, related []Post) templ.Component
	HodDetail  func(hod StaffEntry) templ.Component

	AdminLogin     func(errMsg string, csrfToken string) templ.Component
	AdminDashboard func(posts []Post, hods []StaffEntry, csrfToken string) templ.Component
	AdminPostForm  func(post Post, isNew bool, csrfToken string) templ.Component
	AdminHods      func(hods []StaffEntry, csrfToken string) templ.Component
	AdminHodForm   func(hod StaffEntry, isNew bool, csrfToken string) templ.Component

	NotFound    func() templ.Component
	ServerError func() templ.Component
}

// App wires together the stores, uploads, handlers, middleware, and templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Hods    *HodStore
	Uploads *Uploader
	Views   ViewFuncs

	customRoutes []func(*App)
	initialized  bool
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	a := &App{
		Config: cfg,
		Echo:   e,
		Views:  views,
	}

	for _, opt := range opts {
		opt(a)
	}
	e.Logger.SetLevel(cfg.logLevel())

	return a
}

// Init opens the stores and registers middleware and routes. Start calls it;
// tests call it directly and drive a.Echo with httptest.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	if a.Config.AdminUsername == "" || a.Config.AdminPassword == "" {
		return fmt.Errorf("deptsite: AdminUsername and AdminPassword are required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("deptsite: SessionSecret is required")
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabaseURL, a.Config.SQLitePath())
		if err != nil {
			return fmt.Errorf("deptsite: init store: %w", err)
		}
		a.Store = store
	}

	hods, err := NewHodStore(a.Config.HodsPath())
	if err != nil {
		return fmt.Errorf("deptsite: init hods: %w", err)
	}
	a.Hods = hods

	if a.Uploads == nil {
		a.Uploads = NewUploader()
	}
	if err := a.ensureUploadDirs(); err != nil {
		return fmt.Errorf("deptsite: %w", err)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	a.Echo.Logger.Infof("posts in %s, staff directory in %s", a.Store.Driver(), a.Hods.Path())
	return nil
}

// Start initializes the app and serves HTTP until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo
	admin := a.RequireAdmin

	e.Static("/static", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	// Public pages
	e.GET("/", a.handleHome)
	e.GET("/services", a.handleServices)
	e.GET("/md-general", a.handleMDGeneral)
	e.GET("/about", a.handleAbout)
	e.GET("/contact", a.handleContact)
	e.GET("/blog", a.handleBlogList)
	e.GET("/blog/:id", a.handleBlogDetail)
	e.GET("/hod/:id", a.handleHodDetail)

	// Auth
	e.GET(loginPath, a.handleAdminLoginPage)
	e.POST(loginPath, a.handleAdminLogin)
	e.GET("/admin/logout", handleAdminLogout)

	// Posts admin
	e.GET(dashboardPath, a.handleAdminDashboard, admin)
	e.GET("/admin/new-post", a.handleAdminNewPostPage, admin)
	e.POST("/admin/new-post", a.handleAdminNewPost, admin)
	e.GET("/admin/edit/:id", a.handleAdminEditPostPage, admin)
	e.POST("/admin/edit/:id", a.handleAdminEditPost, admin)
	e.POST("/admin/delete/:id", a.handleAdminDeletePost, admin)
	e.POST("/admin/upload_tinymce_image", a.handleTinyMCEUpload, admin)

	// Staff directory admin
	e.GET("/admin/hods", a.handleAdminHods, admin)
	e.GET("/admin/hod/new", a.handleAdminHodNewPage, admin)
	e.POST("/admin/hod/new", a.handleAdminHodNew, admin)
	e.GET("/admin/hod/edit/:id", a.handleAdminHodEditPage, admin)
	e.POST("/admin/hod/edit/:id", a.handleAdminHodEdit, admin)
	e.POST("/admin/hod/delete/:id", a.handleAdminHodDelete, admin)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("deptsite: required environment variable %s is not set", key)
	}
	return v
}
