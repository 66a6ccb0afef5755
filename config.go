package deptsite

import (
	"path/filepath"
	"strings"

	"github.com/labstack/gommon/log"
)

// SiteConfig holds all configuration for the departmental site.
type SiteConfig struct {
	Name        string // Site name (default "Department")
	URL         string // Canonical URL (default "http://localhost:5000")
	Description string // Site description for RSS and meta tags

	Addr        string // Listen address (default ":5000")
	DatabaseURL string // DATABASE_URL; empty selects SQLite under DataDir
	DataDir     string // Holds hods.json and the SQLite file (default "data")
	StaticDir   string // Served under /static; uploads live below it (default "static")

	AdminUsername string // Required: shared admin login name
	AdminPassword string // Required: shared admin password
	SessionSecret string // Required: session signing secret
	CookieSecure  bool   // Set true for HTTPS

	LogLevel string // debug, info, warn, error or off (default "info")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Department"
	}
	if c.URL == "" {
		c.URL = "http://localhost:5000"
	}
	if c.Addr == "" {
		c.Addr = ":5000"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// HodsPath is the staff directory JSON file.
func (c SiteConfig) HodsPath() string {
	return filepath.Join(c.DataDir, "hods.json")
}

// SQLitePath is the database file used when DatabaseURL is empty.
func (c SiteConfig) SQLitePath() string {
	return filepath.Join(c.DataDir, "site.db")
}

func (c SiteConfig) logLevel() log.Lvl {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStore makes the App use an already opened post store instead of
// opening one from DatabaseURL.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithUploader replaces the default upload writer.
func WithUploader(u *Uploader) Option {
	return func(a *App) {
		a.Uploads = u
	}
}
