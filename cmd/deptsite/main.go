package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eringen/deptsite"
	"github.com/eringen/deptsite/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("deptsite %s\n", version)
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run serves until the server fails or a shutdown signal arrives. It returns
// only after the app has been closed.
func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("deptsite: loading .env: %v", err)
	}

	cfg := deptsite.SiteConfig{
		Name:          deptsite.EnvOr("SITE_NAME", ""),
		URL:           deptsite.EnvOr("SITE_URL", ""),
		Description:   deptsite.EnvOr("SITE_DESCRIPTION", ""),
		Addr:          deptsite.EnvOr("ADDR", ""),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DataDir:       deptsite.EnvOr("DATA_DIR", ""),
		StaticDir:     deptsite.EnvOr("STATIC_DIR", ""),
		AdminUsername: deptsite.MustEnv("ADMIN_USERNAME"),
		AdminPassword: deptsite.MustEnv("ADMIN_PASSWORD"),
		SessionSecret: deptsite.MustEnv("SESSION_SECRET"),
		CookieSecure:  parseBool(os.Getenv("COOKIE_SECURE")),
		LogLevel:      deptsite.EnvOr("LOG_LEVEL", ""),
	}

	app := deptsite.New(cfg, views.New(cfg))
	defer app.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
		log.Println("deptsite: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func printUsage() {
	fmt.Println(`deptsite - departmental website backend

Usage:
  deptsite            Start the server (configured from the environment or .env)
  deptsite version    Print the version
  deptsite help       Show this help message

Environment:
  ADMIN_USERNAME, ADMIN_PASSWORD, SESSION_SECRET   required
  DATABASE_URL        postgres://... or sqlite path (default data/site.db)
  SITE_NAME, SITE_URL, SITE_DESCRIPTION, ADDR, DATA_DIR, STATIC_DIR,
  COOKIE_SECURE, LOG_LEVEL`)
}
