package deptsite

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const relatedPostLimit = 3

func (a *App) handleHome(c echo.Context) error {
	return Render(c, a.Views.Home())
}

func (a *App) handleServices(c echo.Context) error {
	hods, err := a.Hods.Load()
	if err != nil {
		return err
	}
	return Render(c, a.Views.Services(hods))
}

func (a *App) handleMDGeneral(c echo.Context) error {
	return Render(c, a.Views.MDGeneral())
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About())
}

func (a *App) handleContact(c echo.Context) error {
	return Render(c, a.Views.Contact())
}

func (a *App) handleBlogList(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.BlogList(posts))
}

func (a *App) handleBlogDetail(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	post, err := a.Store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.String(http.StatusNotFound, "Post Not Found")
		}
		return err
	}
	related, err := a.Store.ListRelated(ctx, id, relatedPostLimit)
	if err != nil {
		return err
	}
	return Render(c, a.Views.BlogDetail(post, related))
}

func (a *App) handleHodDetail(c echo.Context) error {
	id, ok := parseHodID(c)
	if !ok {
		return c.String(http.StatusNotFound, "HOD not found")
	}
	hod, err := a.Hods.Get(id)
	if err != nil {
		if errors.Is(err, ErrHodNotFound) {
			return c.String(http.StatusNotFound, "HOD not found")
		}
		return err
	}
	return Render(c, a.Views.HodDetail(hod))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	hods, err := a.Hods.Load()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, hods)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

// handleRobots generates robots.txt from the configured site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\n\nSitemap: %s\n", BuildURL(a.Config.URL, "sitemap.xml"))
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound && a.Views.NotFound != nil {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		if a.Views.ServerError != nil {
			_ = RenderStatus(c, code, a.Views.ServerError())
			return
		}
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
