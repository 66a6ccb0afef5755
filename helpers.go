package deptsite

import (
	"net/url"
	"path"
	"strconv"

	"github.com/labstack/echo/v4"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

// formOr returns the submitted value of key, or fallback when the field was
// not submitted at all. A field sent empty stays empty.
func formOr(c echo.Context, key, fallback string) string {
	if !formHas(c, key) {
		return fallback
	}
	return c.FormValue(key)
}

// formHas reports whether key was submitted at all, as for an HTML checkbox.
func formHas(c echo.Context, key string) bool {
	form, err := c.FormParams()
	if err != nil {
		return false
	}
	_, ok := form[key]
	return ok
}

// parseHodID reads the integer :id route parameter.
func parseHodID(c echo.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, false
	}
	return id, true
}

// PathEscape escapes a string for use in a URL path.
func PathEscape(s string) string {
	return url.PathEscape(s)
}
