package deptsite

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

var sitemapPages = []string{"services", "md-general", "blog", "about", "contact"}

func (a *App) renderSitemap(c echo.Context, posts []Post, hods []StaffEntry) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
	}
	for _, page := range sitemapPages {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, page)})
	}
	for _, p := range posts {
		u := sitemapURL{Loc: BuildURL(base, "blog", p.ID)}
		if !p.CreatedAt.IsZero() {
			u.LastMod = p.CreatedAt.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	for _, h := range hods {
		if !h.Active {
			continue
		}
		urls = append(urls, sitemapURL{Loc: BuildURL(base, "hod", strconv.Itoa(h.ID))})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
