// Package views provides the default templates for deptsite. Each page is an
// html/template file embedded in the binary and exposed as a templ.Component,
// so a site can swap individual pages for its own templ components.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/deptsite"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"html":       func(s string) template.HTML { return template.HTML(s) },
	"uploadURL":  uploadURL,
	"staticURL":  func(p string) string { return "/static/" + strings.TrimPrefix(p, "/") },
	"embedURL":   EmbedURL,
	"pathEscape": deptsite.PathEscape,
}

// pages maps a page name to its template set (layout plus the page body).
var pages = mustParse(
	"home", "services", "md_general", "about", "contact",
	"blog_list", "blog_detail", "hod_details",
	"admin_login", "admin_dashboard", "admin_post_form", "admin_hods", "admin_hod_form",
	"not_found", "server_error",
)

func mustParse(names ...string) map[string]*template.Template {
	base := template.Must(template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html"))
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		t := template.Must(base.Clone())
		out[name] = template.Must(t.ParseFS(files, "templates/"+name+".html"))
	}
	return out
}

type pageData struct {
	Site    deptsite.SiteConfig
	Meta    deptsite.PageMeta
	Admin   bool
	CSRF    string
	Error   string
	IsNew   bool
	Posts   []deptsite.Post
	Post    deptsite.Post
	Related []deptsite.Post
	Hods    []deptsite.StaffEntry
	Hod     deptsite.StaffEntry
}

func page(name string, data pageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, "layout.html", data)
	})
}

// New returns the default view set for cfg.
func New(cfg deptsite.SiteConfig) deptsite.ViewFuncs {
	meta := func(title string) deptsite.PageMeta {
		return deptsite.PageMeta{Title: title, Description: cfg.Description, URL: cfg.URL}
	}
	return deptsite.ViewFuncs{
		Home: func() templ.Component {
			return page("home", pageData{Site: cfg, Meta: meta(cfg.Name)})
		},
		Services: func(hods []deptsite.StaffEntry) templ.Component {
			return page("services", pageData{Site: cfg, Meta: meta("Services"), Hods: ActiveHods(hods)})
		},
		MDGeneral: func() templ.Component {
			return page("md_general", pageData{Site: cfg, Meta: meta("Managing Director")})
		},
		About: func() templ.Component {
			return page("about", pageData{Site: cfg, Meta: meta("About")})
		},
		Contact: func() templ.Component {
			return page("contact", pageData{Site: cfg, Meta: meta("Contact")})
		},
		BlogList: func(posts []deptsite.Post) templ.Component {
			return page("blog_list", pageData{Site: cfg, Meta: meta("Blog"), Posts: posts})
		},
		BlogDetail: func(post deptsite.Post, related []deptsite.Post) templ.Component {
			m := meta(post.Title)
			if post.Excerpt != "" {
				m.Description = post.Excerpt
			}
			return page("blog_detail", pageData{Site: cfg, Meta: m, Post: post, Related: related})
		},
		HodDetail: func(hod deptsite.StaffEntry) templ.Component {
			return page("hod_details", pageData{Site: cfg, Meta: meta(hod.Name), Hod: hod})
		},
		AdminLogin: func(errMsg, csrf string) templ.Component {
			return page("admin_login", pageData{Site: cfg, Meta: meta("Admin login"), Error: errMsg, CSRF: csrf})
		},
		AdminDashboard: func(posts []deptsite.Post, hods []deptsite.StaffEntry, csrf string) templ.Component {
			return page("admin_dashboard", pageData{Site: cfg, Meta: meta("Dashboard"), Admin: true, Posts: posts, Hods: hods, CSRF: csrf})
		},
		AdminPostForm: func(post deptsite.Post, isNew bool, csrf string) templ.Component {
			title := "Edit post"
			if isNew {
				title = "New post"
			}
			return page("admin_post_form", pageData{Site: cfg, Meta: meta(title), Admin: true, Post: post, IsNew: isNew, CSRF: csrf})
		},
		AdminHods: func(hods []deptsite.StaffEntry, csrf string) templ.Component {
			return page("admin_hods", pageData{Site: cfg, Meta: meta("Heads of department"), Admin: true, Hods: hods, CSRF: csrf})
		},
		AdminHodForm: func(hod deptsite.StaffEntry, isNew bool, csrf string) templ.Component {
			title := "Edit HOD"
			if isNew {
				title = "New HOD"
			}
			return page("admin_hod_form", pageData{Site: cfg, Meta: meta(title), Admin: true, Hod: hod, IsNew: isNew, CSRF: csrf})
		},
		NotFound: func() templ.Component {
			return page("not_found", pageData{Site: cfg, Meta: meta("Not found")})
		},
		ServerError: func() templ.Component {
			return page("server_error", pageData{Site: cfg, Meta: meta("Server error")})
		},
	}
}

// ActiveHods filters the staff directory down to entries marked active.
func ActiveHods(hods []deptsite.StaffEntry) []deptsite.StaffEntry {
	var out []deptsite.StaffEntry
	for _, h := range hods {
		if h.Active {
			out = append(out, h)
		}
	}
	return out
}

func uploadURL(name string) string {
	if name == "" {
		return ""
	}
	return "/static/uploads/" + url.PathEscape(name)
}

// EmbedURL turns a YouTube watch or short link into its embeddable form.
// Other URLs are returned unchanged.
func EmbedURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		if v := u.Query().Get("v"); v != "" && u.Path == "/watch" {
			return "https://www.youtube.com/embed/" + url.PathEscape(v)
		}
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return "https://www.youtube.com/embed/" + url.PathEscape(id)
		}
	}
	return raw
}
