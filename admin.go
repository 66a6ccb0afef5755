package deptsite

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

func (a *App) handleAdminLoginPage(c echo.Context) error {
	return Render(c, a.Views.AdminLogin("", CsrfToken(c)))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ok, err := a.Login(c, c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		return err
	}
	if !ok {
		c.Logger().Warnf("failed admin login from %s", c.RealIP())
		return Render(c, a.Views.AdminLogin("Invalid login details", CsrfToken(c)))
	}
	return c.Redirect(http.StatusSeeOther, dashboardPath)
}

func handleAdminLogout(c echo.Context) error {
	if err := Logout(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func (a *App) handleAdminDashboard(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	hods, err := a.Hods.Load()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminDashboard(posts, hods, CsrfToken(c)))
}

func (a *App) handleAdminNewPostPage(c echo.Context) error {
	return Render(c, a.Views.AdminPostForm(Post{
		Type:     PostTypeArticle,
		Category: DefaultCategory,
		Image:    DefaultPostImage,
	}, true, CsrfToken(c)))
}

func (a *App) handleAdminNewPost(c echo.Context) error {
	post := Post{
		Type:     formOr(c, "type", PostTypeArticle),
		Title:    strings.TrimSpace(c.FormValue("title")),
		Excerpt:  strings.TrimSpace(c.FormValue("excerpt")),
		Category: formOr(c, "category", DefaultCategory),
		Date:     c.FormValue("date"),
		Content:  c.FormValue("content"),
		VideoURL: strings.TrimSpace(c.FormValue("video_url")),
		Image:    DefaultPostImage,
	}

	image, err := a.storeOptional(c, "image", a.postUploadDir())
	if err != nil {
		return err
	}
	if image != "" {
		post.Image = image
	}
	video, err := a.storeOptional(c, "video_file", a.postUploadDir())
	if err != nil {
		a.discardUploads(c, a.postUploadDir(), image)
		return err
	}
	if video != "" {
		post.VideoFile = video
		post.Type = PostTypeVideo
	}

	created, err := a.Store.CreatePost(c.Request().Context(), post)
	if err != nil {
		a.discardUploads(c, a.postUploadDir(), image, video)
		return err
	}
	c.Logger().Infof("post %s created by %s", created.ID, Admin(c).Username)
	return c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (a *App) handleAdminEditPostPage(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.String(http.StatusNotFound, "Post not found")
		}
		return err
	}
	return Render(c, a.Views.AdminPostForm(post, false, CsrfToken(c)))
}

// handleAdminEditPost overwrites every text field from the form. Image and
// video files are replaced only when a new file is uploaded.
func (a *App) handleAdminEditPost(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	post, err := a.Store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.String(http.StatusNotFound, "Post not found")
		}
		return err
	}

	post.Title = c.FormValue("title")
	post.Excerpt = c.FormValue("excerpt")
	post.Category = formOr(c, "category", DefaultCategory)
	post.Date = c.FormValue("date")
	post.Content = c.FormValue("content")
	post.VideoURL = strings.TrimSpace(c.FormValue("video_url"))

	image, err := a.storeOptional(c, "image", a.postUploadDir())
	if err != nil {
		return err
	}
	if image != "" {
		post.Image = image
	}
	video, err := a.storeOptional(c, "video_file", a.postUploadDir())
	if err != nil {
		a.discardUploads(c, a.postUploadDir(), image)
		return err
	}
	if video != "" {
		post.VideoFile = video
	}

	if _, err := a.Store.UpdatePost(ctx, id, post); err != nil {
		a.discardUploads(c, a.postUploadDir(), image, video)
		if errors.Is(err, ErrNotFound) {
			return c.String(http.StatusNotFound, "Post not found")
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, dashboardPath)
}

func (a *App) handleAdminDeletePost(c echo.Context) error {
	id := c.Param("id")
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.String(http.StatusNotFound, "Not found")
		}
		return err
	}
	c.Logger().Infof("post %s deleted by %s", id, Admin(c).Username)
	return c.Redirect(http.StatusSeeOther, dashboardPath)
}

// handleTinyMCEUpload stores an inline image from the rich-text editor and
// answers with the JSON shape TinyMCE expects.
func (a *App) handleTinyMCEUpload(c echo.Context) error {
	fh, err := formFile(c, "file")
	if err != nil {
		return err
	}
	if fh == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file"})
	}
	name, err := a.Uploads.Store(fh, a.postUploadDir())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"location": "/static/" + uploadsSubdir + "/" + name})
}
