package deptsite

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

const adminHodsPath = "/admin/hods"

func (a *App) handleAdminHods(c echo.Context) error {
	hods, err := a.Hods.Load()
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminHods(hods, CsrfToken(c)))
}

func (a *App) handleAdminHodNewPage(c echo.Context) error {
	return Render(c, a.Views.AdminHodForm(StaffEntry{Active: true}, true, CsrfToken(c)))
}

// handleAdminHodNew creates a staff entry. A photo is required.
func (a *App) handleAdminHodNew(c echo.Context) error {
	fh, err := formFile(c, "photo")
	if err != nil {
		return err
	}
	if fh == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file"})
	}
	photo, err := a.Uploads.Store(fh, a.hodUploadDir())
	if err != nil {
		return err
	}

	hod, err := a.Hods.Create(StaffEntry{
		Name:       c.FormValue("name"),
		Role:       c.FormValue("role"),
		Department: c.FormValue("department"),
		Bio:        c.FormValue("bio"),
		Photo:      hodsSubdir + "/" + photo,
		Active:     true,
	})
	if err != nil {
		a.discardUploads(c, a.hodUploadDir(), photo)
		return err
	}
	c.Logger().Infof("hod %d created by %s", hod.ID, Admin(c).Username)
	return c.Redirect(http.StatusSeeOther, adminHodsPath)
}

func (a *App) handleAdminHodEditPage(c echo.Context) error {
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
	return Render(c, a.Views.AdminHodForm(hod, false, CsrfToken(c)))
}

// handleAdminHodEdit overwrites the text fields and the active flag; the
// photo changes only when a new one is uploaded.
func (a *App) handleAdminHodEdit(c echo.Context) error {
	id, ok := parseHodID(c)
	if !ok {
		return c.String(http.StatusNotFound, "HOD not found")
	}
	if _, err := a.Hods.Get(id); err != nil {
		if errors.Is(err, ErrHodNotFound) {
			return c.String(http.StatusNotFound, "HOD not found")
		}
		return err
	}

	photo, err := a.storeOptional(c, "photo", a.hodUploadDir())
	if err != nil {
		return err
	}
	name := c.FormValue("name")
	role := c.FormValue("role")
	department := c.FormValue("department")
	bio := c.FormValue("bio")
	active := formHas(c, "active")

	_, err = a.Hods.Edit(id, func(h *StaffEntry) {
		h.Name = name
		h.Role = role
		h.Department = department
		h.Bio = bio
		h.Active = active
		if photo != "" {
			h.Photo = hodsSubdir + "/" + photo
		}
	})
	if err != nil {
		a.discardUploads(c, a.hodUploadDir(), photo)
		if errors.Is(err, ErrHodNotFound) {
			return c.String(http.StatusNotFound, "HOD not found")
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, adminHodsPath)
}

// handleAdminHodDelete always reports success, whether or not the id existed.
func (a *App) handleAdminHodDelete(c echo.Context) error {
	id, ok := parseHodID(c)
	if !ok {
		return c.String(http.StatusNotFound, "HOD not found")
	}
	if err := a.Hods.Delete(id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
