package project

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/metrics"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/project/entity"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/web"
)

const listPath = "/admin/list_projects"

// Handler serves the admin catalog pages. Every route is mounted behind the
// admin guard.
type Handler struct {
	svc    *ProjectService
	view   *web.Renderer
	logger *zap.SugaredLogger
}

func NewHandler(svc *ProjectService, view *web.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, view: view, logger: logger}
}

// Form backs project_form.html for both create and edit.
type Form struct {
	Action  string
	Image   string
	Name    string
	Details string
}

func formFrom(action string, p *entity.Project) Form {
	return Form{Action: action, Image: p.Image, Name: p.Name, Details: p.Details}
}

func (h *Handler) AdminHome(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, "admin", web.Page{Title: "Admin"})
}

func (h *Handler) AddPage(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, r, http.StatusOK, "project_form", web.Page{
		Title: "Add project",
		Data:  Form{Action: "/admin/add_project"},
	})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.failed(w, r, "Add project", "/admin/add_project", in, err)
		return
	}
	metrics.RecordProjectOperation("create")
	h.logger.Infow("project created", "project_id", p.ID, "name", p.Name)
	web.Redirect(w, r, "/admin", web.FlashSuccess, "Project created successfully")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context())
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "admin_list_projects", web.Page{Title: "Projects", Data: projects})
}

func (h *Handler) EditPage(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "project_form", web.Page{
		Title: "Modify project",
		Data:  formFrom(editPath(id), p),
	})
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	in, ok := h.parse(w, r)
	if !ok {
		return
	}
	if _, err := h.svc.Update(r.Context(), id, in); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.failed(w, r, "Modify project", editPath(id), in, err)
		return
	}
	metrics.RecordProjectOperation("update")
	h.logger.Infow("project updated", "project_id", id)
	web.Redirect(w, r, listPath, web.FlashSuccess, "Project updated successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := web.PathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.notFound(w, r)
			return
		}
		h.view.ServerError(w, r, err)
		return
	}
	metrics.RecordProjectOperation("delete")
	h.logger.Infow("project deleted", "project_id", id)
	web.Redirect(w, r, listPath, web.FlashSuccess, "Project deleted successfully")
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		h.logger.Debugw("invalid project form", "err", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Image:   r.PostForm.Get("image"),
		Name:    r.PostForm.Get("name"),
		Details: r.PostForm.Get("details"),
	}, true
}

// failed re-renders the form for validation errors and reports anything
// else as a server error.
func (h *Handler) failed(w http.ResponseWriter, r *http.Request, title, action string, in Input, err error) {
	var msg string
	switch {
	case errors.Is(err, ErrMissingFields):
		msg = "Image, name and details are all required."
	case errors.Is(err, ErrNameTooLong):
		msg = fmt.Sprintf("Name must be at most %d characters.", MaxNameLength)
	default:
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusBadRequest, "project_form", web.Page{
		Title:   title,
		Flashes: []web.Flash{{Category: web.FlashError, Message: msg}},
		Data:    Form{Action: action, Image: in.Image, Name: in.Name, Details: in.Details},
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	web.Redirect(w, r, listPath, web.FlashError, "Project not found.")
}

func editPath(id int64) string {
	return fmt.Sprintf("/admin/modify_project/%d", id)
}
