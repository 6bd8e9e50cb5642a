package projectrequest

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/metrics"
	projectentity "github.com/ovaphlow/pitchfork/project-catalog/internal/project/entity"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/web"
)

type Handler struct {
	svc    *RequestService
	view   *web.Renderer
	logger *zap.SugaredLogger
}

func NewHandler(svc *RequestService, view *web.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, view: view, logger: logger}
}

// Form backs request_project.html.
type Form struct {
	Project *projectentity.Project
	Message string
}

func (h *Handler) RequestPage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.view.Render(w, r, http.StatusOK, "request_project", web.Page{
		Title: "Request " + p.Name,
		Data:  Form{Project: p},
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	u, _ := web.UserFrom(r.Context())
	id, ok := web.PathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.logger.Debugw("invalid request form", "err", err)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	message := r.PostForm.Get("message")
	pr, err := h.svc.Submit(r.Context(), u.ID, id, message)
	switch {
	case err == nil:
		metrics.ProjectRequestsSubmitted.Inc()
		h.logger.Infow("project requested", "request_id", pr.ID, "user_id", u.ID, "project_id", id)
		web.Redirect(w, r, "/", web.FlashSuccess, "Project request submitted successfully")
	case errors.Is(err, ErrProjectNotFound):
		h.notFound(w, r)
	case errors.Is(err, ErrEmptyMessage):
		p, lerr := h.svc.Project(r.Context(), id)
		if lerr != nil {
			h.view.ServerError(w, r, lerr)
			return
		}
		h.view.Render(w, r, http.StatusBadRequest, "request_project", web.Page{
			Title:   "Request " + p.Name,
			Flashes: []web.Flash{{Category: web.FlashError, Message: "Please enter a message for the admin."}},
			Data:    Form{Project: p, Message: message},
		})
	default:
		h.view.ServerError(w, r, err)
	}
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	requests, err := h.svc.List(r.Context())
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	h.view.Render(w, r, http.StatusOK, "admin_project_requests", web.Page{Title: "Project requests", Data: requests})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*projectentity.Project, bool) {
	id, ok := web.PathID(r)
	if !ok {
		h.notFound(w, r)
		return nil, false
	}
	p, err := h.svc.Project(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			h.notFound(w, r)
		} else {
			h.view.ServerError(w, r, err)
		}
		return nil, false
	}
	return p, true
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	web.Redirect(w, r, "/", web.FlashError, "Project not found.")
}
