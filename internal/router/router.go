package router

import (
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/dashboard"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/metrics"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/project"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/projectrequest"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/session"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/user"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/web"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	Logger   *zap.SugaredLogger
	DB       *sqlx.DB
	Sessions *session.Manager
	Counter  dashboard.Counter
	// Hasher defaults to bcrypt when nil.
	Hasher user.PasswordHasher
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(d Deps) (http.Handler, error) {
	view, err := web.NewRenderer(d.Logger)
	if err != nil {
		return nil, err
	}
	if d.Counter == nil {
		d.Counter = dashboard.NewStoreCounter(d.DB)
	}

	userSvc := user.NewUserService(d.DB, nil, d.Hasher)
	projectSvc := project.NewProjectService(d.DB, nil)
	requestSvc := projectrequest.NewRequestService(d.DB, projectSvc)

	users := user.NewHandler(userSvc, d.Sessions, view, d.Logger)
	projects := project.NewHandler(projectSvc, view, d.Logger)
	requests := projectrequest.NewHandler(requestSvc, view, d.Logger)
	home := dashboard.NewHandler(projectSvc, d.Counter, view, d.Logger)

	authed := func(h http.HandlerFunc) http.Handler { return session.RequireUser(h) }
	admin := func(h http.HandlerFunc) http.Handler { return session.RequireAdmin(h) }

	mux := http.NewServeMux()

	// ops
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /static/", web.StaticHandler())

	// accounts
	mux.HandleFunc("GET /register", users.RegisterPage)
	mux.HandleFunc("POST /register", users.Register)
	mux.HandleFunc("GET /login", users.LoginPage)
	mux.HandleFunc("POST /login", users.Login)
	mux.Handle("GET /logout", authed(users.Logout))

	// dashboard and requests
	mux.Handle("GET /{$}", authed(home.Dashboard))
	mux.Handle("GET /request_project/{id}", authed(requests.RequestPage))
	mux.Handle("POST /request_project/{id}", authed(requests.Submit))

	// admin
	mux.Handle("GET /users", admin(users.List))
	mux.Handle("POST /delete_user/{id}", admin(users.Delete))
	mux.Handle("GET /admin", admin(projects.AdminHome))
	mux.Handle("GET /admin/project_requests", admin(requests.AdminList))
	mux.Handle("GET /admin/add_project", admin(projects.AddPage))
	mux.Handle("POST /admin/add_project", admin(projects.Add))
	mux.Handle("GET /admin/list_projects", admin(projects.List))
	mux.Handle("GET /admin/modify_project/{id}", admin(projects.EditPage))
	mux.Handle("POST /admin/modify_project/{id}", admin(projects.Edit))
	mux.Handle("POST /admin/delete_project/{id}", admin(projects.Delete))

	var handler http.Handler = MetricsMiddleware(mux)
	handler = d.Sessions.Authenticate(userSvc, d.Logger)(handler)
	handler = SecurityHeadersMiddleware()(handler)
	handler = LoggingMiddleware(d.Logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler, nil
}
