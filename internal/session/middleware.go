package session

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/user/entity"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/web"
)

// UserFinder loads the account a session belongs to.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*entity.User, error)
}

// Authenticate resolves the session cookie and, when valid, attaches the
// user to the request context. Requests without a valid session continue
// anonymously.
func (m *Manager) Authenticate(users UserFinder, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := m.Resolve(r.Context(), r)
			if err != nil {
				switch {
				case errors.Is(err, ErrNoSession):
				case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionNotFound):
					m.setCookie(w, "", -1)
				default:
					logger.Warnw("session lookup failed", "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			u, err := users.FindByID(r.Context(), sess.UserID)
			if err != nil {
				logger.Debugw("session user unavailable", "user_id", sess.UserID, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithUser(r.Context(), u)))
		})
	}
}

// RequireUser redirects anonymous requests to the login page.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := web.UserFrom(r.Context()); !ok {
			web.Redirect(w, r, "/login", web.FlashInfo, "Please log in to access this page.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits only the administrator; other users are sent to the
// dashboard with a permission notice.
func RequireAdmin(next http.Handler) http.Handler {
	return RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := web.UserFrom(r.Context()); !u.IsAdmin() {
			web.Redirect(w, r, "/", web.FlashError, "You do not have permission to access this page.")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
