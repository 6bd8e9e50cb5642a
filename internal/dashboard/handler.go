package dashboard

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/metrics"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/project/entity"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/web"
)

type Config struct {
	// CounterFile selects the file-backed visitor counter when non-empty.
	CounterFile string
}

// ConfigFromEnv reads VISITOR_COUNTER_FILE.
func ConfigFromEnv() Config {
	return Config{CounterFile: os.Getenv("VISITOR_COUNTER_FILE")}
}

// ProjectLister lists the catalog shown on the dashboard.
type ProjectLister interface {
	List(ctx context.Context) ([]entity.Project, error)
}

// View backs dashboard.html.
type View struct {
	Greeting string
	Visitors int64
	Projects []entity.Project
}

type Handler struct {
	projects ProjectLister
	counter  Counter
	now      func() time.Time
	view     *web.Renderer
	logger   *zap.SugaredLogger
}

func NewHandler(projects ProjectLister, counter Counter, view *web.Renderer, logger *zap.SugaredLogger) *Handler {
	return &Handler{projects: projects, counter: counter, now: time.Now, view: view, logger: logger}
}

// Dashboard renders the project list with the greeting and visitor count.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		h.view.ServerError(w, r, err)
		return
	}
	visitors, err := h.counter.Increment(r.Context())
	if err != nil {
		// the page is still useful without a count
		h.logger.Warnw("visitor counter failed", "err", err)
	} else {
		metrics.VisitorCount.Set(float64(visitors))
	}
	h.view.Render(w, r, http.StatusOK, "dashboard", web.Page{
		Title: "Dashboard",
		Data: View{
			Greeting: Greeting(h.now()),
			Visitors: visitors,
			Projects: projects,
		},
	})
}
