package projectrequest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/project"
	projectentity "github.com/ovaphlow/pitchfork/project-catalog/internal/project/entity"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/projectrequest/entity"
	prrepo "github.com/ovaphlow/pitchfork/project-catalog/internal/projectrequest/repo"
	"github.com/ovaphlow/pitchfork/project-catalog/pkg/database"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrEmptyMessage    = errors.New("message is required")
)

// ProjectLookup resolves the project a request targets.
type ProjectLookup interface {
	Get(ctx context.Context, id int64) (*projectentity.Project, error)
}

// RequestService creates and lists project requests.
type RequestService struct {
	repo     *prrepo.ProjectRequestRepo
	projects ProjectLookup
}

func NewRequestService(db *sqlx.DB, projects ProjectLookup) *RequestService {
	return &RequestService{repo: prrepo.NewProjectRequestRepo(db), projects: projects}
}

// Project returns the target project or ErrProjectNotFound.
func (s *RequestService) Project(ctx context.Context, projectID int64) (*projectentity.Project, error) {
	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// Submit records that userID requested projectID. Duplicate requests are
// allowed.
func (s *RequestService) Submit(ctx context.Context, userID, projectID int64, message string) (*entity.ProjectRequest, error) {
	if _, err := s.Project(ctx, projectID); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	pr := &entity.ProjectRequest{UserID: userID, ProjectID: projectID, Message: message}
	if _, err := s.repo.Create(ctx, pr); err != nil {
		if database.IsForeignKeyViolation(err) {
			// project removed after the lookup
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("create project request: %w", err)
	}
	return pr, nil
}

// List returns every request joined with user and project for review.
func (s *RequestService) List(ctx context.Context) ([]entity.Detail, error) {
	out, err := s.repo.ListDetailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list project requests: %w", err)
	}
	return out, nil
}
