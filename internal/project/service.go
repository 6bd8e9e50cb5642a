package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/project/entity"
	projectrepo "github.com/ovaphlow/pitchfork/project-catalog/internal/project/repo"
)

// MaxNameLength bounds Project.Name.
const MaxNameLength = 100

var (
	ErrNotFound      = errors.New("project not found")
	ErrMissingFields = errors.New("image, name and details are required")
	ErrNameTooLong   = fmt.Errorf("name must be at most %d characters", MaxNameLength)
)

// Input carries the editable project fields.
type Input struct {
	Image   string
	Name    string
	Details string
}

func (in Input) validate() (Input, error) {
	in.Image = strings.TrimSpace(in.Image)
	in.Name = strings.TrimSpace(in.Name)
	in.Details = strings.TrimSpace(in.Details)
	if in.Image == "" || in.Name == "" || in.Details == "" {
		return in, ErrMissingFields
	}
	if utf8.RuneCountInString(in.Name) > MaxNameLength {
		return in, ErrNameTooLong
	}
	return in, nil
}

// ProjectService manages the catalog.
type ProjectService struct {
	repo *projectrepo.ProjectRepo
}

func NewProjectService(db *sqlx.DB, r *projectrepo.ProjectRepo) *ProjectService {
	if r == nil {
		r = projectrepo.NewProjectRepo(db)
	}
	return &ProjectService{repo: r}
}

func (s *ProjectService) Create(ctx context.Context, in Input) (*entity.Project, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	p := &entity.Project{Image: in.Image, Name: in.Name, Details: in.Details}
	if _, err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (*entity.Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

func (s *ProjectService) List(ctx context.Context) ([]entity.Project, error) {
	projects, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Update overwrites all three fields of project id. A missing project is
// reported before any field validation.
func (s *ProjectService) Update(ctx context.Context, id int64, in Input) (*entity.Project, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	p := &entity.Project{ID: id, Image: in.Image, Name: in.Name, Details: in.Details}
	ok, err := s.repo.Update(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("update project %d: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

// Delete removes project id together with its requests.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
