package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/projectrequest/entity"
)

// ProjectRequestRepo provides data access for the project_requests table.
type ProjectRequestRepo struct {
	db *sqlx.DB
}

func NewProjectRequestRepo(db *sqlx.DB) *ProjectRequestRepo {
	return &ProjectRequestRepo{db: db}
}

// Create inserts pr and sets its ID.
func (r *ProjectRequestRepo) Create(ctx context.Context, pr *entity.ProjectRequest) (int64, error) {
	q := r.db.Rebind(`INSERT INTO project_requests (user_id, project_id, message) VALUES (?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, q, pr.UserID, pr.ProjectID, pr.Message).Scan(&pr.ID); err != nil {
		return 0, err
	}
	return pr.ID, nil
}

// ListDetailed returns every request with requester and project columns,
// oldest first.
func (r *ProjectRequestRepo) ListDetailed(ctx context.Context) ([]entity.Detail, error) {
	const q = `SELECT pr.id, pr.user_id, u.username, u.email, pr.project_id, p.name AS project_name,
		pr.message, pr.created_at
	  FROM project_requests pr
	  JOIN users u ON u.id = pr.user_id
	  JOIN projects p ON p.id = pr.project_id
	  ORDER BY pr.id`
	out := []entity.Detail{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}
