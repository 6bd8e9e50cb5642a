package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/project/entity"
)

const projectColumns = `id, image, name, details, created_at, updated_at`

// ProjectRepo provides data access for the projects table.
type ProjectRepo struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo { return &ProjectRepo{db: db} }

// Create inserts p and sets its ID.
func (r *ProjectRepo) Create(ctx context.Context, p *entity.Project) (int64, error) {
	q := r.db.Rebind(`INSERT INTO projects (image, name, details) VALUES (?, ?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, q, p.Image, p.Name, p.Details).Scan(&p.ID); err != nil {
		return 0, err
	}
	return p.ID, nil
}

// GetByID fetches a project or returns sql.ErrNoRows.
func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*entity.Project, error) {
	var p entity.Project
	q := r.db.Rebind(`SELECT ` + projectColumns + ` FROM projects WHERE id = ?`)
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns every project in insertion order.
func (r *ProjectRepo) List(ctx context.Context) ([]entity.Project, error) {
	projects := []entity.Project{}
	if err := r.db.SelectContext(ctx, &projects, `SELECT `+projectColumns+` FROM projects ORDER BY id`); err != nil {
		return nil, err
	}
	return projects, nil
}

// Update overwrites the mutable fields and reports whether the row existed.
func (r *ProjectRepo) Update(ctx context.Context, p *entity.Project) (bool, error) {
	q := r.db.Rebind(`UPDATE projects SET image = ?, name = ?, details = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, p.Image, p.Name, p.Details, time.Now().UTC(), p.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a project; its requests cascade.
func (r *ProjectRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
