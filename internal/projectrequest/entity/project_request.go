package entity

import "time"

// ProjectRequest records a user's interest in a project. Rows are
// write-once.
type ProjectRequest struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ProjectID int64     `db:"project_id"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// Detail is a request joined with its requester and project for review.
type Detail struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	Email       string    `db:"email"`
	ProjectID   int64     `db:"project_id"`
	ProjectName string    `db:"project_name"`
	Message     string    `db:"message"`
	CreatedAt   time.Time `db:"created_at"`
}
