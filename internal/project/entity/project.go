package entity

import "time"

// Project is a catalog item published by the administrator.
type Project struct {
	ID        int64     `db:"id"`
	Image     string    `db:"image"`
	Name      string    `db:"name"`
	Details   string    `db:"details"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
