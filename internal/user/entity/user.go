package entity

import "time"

// AdminUsername is the single account holding administrative privileges.
const AdminUsername = "admin"

// User represents an account row in the `users` table.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// IsAdmin reports whether u is the administrator account.
func (u *User) IsAdmin() bool {
	return u != nil && u.Username == AdminUsername
}
