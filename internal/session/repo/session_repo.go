package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionRepo persists login sessions in the `sessions` table.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Save(ctx context.Context, id string, userID int64, expiresAt time.Time) error {
	query := r.db.Rebind(`INSERT INTO sessions (id, user_id, expires_at) VALUES (?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, id, userID, expiresAt.UTC())
	return err
}

// Get returns the owner and expiry of a session, or sql.ErrNoRows.
func (r *SessionRepo) Get(ctx context.Context, id string) (int64, time.Time, error) {
	var row struct {
		UserID    int64     `db:"user_id"`
		ExpiresAt time.Time `db:"expires_at"`
	}
	query := r.db.Rebind(`SELECT user_id, expires_at FROM sessions WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return 0, time.Time{}, err
	}
	return row.UserID, row.ExpiresAt, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	return err
}

// DeleteExpired removes sessions that expired before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
