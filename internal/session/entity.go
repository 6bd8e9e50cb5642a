package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is a persisted login. The cookie token only references it by ID,
// so deleting the row revokes the cookie.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is the signed payload carried in the session cookie.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
