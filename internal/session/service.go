package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/project-catalog/pkg/utilities"
)

const (
	CookieName = "session"

	StoreSQL   = "sql"
	StoreRedis = "redis"
)

var (
	ErrNoSession    = errors.New("no session cookie")
	ErrInvalidToken = errors.New("invalid session token")
	ErrWeakSecret   = errors.New("session secret must be at least 32 bytes")
)

type Config struct {
	Secret []byte
	TTL    time.Duration
	Store  string
	Secure bool
}

// ConfigFromEnv reads SESSION_SECRET, SESSION_TTL, SESSION_STORE and
// COOKIE_SECURE.
func ConfigFromEnv() Config {
	ttl := 24 * time.Hour
	if v, err := time.ParseDuration(os.Getenv("SESSION_TTL")); err == nil && v > 0 {
		ttl = v
	}
	store := os.Getenv("SESSION_STORE")
	if store == "" {
		store = StoreSQL
	}
	secure, _ := strconv.ParseBool(os.Getenv("COOKIE_SECURE"))
	return Config{
		Secret: []byte(os.Getenv("SESSION_SECRET")),
		TTL:    ttl,
		Store:  store,
		Secure: secure,
	}
}

// RandomSecret returns a fresh 32-byte signing secret. Sessions signed with
// it do not survive a restart.
func RandomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Manager issues, resolves and revokes cookie sessions.
type Manager struct {
	cfg   Config
	store Store
	now   func() time.Time
}

func NewManager(cfg Config, store Store) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrWeakSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Manager{cfg: cfg, store: store, now: time.Now}, nil
}

// Start persists a new session for userID and sets the signed cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID int64) error {
	now := m.now()
	sess := &Session{
		ID:        utilities.NewKSUID(),
		UserID:    userID,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	claims := Claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.setCookie(w, signed, int(m.cfg.TTL.Seconds()))
	return nil
}

// Resolve validates the cookie signature, expiry and store presence.
func (m *Manager) Resolve(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}
	claims, err := m.parse(c.Value)
	if err != nil {
		return nil, err
	}
	sess, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if strconv.FormatInt(sess.UserID, 10) != claims.Subject || !sess.ExpiresAt.After(m.now()) {
		return nil, ErrInvalidToken
	}
	return sess, nil
}

// End revokes the session named by the cookie, if any, and always expires
// the cookie.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	m.setCookie(w, "", -1)
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	claims, err := m.parse(c.Value)
	if err != nil {
		return nil
	}
	if err := m.store.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (m *Manager) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
