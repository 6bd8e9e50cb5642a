package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	sessionrepo "github.com/ovaphlow/pitchfork/project-catalog/internal/session/repo"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions by ID.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// SQLStore keeps sessions in the relational database.
type SQLStore struct {
	repo *sessionrepo.SessionRepo
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{repo: sessionrepo.NewSessionRepo(db)}
}

func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	return s.repo.Save(ctx, sess.ID, sess.UserID, sess.ExpiresAt)
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Session, error) {
	userID, expiresAt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &Session{ID: id, UserID: userID, ExpiresAt: expiresAt}, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// PurgeExpired drops sessions whose expiry has passed.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, time.Now())
}

// RedisStore keeps sessions as `session:<id>` keys expiring with the session.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(id string) string { return "session:" + id }

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKey(sess.ID), b, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	b, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, redisKey(id)).Err()
}
