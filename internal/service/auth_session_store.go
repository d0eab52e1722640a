package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// AuthSessionTTL bounds the Twitter authorization round trip.
const AuthSessionTTL = 10 * time.Minute

// AuthSession is the server-side half of one PKCE attempt.
type AuthSession struct {
	UserID       int64     `json:"user_id"`
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSessionStore keeps PKCE sessions between the redirect and the
// callback. Take is single use: a session can complete at most once.
type AuthSessionStore interface {
	Save(ctx context.Context, id string, session *AuthSession, ttl time.Duration) error
	Take(ctx context.Context, id string) (*AuthSession, error)
}

type redisAuthSessionStore struct {
	rdb *redis.Client
}

func NewRedisAuthSessionStore(rdb *redis.Client) AuthSessionStore {
	return &redisAuthSessionStore{rdb: rdb}
}

func authSessionKey(id string) string {
	return "voicepost:oauth:twitter:" + id
}

func (s *redisAuthSessionStore) Save(ctx context.Context, id string, session *AuthSession, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, authSessionKey(id), data, ttl).Err()
}

// Take returns nil, nil for a missing or expired session.
func (s *redisAuthSessionStore) Take(ctx context.Context, id string) (*AuthSession, error) {
	data, err := s.rdb.GetDel(ctx, authSessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var session AuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

type memoryAuthSessionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewMemoryAuthSessionStore is used when no Redis is configured. Sessions
// do not survive a restart and are not shared between instances.
func NewMemoryAuthSessionStore() AuthSessionStore {
	return &memoryAuthSessionStore{cache: cache.New(AuthSessionTTL, time.Minute)}
}

func (s *memoryAuthSessionStore) Save(_ context.Context, id string, session *AuthSession, ttl time.Duration) error {
	copied := *session
	s.cache.Set(id, &copied, ttl)
	return nil
}

func (s *memoryAuthSessionStore) Take(_ context.Context, id string) (*AuthSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.cache.Get(id)
	if !ok {
		return nil, nil
	}
	s.cache.Delete(id)
	return v.(*AuthSession), nil
}
