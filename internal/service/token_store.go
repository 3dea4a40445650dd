package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshTokenStore guarda jti de refresh tokens y permite revocarlos.
type RefreshTokenStore interface {
	Store(jti, userID string, ttl time.Duration) error
	Exists(jti string) (bool, error)
	Revoke(jti string) error
}

// PasswordResetStore guarda tokens de reseteo de password de un solo uso.
type PasswordResetStore interface {
	Save(token, userID string, ttl time.Duration) error
	Consume(token string) (string, error)
}

var errTokenNotFound = errors.New("token not found")

const redisOpTimeout = 500 * time.Millisecond

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

type memoryRefreshTokenStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
}

func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{items: make(map[string]memoryEntry)}
}

func (s *memoryRefreshTokenStore) Store(jti, userID string, ttl time.Duration) error {
	if strings.TrimSpace(jti) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[jti] = memoryEntry{userID: userID, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

func (s *memoryRefreshTokenStore) Exists(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[jti]
	if !ok {
		return false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, jti)
		return false, nil
	}
	return true, nil
}

func (s *memoryRefreshTokenStore) Revoke(jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, jti)
	return nil
}

// redisKVClient abstrae los comandos usados sobre *redis.Client.
type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

type redisRefreshTokenStore struct {
	client redisKVClient
	prefix string
}

func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return &redisRefreshTokenStore{client: client, prefix: "auth:refresh:"}
}

func (s *redisRefreshTokenStore) Store(jti, userID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, userID, ttl).Err()
}

func (s *redisRefreshTokenStore) Exists(jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisRefreshTokenStore) Revoke(jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Del(ctx, s.prefix+jti).Err()
}

type memoryPasswordResetStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
}

func NewMemoryPasswordResetStore() PasswordResetStore {
	return &memoryPasswordResetStore{items: make(map[string]memoryEntry)}
}

func (s *memoryPasswordResetStore) Save(token, userID string, ttl time.Duration) error {
	if strings.TrimSpace(token) == "" {
		return errTokenNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[token] = memoryEntry{userID: userID, expiresAt: time.Now().UTC().Add(ttl)}
	return nil
}

// Consume devuelve el userID asociado y elimina el token: un solo uso.
func (s *memoryPasswordResetStore) Consume(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[token]
	if !ok {
		return "", errTokenNotFound
	}
	delete(s.items, token)
	if time.Now().UTC().After(entry.expiresAt) {
		return "", errTokenNotFound
	}
	return entry.userID, nil
}

type redisPasswordResetStore struct {
	client redisKVClient
	prefix string
}

func NewRedisPasswordResetStore(client *redis.Client) PasswordResetStore {
	if client == nil {
		return nil
	}
	return &redisPasswordResetStore{client: client, prefix: "auth:reset:"}
}

func (s *redisPasswordResetStore) Save(token, userID string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errTokenNotFound
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.prefix+token, userID, ttl).Err()
}

func (s *redisPasswordResetStore) Consume(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errTokenNotFound
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	userID, err := s.client.GetDel(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errTokenNotFound
		}
		return "", err
	}
	return userID, nil
}
