package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKVClient struct {
	lastSetKey string
	lastSetVal interface{}
	lastSetTTL time.Duration
	lastExists []string
	lastDel    []string
	lastGetDel string

	setErr    error
	existsErr error
	delErr    error
	getDelErr error
	existsN   int64
	getDelVal string
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetVal = value
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExists = keys
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	cmd.SetVal(m.existsN)
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func (m *mockRedisKVClient) GetDel(ctx context.Context, key string) *redis.StringCmd {
	m.lastGetDel = key
	cmd := redis.NewStringCmd(ctx)
	if m.getDelErr != nil {
		cmd.SetErr(m.getDelErr)
		return cmd
	}
	cmd.SetVal(m.getDelVal)
	return cmd
}

func TestMemoryRefreshTokenStore_Basics(t *testing.T) {
	store := NewMemoryRefreshTokenStore()

	ok, err := store.Exists("missing")
	if err != nil || ok {
		t.Fatalf("expected missing token false,nil; got %v,%v", ok, err)
	}

	if err := store.Store("jti-1", "u1", 50*time.Millisecond); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	ok, err = store.Exists("jti-1")
	if err != nil || !ok {
		t.Fatalf("expected token exists, got %v,%v", ok, err)
	}

	time.Sleep(70 * time.Millisecond)
	ok, err = store.Exists("jti-1")
	if err != nil || ok {
		t.Fatalf("expected token expired, got %v,%v", ok, err)
	}
}

func TestMemoryRefreshTokenStore_RevokeAndEmptyJTI(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	if err := store.Store("", "u1", time.Minute); err != nil {
		t.Fatalf("empty jti store should be no-op, got %v", err)
	}
	if err := store.Store("jti-2", "u1", time.Minute); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := store.Revoke("jti-2"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, err := store.Exists("jti-2")
	if err != nil || ok {
		t.Fatalf("expected revoked token absent, got %v,%v", ok, err)
	}
}

func TestMemoryPasswordResetStore_SingleUse(t *testing.T) {
	store := NewMemoryPasswordResetStore()

	if err := store.Save("tok-1", "u1", time.Minute); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	userID, err := store.Consume("tok-1")
	if err != nil || userID != "u1" {
		t.Fatalf("expected u1,nil; got %q,%v", userID, err)
	}
	if _, err := store.Consume("tok-1"); err == nil {
		t.Fatal("expected second consume to fail")
	}
}

func TestMemoryPasswordResetStore_Expired(t *testing.T) {
	store := NewMemoryPasswordResetStore()

	if err := store.Save("tok-1", "u1", -time.Second); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.Consume("tok-1"); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestRedisRefreshTokenStore_Basics(t *testing.T) {
	mock := &mockRedisKVClient{existsN: 1}
	store := &redisRefreshTokenStore{
		client: mock,
		prefix: "auth:refresh:",
	}

	if err := store.Store(" j1 ", "u1", 0); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if mock.lastSetKey != "auth:refresh:j1" {
		t.Fatalf("unexpected key, got %q", mock.lastSetKey)
	}
	if mock.lastSetTTL <= 0 {
		t.Fatalf("expected positive TTL fallback, got %v", mock.lastSetTTL)
	}

	ok, err := store.Exists(" j1 ")
	if err != nil || !ok {
		t.Fatalf("expected exists true,nil; got %v,%v", ok, err)
	}
	if len(mock.lastExists) != 1 || mock.lastExists[0] != "auth:refresh:j1" {
		t.Fatalf("unexpected exists key: %+v", mock.lastExists)
	}

	if err := store.Revoke(" j1 "); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "auth:refresh:j1" {
		t.Fatalf("unexpected del key: %+v", mock.lastDel)
	}
}

func TestRedisRefreshTokenStore_ErrorPathsAndEmptyJTI(t *testing.T) {
	mock := &mockRedisKVClient{
		setErr:    errors.New("set failed"),
		existsErr: errors.New("exists failed"),
		delErr:    errors.New("del failed"),
	}
	store := &redisRefreshTokenStore{
		client: mock,
		prefix: "auth:refresh:",
	}

	if err := store.Store("", "u1", time.Minute); err != nil {
		t.Fatalf("empty jti store should be no-op, got %v", err)
	}
	ok, err := store.Exists("")
	if err != nil || ok {
		t.Fatalf("empty jti exists should be false,nil; got %v,%v", ok, err)
	}
	if err := store.Revoke(""); err != nil {
		t.Fatalf("empty jti revoke should be no-op, got %v", err)
	}

	if err := store.Store("j2", "u1", time.Minute); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := store.Exists("j2"); err == nil {
		t.Fatalf("expected exists error")
	}
	if err := store.Revoke("j2"); err == nil {
		t.Fatalf("expected revoke error")
	}
}

func TestRedisPasswordResetStore_ConsumeUsesGetDel(t *testing.T) {
	mock := &mockRedisKVClient{getDelVal: "u1"}
	store := &redisPasswordResetStore{
		client: mock,
		prefix: "auth:reset:",
	}

	if err := store.Save(" t1 ", "u1", 0); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if mock.lastSetKey != "auth:reset:t1" || mock.lastSetTTL <= 0 {
		t.Fatalf("unexpected set: key=%q ttl=%v", mock.lastSetKey, mock.lastSetTTL)
	}

	userID, err := store.Consume(" t1 ")
	if err != nil || userID != "u1" {
		t.Fatalf("expected u1,nil; got %q,%v", userID, err)
	}
	if mock.lastGetDel != "auth:reset:t1" {
		t.Fatalf("unexpected getdel key: %q", mock.lastGetDel)
	}
}

func TestRedisPasswordResetStore_MissingTokenIsNotFound(t *testing.T) {
	mock := &mockRedisKVClient{getDelErr: redis.Nil}
	store := &redisPasswordResetStore{
		client: mock,
		prefix: "auth:reset:",
	}

	if _, err := store.Consume("nope"); !errors.Is(err, errTokenNotFound) {
		t.Fatalf("expected errTokenNotFound, got %v", err)
	}
}
