package savedquiz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "")
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exerciseStore(t, ctx, store)
}

func TestRedisStoreReadsBrowserFormat(t *testing.T) {
	store, mr := newTestRedisStore(t)
	if err := mr.Set(DefaultKey, `[{"title":"Old","pgn":"1. d4 *","saveDate":"2022-02-02T02:02:02.000Z"}]`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	list, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "Old" || list[0].ID == "" {
		t.Fatalf("list = %+v", list)
	}
	if err := store.Delete(context.Background(), list[0].ID); err != nil {
		t.Fatalf("delete legacy: %v", err)
	}
	raw, err := mr.Get(DefaultKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if raw != "[]" {
		t.Fatalf("stored = %s", raw)
	}
}

func TestRedisStoreEmptyKey(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	list, err := store.List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %v, %v", list, err)
	}
}
