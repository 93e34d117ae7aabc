package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, "test:"), mr
}

func TestCacheHelper_SetGet(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Name   string  `json:"name"`
		Rating float64 `json:"rating"`
	}

	stored := payload{Name: "Ada Lovelace", Rating: 4.5}
	if err := helper.Set(ctx, "professor:1", stored, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var loaded payload
	if err := helper.Get(ctx, "professor:1", &loaded); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded != stored {
		t.Errorf("Expected %+v, got %+v", stored, loaded)
	}
}

func TestCacheHelper_MissAndExpiry(t *testing.T) {
	helper, mr := newTestCache(t)
	ctx := context.Background()

	var out string
	if err := helper.Get(ctx, "missing", &out); err != ErrCacheNotFound {
		t.Errorf("Expected ErrCacheNotFound, got %v", err)
	}

	if err := helper.SetString(ctx, "short", "value", time.Minute); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := helper.GetString(ctx, "short"); err != ErrCacheNotFound {
		t.Errorf("Expected expiry miss, got %v", err)
	}
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	if err := helper.SetString(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}
	if err := helper.SetString(ctx, "b", "2", time.Minute); err != nil {
		t.Fatalf("SetString failed: %v", err)
	}

	if err := helper.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := helper.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Key should be deleted")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	keys := []string{"professor:id:1", "professor:id:2", "resource:list:all"}
	for _, k := range keys {
		if err := helper.SetString(ctx, k, "v", time.Minute); err != nil {
			t.Fatalf("SetString failed: %v", err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "professor:id:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	for _, k := range []string{"professor:id:1", "professor:id:2"} {
		exists, _ := helper.Exists(ctx, k)
		if exists {
			t.Errorf("Key %s should have been invalidated", k)
		}
	}
	exists, _ := helper.Exists(ctx, "resource:list:all")
	if !exists {
		t.Error("Unmatched key should survive")
	}
}

func TestCacheHelper_NilClientDegrades(t *testing.T) {
	helper := NewCacheHelper(nil, "test:")
	ctx := context.Background()

	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set on nil client should be a no-op, got %v", err)
	}

	var out string
	if err := helper.Get(ctx, "k", &out); err != ErrCacheNotAvailable {
		t.Errorf("Expected ErrCacheNotAvailable, got %v", err)
	}
	if err := helper.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete on nil client should be a no-op, got %v", err)
	}
}

func TestCacheOrExecute(t *testing.T) {
	helper, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"value": 42}, nil
	}

	var first map[string]int
	if err := helper.CacheOrExecute(ctx, "answer", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed: %v", err)
	}
	if first["value"] != 42 || calls != 1 {
		t.Errorf("Expected fetched value, got %v after %d calls", first, calls)
	}

	// The async cache write may still be in flight; wait for the key.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if exists, _ := helper.Exists(ctx, "answer"); exists {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	var second map[string]int
	if err := helper.CacheOrExecute(ctx, "answer", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed: %v", err)
	}
	if second["value"] != 42 {
		t.Errorf("Expected cached value, got %v", second)
	}
	if calls > 2 {
		t.Errorf("Fetch ran %d times", calls)
	}
}

func TestCacheManager_NilClient(t *testing.T) {
	cm := NewCacheManager(nil)

	if err := cm.HealthCheck(context.Background()); err != ErrCacheNotAvailable {
		t.Errorf("Expected ErrCacheNotAvailable, got %v", err)
	}
	if err := cm.InvalidateProfessor(context.Background(), 1); err != nil {
		t.Errorf("Invalidation on nil client should be a no-op, got %v", err)
	}
}
