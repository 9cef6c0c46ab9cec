package testutil

import (
	"testing"
	"time"

	"github.com/sbabadag/sevapp/internal/cache"
)

// NewTestCache creates an in-memory SQLiteCache with all migrations
// applied. It automatically closes the cache when the test completes.
func NewTestCache(t *testing.T) *cache.SQLiteCache {
	t.Helper()

	c, err := cache.NewSQLiteCache(":memory:")
	if err != nil {
		t.Fatalf("creating test cache: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("closing test cache: %v", err)
		}
	})

	return c
}

// Eventually polls cond until it holds or the timeout expires. The
// store applies source events asynchronously, so assertions about its
// state go through here.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// Never asserts cond does not become true within the window.
func Never(t *testing.T, window time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(window)
	for time.Now().Before(deadline) {
		if cond() {
			t.Fatalf("forbidden condition became true: %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
