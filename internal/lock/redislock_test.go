package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Locker{R: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestWithLockRunsCallback(t *testing.T) {
	locker, mr := newLocker(t)

	ran := false
	err := locker.WithLock(context.Background(), "catalog:refresh", time.Minute, func(context.Context) error {
		ran = true
		if !mr.Exists("catalog:refresh") {
			t.Error("lock key must be held during the callback")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with lock: %v", err)
	}
	if !ran {
		t.Fatal("callback did not run")
	}
	if mr.Exists("catalog:refresh") {
		t.Fatal("lock must be released after the callback")
	}
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker, mr := newLocker(t)

	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), "catalog:refresh", time.Minute, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if mr.Exists("catalog:refresh") {
		t.Fatal("lock must be released even when the callback fails")
	}
}

func TestWithLockWaitsForHolder(t *testing.T) {
	locker, _ := newLocker(t)

	acquired := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = locker.WithLock(context.Background(), "catalog:refresh", time.Minute, func(context.Context) error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := locker.WithLock(ctx, "catalog:refresh", time.Minute, func(context.Context) error {
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline while lock is held, got %v", err)
	}
	close(release)
}

func TestWithLockRequiresClient(t *testing.T) {
	err := Locker{}.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error without redis client")
	}
}
