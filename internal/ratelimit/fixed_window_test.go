package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestLimiter(t *testing.T, addr string, limit int) *FixedWindowLimiter {
	t.Helper()
	limiter, err := NewFixedWindowLimiter(Options{Addr: addr, Prefix: "test:ratelimit", Limit: limit, Window: time.Minute})
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	t.Cleanup(func() { _ = limiter.Close() })
	return limiter
}

func TestFixedWindowLimiterBlocksOverQuota(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter := newTestLimiter(t, srv.Addr(), 2)
	ctx := context.Background()

	if !limiter.Allow(ctx, "ip-1") || !limiter.Allow(ctx, "ip-1") {
		t.Fatalf("first two requests should pass")
	}
	if limiter.Allow(ctx, "ip-1") {
		t.Fatalf("third request should be blocked")
	}
	if !limiter.Allow(ctx, "ip-2") {
		t.Fatalf("other keys keep their own quota")
	}
}

func TestFixedWindowLimiterResetsNextWindow(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter := newTestLimiter(t, srv.Addr(), 1)
	ctx := context.Background()

	base := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }
	if !limiter.Allow(ctx, "ip-1") {
		t.Fatalf("first request should pass")
	}
	if limiter.Allow(ctx, "ip-1") {
		t.Fatalf("second request in window should be blocked")
	}
	limiter.now = func() time.Time { return base.Add(time.Minute) }
	if !limiter.Allow(ctx, "ip-1") {
		t.Fatalf("request in next window should pass")
	}
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	limiter := newTestLimiter(t, srv.Addr(), 1)
	srv.Close()
	if limiter.Allow(context.Background(), "ip-1") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestNewFixedWindowLimiterValidates(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "missing addr", opts: Options{Limit: 1, Window: time.Second}},
		{name: "zero limit", opts: Options{Addr: "127.0.0.1:6379", Window: time.Second}},
		{name: "zero window", opts: Options{Addr: "127.0.0.1:6379", Limit: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if l, err := NewFixedWindowLimiter(tc.opts); err == nil || l != nil {
				t.Fatalf("expected constructor error")
			}
		})
	}
}
