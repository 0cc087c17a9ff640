package mqtt

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestMessageRateLimiter_AllowsUnderLimit(t *testing.T) {
	r := newMessageRateLimiter(5, time.Second, slog.Default())
	for i := 0; i < 5; i++ {
		if !r.allow() {
			t.Fatalf("message %d should be allowed under limit", i)
		}
	}
}

func TestMessageRateLimiter_DropsOverLimit(t *testing.T) {
	r := newMessageRateLimiter(2, time.Second, slog.Default())
	r.allow()
	r.allow()
	if r.allow() {
		t.Fatal("third message should be dropped over limit")
	}
	if r.dropped.Load() != 1 {
		t.Errorf("dropped count = %d, want 1", r.dropped.Load())
	}
}

func TestMessageRateLimiter_ResetsOnInterval(t *testing.T) {
	r := newMessageRateLimiter(1, 20*time.Millisecond, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.start(ctx)

	if !r.allow() {
		t.Fatal("first message should be allowed")
	}
	if r.allow() {
		t.Fatal("second message should be dropped before reset")
	}

	time.Sleep(40 * time.Millisecond)

	if !r.allow() {
		t.Fatal("message after interval reset should be allowed")
	}
}
