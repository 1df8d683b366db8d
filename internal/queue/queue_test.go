package queue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Push(ctx, id); err != nil {
			t.Fatalf("push %s: %v", id, err)
		}
	}
	for _, want := range []string{"a", "b", "c"} {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if got != want {
			t.Fatalf("pop = %q, want %q", got, want)
		}
	}
}

func TestMemoryQueuePushBlocksWhenFull(t *testing.T) {
	q := NewMemoryQueue(1)
	if err := q.Push(context.Background(), "a"); err != nil {
		t.Fatalf("push: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Push(ctx, "b"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestMemoryQueueCloseDrainsBuffered(t *testing.T) {
	q := NewMemoryQueue(2)
	ctx := context.Background()
	_ = q.Push(ctx, "a")
	_ = q.Close()

	if err := q.Push(ctx, "b"); !errors.Is(err, ErrClosed) {
		t.Fatalf("push after close: expected ErrClosed, got %v", err)
	}
	got, err := q.Pop(ctx)
	if err != nil || got != "a" {
		t.Fatalf("expected buffered id, got %q err=%v", got, err)
	}
	if _, err := q.Pop(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryQueueCloseReleasesBlockedPush(t *testing.T) {
	q := NewMemoryQueue(1)
	_ = q.Push(context.Background(), "a")
	errCh := make(chan error, 1)
	go func() { errCh <- q.Push(context.Background(), "b") }()
	time.Sleep(10 * time.Millisecond)
	_ = q.Close()
	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("blocked push was not released by Close")
	}
}

func TestRedisQueueRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	key := "test:jobs:" + uuid.NewString()
	defer client.Del(ctx, key)
	q := NewRedisQueue(client, key)
	q.pollTimeout = 100 * time.Millisecond

	for _, id := range []string{"first", "second"} {
		if err := q.Push(ctx, id); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	for _, want := range []string{"first", "second"} {
		got, err := q.Pop(ctx)
		if err != nil || got != want {
			t.Fatalf("pop = %q err=%v, want %q", got, err, want)
		}
	}

	_ = q.Close()
	if _, err := q.Pop(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after close, got %v", err)
	}
}
