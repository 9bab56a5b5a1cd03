package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunNowWithoutDatabase(t *testing.T) {
	s := New(nil)
	out, err := s.RunNow(context.Background(), JobStoreRefresh, func(ctx context.Context) (any, error) {
		return map[string]int{"version": 3}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.(map[string]int)["version"]; got != 3 {
		t.Fatalf("expected details passed through, got %v", out)
	}

	boom := errors.New("boom")
	if _, err := s.RunNow(context.Background(), JobStoreRefresh, func(ctx context.Context) (any, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected run error, got %v", err)
	}
}

func TestWorkerDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(nil)
	s.Start(ctx)

	done := make(chan struct{})
	if !s.Enqueue(JobAuditRetention, func(ctx context.Context) (any, error) {
		close(done)
		return nil, nil
	}) {
		t.Fatal("enqueue rejected on an empty queue")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job never ran")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	s := &Service{queue: make(chan job, 1)}
	noop := func(ctx context.Context) (any, error) { return nil, nil }
	if !s.Enqueue(JobStoreRefresh, noop) {
		t.Fatal("first enqueue should fit")
	}
	if s.Enqueue(JobStoreRefresh, noop) {
		t.Fatal("second enqueue should be dropped")
	}
}

func TestEveryIgnoresNonPositiveInterval(t *testing.T) {
	s := New(nil)
	s.Every(context.Background(), JobStoreRefresh, 0, func(ctx context.Context) (any, error) {
		t.Fatal("should not run")
		return nil, nil
	})
	if len(s.queue) != 0 {
		t.Fatal("nothing should be queued")
	}
}
