package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/tofo/internal/domain/model"
)

func unit(seq int) Unit {
	return model.Unit{PlanID: "plan-1", Seq: seq, Target: &model.Target{Name: fmt.Sprintf("T-%d", seq)}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, unit(1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	u := <-q.Dequeue(ctx)
	if u.Seq != 1 || u.Target.Name != "T-1" {
		t.Errorf("expected unit 1, got %+v", u)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, unit(1)) || !q.Enqueue(ctx, unit(2)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, unit(3)) {
		t.Error("expected enqueue to fail when queue is full")
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.EnqueueWait(short, unit(3)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestInMemoryQueue_EnqueueWaitUnblocks(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.EnqueueWait(ctx, unit(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.EnqueueWait(ctx, unit(2)) }()

	ch := q.Dequeue(ctx)
	first := <-ch
	if err := <-done; err != nil {
		t.Fatalf("blocked enqueue failed: %v", err)
	}
	second := <-ch
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("expected FIFO order, got %d then %d", first.Seq, second.Seq)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	for i := range 3 {
		if !q.Enqueue(ctx, unit(i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if q.Enqueue(ctx, unit(9)) {
		t.Error("expected enqueue on closed queue to fail")
	}
	if err := q.EnqueueWait(ctx, unit(9)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}

	var got int
	for range q.Dequeue(ctx) {
		got++
	}
	if got != 3 {
		t.Errorf("expected queued units to drain after close, got %d", got)
	}
}

func TestInMemoryQueue_DequeueCancelled(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	_ = q.Enqueue(ctx, unit(1))
	_ = q.Enqueue(ctx, unit(2))

	ch := q.Dequeue(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		// Either the second unit raced through or the channel closed.
		_ = ok
	case <-time.After(time.Second):
		t.Fatal("dequeue channel did not settle after cancel")
	}
}
