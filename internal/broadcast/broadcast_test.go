package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecvDeliversInOrder(t *testing.T) {
	ch := New[int](4)
	sub := ch.Subscribe()

	ch.Send(1)
	ch.Send(2)

	v, err := sub.Recv(context.Background())
	if err != nil || v != 1 {
		t.Fatalf("got (%d, %v), want (1, nil)", v, err)
	}
	v, err = sub.Recv(context.Background())
	if err != nil || v != 2 {
		t.Fatalf("got (%d, %v), want (2, nil)", v, err)
	}
}

func TestSubscribeOnlySeesFutureMessages(t *testing.T) {
	ch := New[int](4)
	ch.Send(1)
	sub := ch.Subscribe()
	ch.Send(2)

	v, err := sub.Recv(context.Background())
	if err != nil || v != 2 {
		t.Fatalf("subscriber should only see messages sent after Subscribe, got (%d, %v)", v, err)
	}
}

func TestLaggedSubscriberReportsSkippedCount(t *testing.T) {
	ch := New[int](2)
	sub := ch.Subscribe()

	ch.Send(1)
	ch.Send(2)
	ch.Send(3) // overwrites the slot holding 1; sub is now 1 message behind

	_, err := sub.Recv(context.Background())
	var lagged *LaggedError
	if !errors.As(err, &lagged) {
		t.Fatalf("expected *LaggedError, got %v", err)
	}
	if lagged.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", lagged.Skipped)
	}

	// Next call succeeds from the oldest still-available message.
	v, err := sub.Recv(context.Background())
	if err != nil || v != 2 {
		t.Fatalf("got (%d, %v), want (2, nil) after lag recovery", v, err)
	}
}

func TestRecvBlocksUntilSend(t *testing.T) {
	ch := New[string](4)
	sub := ch.Subscribe()

	done := make(chan struct{})
	go func() {
		v, err := sub.Recv(context.Background())
		if err != nil || v != "hello" {
			t.Errorf("got (%q, %v), want (hello, nil)", v, err)
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	ch.Send("hello")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Send")
	}
}

func TestRecvHonorsContextCancellation(t *testing.T) {
	ch := New[int](4)
	sub := ch.Subscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sub.Recv(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded", err)
	}
}

func TestRecvReturnsErrClosedAfterDrain(t *testing.T) {
	ch := New[int](4)
	sub := ch.Subscribe()
	ch.Send(1)
	ch.Close()

	v, err := sub.Recv(context.Background())
	if err != nil || v != 1 {
		t.Fatalf("expected to drain buffered message first, got (%d, %v)", v, err)
	}

	_, err = sub.Recv(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}
