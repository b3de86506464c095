package evqueue

import (
	"context"
	"testing"
	"time"
)

func TestPushPopFIFO(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)
	ctx := context.Background()
	for _, want := range []int{1, 2, 3} {
		got, err := q.Pop(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %d want %d", got, want)
		}
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New[string]()
	done := make(chan string, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err != nil {
			done <- "error: " + err.Error()
			return
		}
		done <- v
	}()
	time.Sleep(10 * time.Millisecond)
	q.Push("hello")
	select {
	case v := <-done:
		if v != "hello" {
			t.Fatalf("got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Pop")
	}
}

func TestPopRespectsContextCancellation(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(ctx)
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error from cancelled Pop")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cancellation")
	}
}

func TestCloseUnblocksPop(t *testing.T) {
	q := New[int]()
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error after close")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close to unblock Pop")
	}
}

func TestPushAfterCloseIsNoop(t *testing.T) {
	q := New[int]()
	q.Close()
	q.Push(1)
	if q.Len() != 0 {
		t.Fatalf("expected push after close to be dropped, len=%d", q.Len())
	}
}
