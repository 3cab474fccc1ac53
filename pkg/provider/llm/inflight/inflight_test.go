package inflight

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistry_CancelTriggersHandleContext(t *testing.T) {
	r := New()
	h := r.Insert(context.Background(), "call-1")
	defer h.Done()

	if err := h.Context().Err(); err != nil {
		t.Fatalf("handle context already done: %v", err)
	}

	if err := r.Cancel("call-1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	select {
	case <-h.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("handle context was not cancelled")
	}
}

func TestRegistry_CancelUnknownID(t *testing.T) {
	r := New()
	if err := r.Cancel("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistry_CancelIsIdempotent(t *testing.T) {
	r := New()
	h := r.Insert(context.Background(), "call-1")
	if err := r.Cancel("call-1"); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	if err := r.Cancel("call-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Cancel err = %v, want ErrNotFound (already removed)", err)
	}
	h.Cancel() // idempotent on the handle itself
}

func TestRegistry_DoneRemovesEntry(t *testing.T) {
	r := New()
	h := r.Insert(context.Background(), "call-1")
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	h.Done()
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after Done", r.Len())
	}
	if err := r.Cancel("call-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistry_InsertSupersedesPreviousHandle(t *testing.T) {
	r := New()
	first := r.Insert(context.Background(), "call-1")
	second := r.Insert(context.Background(), "call-1")
	defer second.Done()

	select {
	case <-first.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("reinserting under the same id did not cancel the previous handle")
	}
	if err := second.Context().Err(); err != nil {
		t.Fatalf("second handle should still be live: %v", err)
	}
}

func TestRunWithCancellation_TaskWins(t *testing.T) {
	ctx := context.Background()
	v, err := RunWithCancellation(ctx, errCancelled, func() (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", v, err)
	}
}

func TestRunWithCancellation_CtxWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	started := make(chan struct{})
	v, err := RunWithCancellation(ctx, errCancelled, func() (int, error) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	<-started
	if !errors.Is(err, errCancelled) {
		t.Fatalf("err = %v, want errCancelled", err)
	}
	if v != 0 {
		t.Fatalf("v = %d, want zero value", v)
	}
}

var errCancelled = errors.New("cancelled")
