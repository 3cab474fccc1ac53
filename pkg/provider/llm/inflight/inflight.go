// Package inflight implements the InFlightRegistry (spec component G): a
// process-wide map from a caller-supplied id to a cancellation handle, so an
// out-of-band caller (the webserver, a Discord slash command handler) can
// cancel a running stream_completion call it does not otherwise hold a
// reference to.
//
// Grounded on spec §4.G and §5's "fine-grained locking around a map; MUST
// NOT hold its lock across any await" rule, and on the teacher's
// internal/resilience circuit breaker for the sync.Mutex-guarded-map idiom.
package inflight

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Cancel when no handle is registered under id,
// either because it was never inserted, already cancelled, or already
// removed via Handle.Done.
var ErrNotFound = errors.New("inflight: no request registered under this id")

// Handle is returned by Registry.Insert. The caller passes Handle.Context()
// into the completion call it is fronting; calling Cancel (directly or via
// Registry.Cancel) triggers that context's cancellation. Done must be called
// exactly once, when the call finishes normally, to remove the entry from
// the registry.
type Handle struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	registry *Registry
}

// Context returns the cancellable context backing this handle.
func (h *Handle) Context() context.Context { return h.ctx }

// Cancel triggers this handle's cancellation token directly, without going
// through the registry's id lookup. Idempotent.
func (h *Handle) Cancel() { h.cancel() }

// Done removes this handle's entry from the registry and releases its
// context. Callers must invoke Done when the fronted call completes,
// whether it succeeded, failed, or was cancelled, so the registry does not
// accumulate stale entries.
func (h *Handle) Done() {
	h.registry.remove(h)
	h.cancel()
}

// Registry is a process-wide id -> cancellation-handle map. The zero value
// is not usable; construct with New. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Handle
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*Handle)}
}

// Insert derives a cancellable context from parent, registers it under id,
// and returns the Handle. If id is already registered, the previous entry's
// handle is cancelled and replaced: a caller reusing an id implicitly
// supersedes whatever request was previously tracked under it.
func (r *Registry) Insert(parent context.Context, id string) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{id: id, cancel: cancel, registry: r}
	h.ctx = ctx

	r.mu.Lock()
	prev, existed := r.entries[id]
	r.entries[id] = h
	r.mu.Unlock()

	if existed {
		prev.cancel()
	}
	return h
}

// InsertGenerated is Insert for callers with no natural request id of their
// own (the HTTP and Discord front ends generate one to hand back to the
// caller for later cancellation). The id is a uuid.NewString() v4 UUID,
// returned alongside the Handle.
func (r *Registry) InsertGenerated(parent context.Context) (*Handle, string) {
	id := uuid.NewString()
	return r.Insert(parent, id), id
}

// Cancel looks up the handle registered under id, triggers its
// cancellation token, and drops it from the registry. Returns ErrNotFound
// if no handle is registered under id.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	h, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	h.cancel()
	return nil
}

// Len reports how many calls are currently tracked. Intended for tests and
// diagnostics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) remove(h *Handle) {
	r.mu.Lock()
	if r.entries[h.id] == h {
		delete(r.entries, h.id)
	}
	r.mu.Unlock()
}

// RunWithCancellation races task against ctx, matching spec §4.G's
// run_with_cancellation composition rule: if ctx fires first, it returns
// llm.ErrUserCancelled immediately without waiting for task (which must
// itself observe ctx and exit on its own). If task finishes first, its
// result is returned directly.
//
// task is run on its own goroutine so a task that ignores ctx still lets
// RunWithCancellation return promptly; the goroutine is left to finish in
// the background (it will observe ctx.Done on its next suspension point,
// per the cooperative cancellation model in spec §5).
func RunWithCancellation[T any](ctx context.Context, cancelErr error, task func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := task()
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, cancelErr
	case r := <-done:
		return r.val, r.err
	}
}
