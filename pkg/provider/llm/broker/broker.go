// Package broker implements the Completion Broker (spec component F): the
// single entry point that accepts a provider-neutral request plus a
// credential, dispatches it to the matching Provider Client, multiplexes
// its delta stream to the caller's sink, and retries across a fallback
// model+provider+credential on transient failure.
//
// Grounded on the teacher's internal/resilience.FallbackGroup (primary/
// fallback alternation, circuit breaker skip) and internal/resilience's
// jittered-backoff style, generalized to spec §4.F's specific policy:
// bounded attempts (default 4), strict primary/fallback alternation rather
// than an ordered list, and a backoff schedule of base=10s growing with the
// attempt index.
package broker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/llmobserve"
)

// DefaultMaxAttempts is the bounded retry budget used when Config.MaxAttempts
// is zero. Spec §4.F: "default 4".
const DefaultMaxAttempts = 4

// StreamApplyMaxAttempts is the retry budget spec §4.F calls out for
// stream-apply code-edit flows, which must not silently repeat an edit.
const StreamApplyMaxAttempts = 1

// BackoffBase is the base delay of the jittered backoff schedule (spec
// §4.F: "base=10s, growth ∝ attempt_idx").
const BackoffBase = 10 * time.Second

// ClientResolver maps a ProviderKind to the Provider Client that serves it.
// Implementations are expected to be a static, immutable-after-init
// registry (e.g. a map populated at process init), matching the Model
// Registry and Credential Store lifecycle in spec §3.
type ClientResolver interface {
	ClientFor(kind llm.ProviderKind) (llm.Client, bool)
}

// StaticResolver is the straightforward ClientResolver: a fixed map built
// once at construction and never mutated afterward.
type StaticResolver map[llm.ProviderKind]llm.Client

// ClientFor implements ClientResolver.
func (r StaticResolver) ClientFor(kind llm.ProviderKind) (llm.Client, bool) {
	c, ok := r[kind]
	return c, ok
}

// Attempt pairs a model+credential pair the broker may dispatch to. The
// zero value of Fallback in a Request means no fallback is configured: the
// broker makes a single attempt (subject to MaxAttempts) against Primary
// only, retrying the same primary on transient failure without ever
// alternating.
type Attempt struct {
	Model llm.ModelTag
	Cred  llm.Credential
}

// Request is everything the Completion Broker needs for one logical call:
// the provider-neutral completion shape, a primary model+credential, an
// optional fallback to alternate with, and the metadata map surfaced to the
// Logging Hooks.
type Request struct {
	// Completion is the request shape; its Model field is overwritten per
	// attempt with Primary.Model or Fallback.Model before dispatch.
	Completion llm.CompletionRequest
	Primary    Attempt
	// Fallback is optional; a nil Fallback disables fallback alternation.
	Fallback *Attempt
	// MaxAttempts bounds the total number of dispatches, including the
	// first. Zero means DefaultMaxAttempts.
	MaxAttempts int
	// Metadata is attached verbatim to every attempt's outbound context;
	// the broker additionally sets "retries" to the current attempt index
	// before each dispatch.
	Metadata llmobserve.Metadata
}

// Broker is the Completion Broker entry point. The zero value is not
// usable; construct with New.
type Broker struct {
	resolver ClientResolver
	rng      func() float64
}

// New constructs a Broker dispatching through resolver.
func New(resolver ClientResolver) *Broker {
	return &Broker{resolver: resolver, rng: rand.Float64}
}

// StreamCompletion is the broker's single entry point (spec §6). It
// resolves the Provider Client for req.Primary's credential, dispatches,
// and on a retryable failure alternates to req.Fallback (when configured)
// with a jittered backoff between attempts, up to req.MaxAttempts total
// dispatches.
//
// Per spec §4.F's documented choice, the broker forwards deltas live as
// each attempt streams them rather than buffering per attempt: a sink
// consumer must treat a terminal error returned from this call as
// invalidating whatever prefix it has accumulated from earlier, failed
// attempts. Every attempt shares the single sink the caller supplied.
func (b *Broker) StreamCompletion(ctx context.Context, req Request, sink llm.Sink) (llm.FinalResponse, error) {
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if ctx.Err() != nil {
		return llm.FinalResponse{}, llm.ErrUserCancelled
	}

	var lastErr error
	for attemptIdx := 0; attemptIdx < maxAttempts; attemptIdx++ {
		attempt := b.attemptFor(req, attemptIdx)

		client, ok := b.resolver.ClientFor(attempt.Cred.ProviderKind())
		if !ok {
			lastErr = fmt.Errorf("%w: no client registered for provider kind %v", llm.ErrUnsupportedModel, attempt.Cred.ProviderKind())
			break
		}

		callReq := req.Completion
		callReq.Model = attempt.Model

		attemptCtx := llmobserve.WithMetadata(ctx, withAttempt(req.Metadata, attemptIdx))

		resp, err := client.StreamCompletion(attemptCtx, attempt.Cred, callReq, sink)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) {
			return llm.FinalResponse{}, err
		}

		if attemptIdx == maxAttempts-1 {
			break
		}

		if err := b.sleepBackoff(ctx, attemptIdx); err != nil {
			return llm.FinalResponse{}, err
		}
	}

	return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrRetriesExhausted, lastErr)
}

// StreamPromptCompletion is the fill-in-middle counterpart to
// StreamCompletion (spec §4.F supplement, grounded on the original's
// code_llama_infill.rs FIM entry point): same retry/alternation/backoff
// policy, dispatched through Client.StreamPromptCompletion instead, for
// providers whose infill shape differs from chat completion (literal
// <PRE>/<SUF>/<MID> prompts rather than a message list).
func (b *Broker) StreamPromptCompletion(ctx context.Context, req Request, sink llm.Sink) (string, error) {
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if ctx.Err() != nil {
		return "", llm.ErrUserCancelled
	}

	var lastErr error
	for attemptIdx := 0; attemptIdx < maxAttempts; attemptIdx++ {
		attempt := b.attemptFor(req, attemptIdx)

		client, ok := b.resolver.ClientFor(attempt.Cred.ProviderKind())
		if !ok {
			lastErr = fmt.Errorf("%w: no client registered for provider kind %v", llm.ErrUnsupportedModel, attempt.Cred.ProviderKind())
			break
		}

		callReq := req.Completion
		callReq.Model = attempt.Model

		attemptCtx := llmobserve.WithMetadata(ctx, withAttempt(req.Metadata, attemptIdx))

		text, err := client.StreamPromptCompletion(attemptCtx, attempt.Cred, callReq, sink)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !retryable(err) {
			return "", err
		}

		if attemptIdx == maxAttempts-1 {
			break
		}

		if err := b.sleepBackoff(ctx, attemptIdx); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: %v", llm.ErrRetriesExhausted, lastErr)
}

// Completion is StreamCompletion with a drained sink.
func (b *Broker) Completion(ctx context.Context, req Request) (llm.FinalResponse, error) {
	ch := make(chan llm.DeltaRecord, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range ch {
		}
	}()
	resp, err := b.StreamCompletion(ctx, req, ch)
	close(ch)
	<-done
	return resp, err
}

// attemptFor picks the primary or fallback Attempt for a given 0-based
// dispatch index, alternating on every attempt after the first per spec
// §4.F: "On each retry, alternate between primary and fallback."
func (b *Broker) attemptFor(req Request, attemptIdx int) Attempt {
	if req.Fallback == nil || attemptIdx%2 == 0 {
		return req.Primary
	}
	return *req.Fallback
}

// sleepBackoff waits between half and all of BackoffBase*(attemptIdx+1):
// half of that delay plus a random share (from b.rng) of the other half,
// honoring cancellation during the sleep per spec §5: "Cancellation during
// backoff sleep is honored."
func (b *Broker) sleepBackoff(ctx context.Context, attemptIdx int) error {
	growth := attemptIdx + 1
	base := BackoffBase * time.Duration(growth)
	jitter := time.Duration(b.rng() * float64(base))
	wait := base/2 + jitter/2

	select {
	case <-ctx.Done():
		return llm.ErrUserCancelled
	case <-time.After(wait):
		return nil
	}
}

func withAttempt(md llmobserve.Metadata, attemptIdx int) llmobserve.Metadata {
	out := make(llmobserve.Metadata, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	out["retries"] = fmt.Sprintf("%d", attemptIdx)
	return out
}

// retryable reports whether an error from a Provider Client attempt should
// trigger another dispatch rather than aborting immediately. Per spec §7:
// cancellation and a closed sink are never retried; everything else
// (transport errors, non-2xx responses, unauthorized, and a stream where no
// frame ever parsed) may be retried by the broker.
func retryable(err error) bool {
	if errors.Is(err, llm.ErrUserCancelled) || errors.Is(err, llm.ErrSinkClosed) {
		return false
	}
	return true
}
