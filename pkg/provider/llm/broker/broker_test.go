package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
)

// fakeClient is a minimal llm.Client test double: each call to
// StreamCompletion pops the next scripted response/error pair and, on
// success, sends a single delta before returning.
type fakeClient struct {
	mu           sync.Mutex
	kind         llm.ProviderKind
	responses    []scriptedResponse
	calls        int
	fimResponses []scriptedResponse
	fimCalls     int
}

type scriptedResponse struct {
	answer string
	err    error
}

func (f *fakeClient) ProviderTag() llm.ProviderTag { return llm.ProviderTag{} }

func (f *fakeClient) StreamCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (llm.FinalResponse, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	var r scriptedResponse
	if idx < len(f.responses) {
		r = f.responses[idx]
	} else {
		r = f.responses[len(f.responses)-1]
	}
	f.mu.Unlock()

	if r.err != nil {
		return llm.FinalResponse{}, r.err
	}
	d := r.answer
	select {
	case sink <- llm.DeltaRecord{CumulativeSoFar: r.answer, Delta: &d, Model: req.Model}:
	case <-ctx.Done():
		return llm.FinalResponse{}, llm.ErrUserCancelled
	}
	return llm.FinalResponse{Answer: r.answer, Model: req.Model}, nil
}

func (f *fakeClient) StreamPromptCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (string, error) {
	f.mu.Lock()
	idx := f.fimCalls
	f.fimCalls++
	var r scriptedResponse
	if idx < len(f.fimResponses) {
		r = f.fimResponses[idx]
	} else if len(f.fimResponses) > 0 {
		r = f.fimResponses[len(f.fimResponses)-1]
	} else {
		f.mu.Unlock()
		return "", llm.ErrUnsupportedModel
	}
	f.mu.Unlock()

	if r.err != nil {
		return "", r.err
	}
	d := r.answer
	select {
	case sink <- llm.DeltaRecord{CumulativeSoFar: r.answer, Delta: &d, Model: req.Model}:
	case <-ctx.Done():
		return "", llm.ErrUserCancelled
	}
	return r.answer, nil
}

func (f *fakeClient) fimCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fimCalls
}

func (f *fakeClient) Completion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest) (string, error) {
	resp, err := f.StreamCompletion(ctx, cred, req, make(chan llm.DeltaRecord, 1))
	return resp.Answer, err
}

func (f *fakeClient) CountTokens(req llm.CompletionRequest) (int, error) { return 0, nil }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func drain(t *testing.T, ch chan llm.DeltaRecord) []llm.DeltaRecord {
	t.Helper()
	var out []llm.DeltaRecord
	for rec := range ch {
		out = append(out, rec)
	}
	return out
}

func TestBroker_SucceedsOnFirstAttempt(t *testing.T) {
	primary := &fakeClient{kind: llm.ProviderOpenAI, responses: []scriptedResponse{{answer: "hello"}}}
	b := New(StaticResolver{llm.ProviderOpenAI: primary})

	sink := make(chan llm.DeltaRecord, 4)
	req := Request{
		Completion: llm.CompletionRequest{Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}},
		Primary:    Attempt{Model: llm.Tag(llm.Gpt4O), Cred: llm.NewAPIKeyCredential(llm.ProviderOpenAI, "k")},
	}

	resp, err := b.StreamCompletion(context.Background(), req, sink)
	close(sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != "hello" {
		t.Fatalf("answer = %q, want %q", resp.Answer, "hello")
	}
	if primary.callCount() != 1 {
		t.Fatalf("primary called %d times, want 1", primary.callCount())
	}
	deltas := drain(t, sink)
	if len(deltas) != 1 || deltas[0].CumulativeSoFar != "hello" {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}
}

func TestBroker_AlternatesToFallbackOnFailure(t *testing.T) {
	primary := &fakeClient{responses: []scriptedResponse{{err: llm.ErrTransport}, {err: llm.ErrTransport}}}
	fallback := &fakeClient{responses: []scriptedResponse{{answer: "from fallback"}}}

	resolver := StaticResolver{
		llm.ProviderOpenAI:    primary,
		llm.ProviderAnthropic: fallback,
	}
	b := New(resolver)
	b.rng = func() float64 { return 0 } // no jitter, deterministic test

	sink := make(chan llm.DeltaRecord, 4)
	req := Request{
		Completion: llm.CompletionRequest{Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}},
		Primary:    Attempt{Model: llm.Tag(llm.Gpt4O), Cred: llm.NewAPIKeyCredential(llm.ProviderOpenAI, "k")},
		Fallback:   &Attempt{Model: llm.Tag(llm.ClaudeSonnet), Cred: llm.NewAPIKeyCredential(llm.ProviderAnthropic, "k2")},
		MaxAttempts: 3,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := b.StreamCompletion(ctx, req, sink)
	close(sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != "from fallback" {
		t.Fatalf("answer = %q, want %q", resp.Answer, "from fallback")
	}
	if primary.callCount() != 1 {
		t.Fatalf("primary called %d times, want 1", primary.callCount())
	}
	if fallback.callCount() != 1 {
		t.Fatalf("fallback called %d times, want 1", fallback.callCount())
	}
}

func TestBroker_RetriesExhausted(t *testing.T) {
	primary := &fakeClient{responses: []scriptedResponse{{err: llm.ErrTransport}}}
	b := New(StaticResolver{llm.ProviderOpenAI: primary})
	b.rng = func() float64 { return 0 }

	sink := make(chan llm.DeltaRecord, 4)
	req := Request{
		Completion:  llm.CompletionRequest{Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}},
		Primary:     Attempt{Model: llm.Tag(llm.Gpt4O), Cred: llm.NewAPIKeyCredential(llm.ProviderOpenAI, "k")},
		MaxAttempts: 2,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, err := b.StreamCompletion(ctx, req, sink)
	close(sink)
	if !errors.Is(err, llm.ErrRetriesExhausted) {
		t.Fatalf("err = %v, want wrapping ErrRetriesExhausted", err)
	}
	if primary.callCount() != 2 {
		t.Fatalf("primary called %d times, want 2", primary.callCount())
	}
}

func TestBroker_CancellationIsNeverRetried(t *testing.T) {
	primary := &fakeClient{responses: []scriptedResponse{{err: llm.ErrUserCancelled}}}
	b := New(StaticResolver{llm.ProviderOpenAI: primary})

	sink := make(chan llm.DeltaRecord, 4)
	req := Request{
		Completion:  llm.CompletionRequest{Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}},
		Primary:     Attempt{Model: llm.Tag(llm.Gpt4O), Cred: llm.NewAPIKeyCredential(llm.ProviderOpenAI, "k")},
		MaxAttempts: 4,
	}

	_, err := b.StreamCompletion(context.Background(), req, sink)
	close(sink)
	if !errors.Is(err, llm.ErrUserCancelled) {
		t.Fatalf("err = %v, want ErrUserCancelled", err)
	}
	if primary.callCount() != 1 {
		t.Fatalf("primary called %d times, want 1 (cancellation must not retry)", primary.callCount())
	}
}

func TestBroker_StreamPromptCompletion_SucceedsOnFirstAttempt(t *testing.T) {
	primary := &fakeClient{fimResponses: []scriptedResponse{{answer: "<MID>infill</MID>"}}}
	b := New(StaticResolver{llm.ProviderOpenAI: primary})

	sink := make(chan llm.DeltaRecord, 4)
	req := Request{
		Completion: llm.CompletionRequest{Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "<PRE>a<SUF>b<MID>"}}},
		Primary:    Attempt{Model: llm.Tag(llm.Gpt4O), Cred: llm.NewAPIKeyCredential(llm.ProviderOpenAI, "k")},
	}

	text, err := b.StreamPromptCompletion(context.Background(), req, sink)
	close(sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "<MID>infill</MID>" {
		t.Fatalf("text = %q, want infill text", text)
	}
	if primary.fimCallCount() != 1 {
		t.Fatalf("fim called %d times, want 1", primary.fimCallCount())
	}
}

func TestBroker_StreamPromptCompletion_AlternatesToFallbackOnFailure(t *testing.T) {
	primary := &fakeClient{fimResponses: []scriptedResponse{{err: llm.ErrTransport}}}
	fallback := &fakeClient{fimResponses: []scriptedResponse{{answer: "fallback infill"}}}

	resolver := StaticResolver{
		llm.ProviderOpenAI:    primary,
		llm.ProviderAnthropic: fallback,
	}
	b := New(resolver)
	b.rng = func() float64 { return 0 }

	sink := make(chan llm.DeltaRecord, 4)
	req := Request{
		Completion: llm.CompletionRequest{Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "<PRE>a<SUF>b<MID>"}}},
		Primary:    Attempt{Model: llm.Tag(llm.Gpt4O), Cred: llm.NewAPIKeyCredential(llm.ProviderOpenAI, "k")},
		Fallback:   &Attempt{Model: llm.Tag(llm.ClaudeSonnet), Cred: llm.NewAPIKeyCredential(llm.ProviderAnthropic, "k2")},
		MaxAttempts: 3,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	text, err := b.StreamPromptCompletion(ctx, req, sink)
	close(sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "fallback infill" {
		t.Fatalf("text = %q, want %q", text, "fallback infill")
	}
}

func TestBroker_CancelledBeforeDispatch(t *testing.T) {
	primary := &fakeClient{responses: []scriptedResponse{{answer: "unreachable"}}}
	b := New(StaticResolver{llm.ProviderOpenAI: primary})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := make(chan llm.DeltaRecord, 4)
	req := Request{
		Completion: llm.CompletionRequest{Messages: []llm.ChatMessage{{Role: llm.RoleUser, Content: "hi"}}},
		Primary:    Attempt{Model: llm.Tag(llm.Gpt4O), Cred: llm.NewAPIKeyCredential(llm.ProviderOpenAI, "k")},
	}

	_, err := b.StreamCompletion(ctx, req, sink)
	close(sink)
	if !errors.Is(err, llm.ErrUserCancelled) {
		t.Fatalf("err = %v, want ErrUserCancelled", err)
	}
	if primary.callCount() != 0 {
		t.Fatalf("primary called %d times, want 0", primary.callCount())
	}
}
