package llm

import "context"

// Client is the uniform contract every LLM provider client implements,
// matching spec §4.E. It is distinct from the teacher's original Provider
// interface (provider.go): Provider is the older, narrower contract used by
// the voice-AI host's cascade engine; Client is the full broker-facing
// contract with credential-based dispatch, prompt-style completions, and an
// explicit delta sink rather than a returned channel.
//
// Implementations must be safe for concurrent use and must honor ctx
// cancellation promptly at the next frame boundary.
type Client interface {
	// ProviderTag identifies which remote API this client speaks to.
	ProviderTag() ProviderTag

	// StreamCompletion sends req to the model and forwards DeltaRecords to
	// sink as they arrive, returning the FinalResponse once the stream ends.
	//
	// Per spec §4.E: rejects with ErrUnsupportedModel if the model has no
	// id mapping for this provider; ErrWrongCredentialType if cred does not
	// match this client, before any HTTP call; ErrUnauthorized on HTTP 401;
	// a *FailedResponseError on other non-2xx statuses; ErrSinkClosed if a
	// send to sink fails.
	StreamCompletion(ctx context.Context, cred Credential, req CompletionRequest, sink Sink) (FinalResponse, error)

	// StreamPromptCompletion is the fill-in-middle variant: req.Prompt is a
	// literal string (typically containing <PRE>/<SUF>/<MID> markers) sent
	// to the provider's prompt/completions endpoint. Returns the same error
	// kinds as StreamCompletion. Providers without a prompt endpoint (e.g.
	// GoogleAIStudio) always return ErrUnsupportedModel.
	StreamPromptCompletion(ctx context.Context, cred Credential, req CompletionRequest, sink Sink) (string, error)

	// Completion is StreamCompletion with a drained sink: convenience for
	// callers that only want the final answer.
	Completion(ctx context.Context, cred Credential, req CompletionRequest) (string, error)

	// CountTokens estimates the token cost of req under this client's model
	// family. The OpenAI client counts through the Tokenizer Broker; the
	// other clients use a local word-based approximation.
	CountTokens(req CompletionRequest) (int, error)
}

// DrainedCompletion runs StreamCompletion against a sink that is drained
// internally, returning only the FinalResponse. Provider clients implement
// their own Completion method this way; the helper is exported so thin
// wrapper clients (openaicompat profiles) can share the pattern without
// duplicating the goroutine plumbing.
func DrainedCompletion(ctx context.Context, c Client, cred Credential, req CompletionRequest) (string, error) {
	ch := make(chan DeltaRecord, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range ch {
		}
	}()
	resp, err := c.StreamCompletion(ctx, cred, req, ch)
	close(ch)
	<-done
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}
