package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/promptfmt"
)

// Client implements llm.Client once for every OpenAI-shaped provider,
// parameterized by a Profile. It is the mechanical core; each thin provider
// package (azure, fireworks, togetherai, openrouter, groq, ollama, lmstudio,
// codestory, openaicompatible) constructs one of these with its own Profile.
type Client struct {
	profile  Profile
	registry *modelcatalog.Registry
	http     *http.Client
}

// New constructs a Client for the given profile. httpClient may be nil to
// use http.DefaultClient.
func New(profile Profile, registry *modelcatalog.Registry, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{profile: profile, registry: registry, http: httpClient}
}

// ProviderTag implements llm.Client. It builds the tag from a zero
// Credential, so tags parameterized by credential values (OpenAI-Compatible,
// LMStudio, Azure) carry empty parameters here; ProviderTagForCredential
// returns the tag for a specific credential.
func (c *Client) ProviderTag() llm.ProviderTag {
	return c.profile.ProviderTag(llm.Credential{})
}

// ProviderTagForCredential returns the fully parameterized provider tag for
// a specific credential (e.g. with the Azure deployment id filled in).
func (c *Client) ProviderTagForCredential(cred llm.Credential) llm.ProviderTag {
	return c.profile.ProviderTag(cred)
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequestBody struct {
	Model            string          `json:"model"`
	Messages         []wireMessage   `json:"messages"`
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	StreamTokens     bool            `json:"stream_tokens,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	ResponseFormat   *responseFormat `json:"response_format,omitempty"`
	ReasoningEffort  string          `json:"reasoning_effort,omitempty"`
}

type completionsRequestBody struct {
	Model            string   `json:"model"`
	Prompt           string   `json:"prompt"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Stream           bool     `json:"stream,omitempty"`
	StreamTokens     bool     `json:"stream_tokens,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
}

type chatStreamChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

type chatStreamChunk struct {
	Choices []chatStreamChoice `json:"choices"`
}

// StreamCompletion implements llm.Client.
func (c *Client) StreamCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (llm.FinalResponse, error) {
	if !cred.MatchesProvider(c.profile.ProviderTag(cred)) {
		return llm.FinalResponse{}, llm.ErrWrongCredentialType
	}
	modelID, err := ResolveModelID(c.registry, c.profile, req.Model)
	if err != nil {
		return llm.FinalResponse{}, err
	}

	reasoning := promptfmt.ReasoningParamsFor(req.Model)
	if reasoning.DisableStream {
		return c.nonStreamChatCompletion(ctx, cred, req, modelID, reasoning, sink)
	}

	messages := promptfmt.ToOpenAIMessages(req.Model, req.Messages)
	wireMsgs := make([]wireMessage, len(messages))
	for i, m := range messages {
		wireMsgs[i] = wireMessage{Role: string(m.Role), Content: m.Content}
	}

	body := chatRequestBody{
		Model:          modelID,
		Messages:       wireMsgs,
		Stream:         !c.profile.StreamTokensField,
		StreamTokens:   c.profile.StreamTokensField,
		Stop:           stopWords(c.registry, c.profile, req),
		ResponseFormat: &responseFormat{Type: "text"},
	}
	if !reasoning.OmitTemperature {
		t := req.Temperature
		body.Temperature = &t
	}
	body.ReasoningEffort = reasoning.ReasoningEffort
	body.FrequencyPenalty = req.FrequencyPenalty
	body.MaxTokens = req.MaxTokens

	url := BaseURL(c.profile, cred) + c.profile.ChatPath
	resp, err := c.post(ctx, url, cred, body)
	if err != nil {
		return llm.FinalResponse{}, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return llm.FinalResponse{}, err
	}

	return c.drainChatStream(ctx, resp.Body, req.Model, sink)
}

func (c *Client) nonStreamChatCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, modelID string, reasoning promptfmt.ReasoningParams, sink llm.Sink) (llm.FinalResponse, error) {
	messages := promptfmt.ToOpenAIMessages(req.Model, req.Messages)
	wireMsgs := make([]wireMessage, len(messages))
	for i, m := range messages {
		wireMsgs[i] = wireMessage{Role: string(m.Role), Content: m.Content}
	}
	body := chatRequestBody{
		Model:           modelID,
		Messages:        wireMsgs,
		ResponseFormat:  &responseFormat{Type: "text"},
		ReasoningEffort: reasoning.ReasoningEffort,
		MaxTokens:       req.MaxTokens,
	}

	url := BaseURL(c.profile, cred) + c.profile.ChatPath
	resp, err := c.post(ctx, url, cred, body)
	if err != nil {
		return llm.FinalResponse{}, err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return llm.FinalResponse{}, err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrParseFailure, err)
	}
	if len(parsed.Choices) == 0 {
		return llm.FinalResponse{}, fmt.Errorf("%w: no choices in non-streaming response", llm.ErrParseFailure)
	}
	answer := parsed.Choices[0].Message.Content
	d := answer
	if err := trySend(ctx, sink, llm.DeltaRecord{CumulativeSoFar: answer, Delta: &d, Model: req.Model}); err != nil {
		return llm.FinalResponse{}, err
	}
	return llm.FinalResponse{Answer: answer, Model: req.Model}, nil
}

func (c *Client) drainChatStream(ctx context.Context, body io.Reader, model llm.ModelTag, sink llm.Sink) (llm.FinalResponse, error) {
	reader := newFrameReader(body)
	var buffered strings.Builder
	anyParsed := false
	for {
		select {
		case <-ctx.Done():
			return llm.FinalResponse{}, llm.ErrUserCancelled
		default:
		}

		data, err := reader.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrTransport, err)
		}
		if data == "" || data == "[DONE]" {
			continue
		}
		if c.profile.TolerateFailedDeserializationPrefix {
			if stripped, ok := strings.CutPrefix(data, "failed deserialization of:"); ok {
				data = strings.TrimSpace(stripped)
			}
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			slog.Debug("openaicompat: skipping unparsable frame", "error", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		anyParsed = true
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			text = chunk.Choices[0].Text
		}
		if text == "" {
			continue
		}
		buffered.WriteString(text)
		d := text
		cumulative := buffered.String()
		if err := trySend(ctx, sink, llm.DeltaRecord{CumulativeSoFar: cumulative, Delta: &d, Model: model}); err != nil {
			return llm.FinalResponse{}, err
		}
	}
	if !anyParsed && buffered.Len() == 0 {
		return llm.FinalResponse{}, llm.ErrParseFailure
	}
	return llm.FinalResponse{Answer: buffered.String(), Model: model}, nil
}

// StreamPromptCompletion implements llm.Client's fill-in-middle path.
func (c *Client) StreamPromptCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (string, error) {
	if !cred.MatchesProvider(c.profile.ProviderTag(cred)) {
		return "", llm.ErrWrongCredentialType
	}
	modelID, err := ResolveModelID(c.registry, c.profile, req.Model)
	if err != nil {
		return "", err
	}

	body := completionsRequestBody{
		Model:            modelID,
		Prompt:           req.Prompt,
		Stream:           !c.profile.StreamTokensField,
		StreamTokens:     c.profile.StreamTokensField,
		Stop:             stopWords(c.registry, c.profile, req),
		FrequencyPenalty: req.FrequencyPenalty,
		MaxTokens:        req.MaxTokens,
	}
	if req.Model.SupportsTemperature() {
		t := req.Temperature
		body.Temperature = &t
	}

	url := BaseURL(c.profile, cred) + c.profile.CompletionsPath
	resp, err := c.post(ctx, url, cred, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if err := c.checkStatus(resp); err != nil {
		return "", err
	}

	final, err := c.drainChatStream(ctx, resp.Body, req.Model, sink)
	if err != nil {
		return "", err
	}
	return final.Answer, nil
}

// Completion implements llm.Client as StreamCompletion with a drained sink.
func (c *Client) Completion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest) (string, error) {
	return llm.DrainedCompletion(ctx, c, cred, req)
}

// CountTokens implements llm.Client with a coarse word count: the
// whitespace-separated words of req.Prompt for prompt-style requests,
// otherwise the words of every message's Content summed. It does not go
// through tokenizer.Broker.
func (c *Client) CountTokens(req llm.CompletionRequest) (int, error) {
	if req.IsPromptStyle() {
		return len(strings.Fields(req.Prompt)), nil
	}
	total := 0
	for _, m := range req.Messages {
		total += len(strings.Fields(m.Content))
	}
	return total, nil
}

func (c *Client) post(ctx context.Context, url string, cred llm.Credential, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.profile.AuthHeader != nil {
		name, value := c.profile.AuthHeader(cred)
		if name != "" {
			httpReq.Header.Set(name, value)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, llm.ErrUserCancelled
		}
		return nil, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	return resp, nil
}

func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return llm.ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return &llm.FailedResponseError{Status: resp.StatusCode, Body: string(b)}
	}
	return nil
}

func stopWords(registry *modelcatalog.Registry, profile Profile, req llm.CompletionRequest) []string {
	entry := registry.Lookup(req.Model)
	return modelcatalog.FillInMiddleStopWords(entry, req.StopWords, profile.MaxStopWords)
}

func trySend(ctx context.Context, sink llm.Sink, rec llm.DeltaRecord) error {
	select {
	case sink <- rec:
		return nil
	case <-ctx.Done():
		return llm.ErrUserCancelled
	}
}
