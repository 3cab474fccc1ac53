// Package anthropic is the provider client for Anthropic's Claude family.
// Wire-level streaming and authentication are delegated to
// github.com/mozilla-ai/any-llm-go's Anthropic backend (which in turn uses
// github.com/anthropics/anthropic-sdk-go), the same dependency the teacher
// already wires in pkg/provider/llm/anyllm/anyllm.go; this package adds the
// spec-required same-role message merge on top. A message's cache marker is
// only logged at debug level: the message is sent without a cache-control
// hint, as the any-llm-go backend exposes no such field.
//
// Grounded on the teacher's anyllm.New("anthropic", ...) wiring and on
// original_source/sidebolt/sidecar/llm_prompts/src/in_line_edit/anthropic.rs
// for the same-role merge rule (spec invariant 6).
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	anyllmanthropic "github.com/mozilla-ai/any-llm-go/providers/anthropic"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/promptfmt"
)

// Client implements llm.Client for Anthropic.
type Client struct {
	registry *modelcatalog.Registry
}

// New constructs an Anthropic client. The registry supplies model-id lookup.
func New(registry *modelcatalog.Registry) *Client {
	return &Client{registry: registry}
}

// ProviderTag implements llm.Client.
func (c *Client) ProviderTag() llm.ProviderTag { return llm.ProviderAnthropicTag() }

func (c *Client) backendFor(cred llm.Credential) (anyllmlib.Provider, error) {
	if cred.ProviderKind() != llm.ProviderAnthropic {
		return nil, llm.ErrWrongCredentialType
	}
	return anyllmanthropic.New(anyllmlib.WithAPIKey(cred.APIKey()))
}

func (c *Client) buildMessages(req llm.CompletionRequest) ([]anyllmlib.Message, error) {
	merged := promptfmt.MergeAdjacentSameRole(req.Messages)
	out := make([]anyllmlib.Message, 0, len(merged))
	for _, m := range merged {
		if m.Role == llm.RoleFunction && len(m.ToolReturns) == 0 {
			return nil, llm.ErrFunctionCallMissing
		}
		if m.CacheMarker {
			slog.Debug("anthropic: cache marker set on message; any-llm-go backend does not expose cache_control, forwarding without it")
		}
		role := "user"
		switch m.Role {
		case llm.RoleSystem:
			role = string(anyllmlib.RoleSystem)
		case llm.RoleAssistant:
			role = "assistant"
		case llm.RoleFunction:
			role = "tool"
		}
		out = append(out, anyllmlib.Message{Role: role, Content: m.Content})
	}
	return out, nil
}

func (c *Client) params(req llm.CompletionRequest, modelID string) (anyllmlib.CompletionParams, error) {
	messages, err := c.buildMessages(req)
	if err != nil {
		return anyllmlib.CompletionParams{}, err
	}
	params := anyllmlib.CompletionParams{Model: modelID, Messages: messages}
	if req.Model.SupportsTemperature() {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens != nil {
		params.MaxTokens = req.MaxTokens
	}
	return params, nil
}

// StreamCompletion implements llm.Client.
func (c *Client) StreamCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (llm.FinalResponse, error) {
	backend, err := c.backendFor(cred)
	if err != nil {
		return llm.FinalResponse{}, err
	}
	modelID, ok := c.registry.ModelID(req.Model, llm.ProviderAnthropic)
	if !ok {
		return llm.FinalResponse{}, llm.ErrUnsupportedModel
	}
	params, err := c.params(req, modelID)
	if err != nil {
		return llm.FinalResponse{}, err
	}

	chunks, errs := backend.CompletionStream(ctx, params)
	var buffered strings.Builder
	for chunk := range chunks {
		if len(chunk.Choices) == 0 {
			continue
		}
		text := chunk.Choices[0].Delta.Content
		if text == "" {
			continue
		}
		buffered.WriteString(text)
		d := text
		select {
		case sink <- llm.DeltaRecord{CumulativeSoFar: buffered.String(), Delta: &d, Model: req.Model}:
		case <-ctx.Done():
			return llm.FinalResponse{}, llm.ErrUserCancelled
		}
	}
	if err := <-errs; err != nil {
		return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	return llm.FinalResponse{Answer: buffered.String(), Model: req.Model}, nil
}

// StreamPromptCompletion implements llm.Client. Anthropic has no FIM/prompt
// endpoint, so this always returns ErrUnsupportedModel, matching the
// per-provider table's treatment of providers without a prompt-style path.
func (c *Client) StreamPromptCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (string, error) {
	return "", llm.ErrUnsupportedModel
}

// Completion implements llm.Client.
func (c *Client) Completion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest) (string, error) {
	return llm.DrainedCompletion(ctx, c, cred, req)
}

// CountTokens implements llm.Client as the word count of the Claude prompt
// formatter's rendered prompt, per spec §4.D's non-OpenAI fallback rule.
func (c *Client) CountTokens(req llm.CompletionRequest) (int, error) {
	formatted := promptfmt.ClaudeFormatter.ToPrompt(req.Messages)
	return len(strings.Fields(formatted)), nil
}
