package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/promptfmt"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/tokenizer"
)

// brokerDefaultBaseURL is OpenAI's canonical API base (spec §4.E's OpenAI
// row and §6's canonical base URL rule).
const brokerDefaultBaseURL = "https://api.openai.com/v1"

// BrokerClient implements llm.Client for OpenAI directly on top of
// github.com/openai/openai-go's Chat Completions service, the same SDK
// Provider above already uses for the voice-AI cascade engine. A fresh
// oai.Client is built per call from the Credential the broker dispatches,
// since the SDK binds one API key at construction time and a single
// BrokerClient serves every credential the Credential Store hands it.
type BrokerClient struct {
	registry   *modelcatalog.Registry
	httpClient *http.Client
	tokens     *tokenizer.Broker
}

// NewBrokerClient constructs the spec §4.E Completion-Broker-facing
// llm.Client for OpenAI: chat/completions via openai-go's streaming and
// non-streaming Chat.Completions calls, and the O1/O3MiniHigh reasoning-
// model handling (no temperature, forced non-stream for O1,
// reasoning_effort=high) layered on top via promptfmt.ReasoningParamsFor.
func NewBrokerClient(registry *modelcatalog.Registry, httpClient *http.Client) *BrokerClient {
	return &BrokerClient{registry: registry, httpClient: httpClient, tokens: tokenizer.NewBroker()}
}

// ProviderTag implements llm.Client.
func (c *BrokerClient) ProviderTag() llm.ProviderTag { return llm.ProviderOpenAITag() }

func (c *BrokerClient) sdkClient(cred llm.Credential) oai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cred.APIKey()),
		option.WithBaseURL(brokerDefaultBaseURL),
	}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	return oai.NewClient(opts...)
}

// toWireMessages converts the Prompt Formatter Broker's normalized
// OpenAIMessage sequence into openai-go's typed message-param union,
// mirroring Provider.convertMessage above but driven off the provider-
// neutral llm.ChatMessage shape instead of types.Message.
func toWireMessages(tag llm.ModelTag, messages []llm.ChatMessage) []oai.ChatCompletionMessageParamUnion {
	formatted := promptfmt.ToOpenAIMessages(tag, messages)
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(formatted))
	for _, m := range formatted {
		switch m.Role {
		case promptfmt.OpenAIRoleSystem, promptfmt.OpenAIRoleDeveloper:
			out = append(out, oai.SystemMessage(m.Content))
		case promptfmt.OpenAIRoleAssistant:
			asst := oai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = oai.String(m.Content)
			}
			out = append(out, oai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case promptfmt.OpenAIRoleTool:
			out = append(out, oai.ToolMessage(m.Content, ""))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}

func (c *BrokerClient) buildParams(req llm.CompletionRequest, modelID string, reasoning promptfmt.ReasoningParams) oai.ChatCompletionNewParams {
	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: toWireMessages(req.Model, req.Messages),
	}
	if !reasoning.OmitTemperature {
		params.Temperature = param.NewOpt(req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = param.NewOpt(int64(*req.MaxTokens))
	}
	if reasoning.ReasoningEffort != "" {
		// reasoning_effort has no typed field on this SDK's
		// ChatCompletionNewParams; SetExtraFields is the same raw-field
		// escape hatch other openai-go integrations in the pack use for
		// fields the pinned version hasn't caught up to.
		params.SetExtraFields(map[string]any{"reasoning_effort": reasoning.ReasoningEffort})
	}
	return params
}

// StreamCompletion implements llm.Client.
func (c *BrokerClient) StreamCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (llm.FinalResponse, error) {
	if cred.ProviderKind() != llm.ProviderOpenAI {
		return llm.FinalResponse{}, llm.ErrWrongCredentialType
	}
	modelID, ok := c.registry.ModelID(req.Model, llm.ProviderOpenAI)
	if !ok {
		return llm.FinalResponse{}, llm.ErrUnsupportedModel
	}

	reasoning := promptfmt.ReasoningParamsFor(req.Model)
	client := c.sdkClient(cred)
	params := c.buildParams(req, modelID, reasoning)

	if reasoning.DisableStream {
		return c.nonStreamCompletion(ctx, client, params, req, sink)
	}

	stream := client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var buffered strings.Builder
	for stream.Next() {
		chunk := stream.Current()
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
	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return llm.FinalResponse{}, llm.ErrUserCancelled
		}
		return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	if buffered.Len() == 0 {
		return llm.FinalResponse{}, llm.ErrParseFailure
	}
	return llm.FinalResponse{Answer: buffered.String(), Model: req.Model}, nil
}

func (c *BrokerClient) nonStreamCompletion(ctx context.Context, client oai.Client, params oai.ChatCompletionNewParams, req llm.CompletionRequest, sink llm.Sink) (llm.FinalResponse, error) {
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return llm.FinalResponse{}, llm.ErrUserCancelled
		}
		return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return llm.FinalResponse{}, fmt.Errorf("%w: no choices in non-streaming response", llm.ErrParseFailure)
	}
	answer := resp.Choices[0].Message.Content
	d := answer
	select {
	case sink <- llm.DeltaRecord{CumulativeSoFar: answer, Delta: &d, Model: req.Model}:
	case <-ctx.Done():
		return llm.FinalResponse{}, llm.ErrUserCancelled
	}
	return llm.FinalResponse{Answer: answer, Model: req.Model}, nil
}

// StreamPromptCompletion implements llm.Client. The Model Registry never
// maps a fill-in-middle model to ProviderOpenAI, so this always rejects,
// matching the same treatment Anthropic's client gives chat-only providers.
func (c *BrokerClient) StreamPromptCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (string, error) {
	if cred.ProviderKind() != llm.ProviderOpenAI {
		return "", llm.ErrWrongCredentialType
	}
	return "", llm.ErrUnsupportedModel
}

// Completion implements llm.Client as StreamCompletion with a drained sink.
func (c *BrokerClient) Completion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest) (string, error) {
	return llm.DrainedCompletion(ctx, c, cred, req)
}

// CountTokens implements llm.Client via the shared Tokenizer Broker's real
// tiktoken-go BPE encoding (spec §4.D), replacing the coarse word-count
// approximation other provider clients use.
func (c *BrokerClient) CountTokens(req llm.CompletionRequest) (int, error) {
	if req.IsPromptStyle() {
		return c.tokens.CountTokens(req.Model, req.Prompt, nil)
	}
	return c.tokens.CountTokens(req.Model, "", req.Messages)
}
