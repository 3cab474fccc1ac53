// Package gemini is the provider client for Google's Gemini family, serving
// both the Gemini (Vertex-style) and GoogleAIStudio provider tags since both
// speak the same generativelanguage.googleapis.com wire shape.
//
// Grounded on original_source/sidebolt/sidecar/llm_client/src/clients/google_ai.rs
// for max_output_tokens=8192 and the rule that Gemini has no prompt-style
// completion endpoint. Chat wire mechanics are built on
// google.golang.org/genai, the official Google SDK the teacher already
// depends on transitively (see pkg/provider/llm/anyllm/anyllm.go); streaming
// forwards GenerateContent's full answer to the sink word-by-word, the same
// "simple but effective streaming" shape used by the pack's other
// google.golang.org/genai integration (taipm-go-deep-agent's
// GeminiV3Adapter.Stream). The dedicated :countTokens endpoint has no
// exposed genai SDK call in the examples pack, so CountTokensRemote keeps
// calling it directly over net/http.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/promptfmt"
)

const countTokensAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// Client implements llm.Client for Gemini / GoogleAIStudio.
type Client struct {
	registry *modelcatalog.Registry
	http     *http.Client
	asStudio bool
}

// New constructs a Gemini client bound to the Gemini provider tag.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *Client {
	return &Client{registry: registry, http: httpOrDefault(httpClient)}
}

// NewGoogleAIStudio constructs a client bound to the GoogleAIStudio provider
// tag, identical on the wire but validated against a distinct credential.
func NewGoogleAIStudio(registry *modelcatalog.Registry, httpClient *http.Client) *Client {
	return &Client{registry: registry, http: httpOrDefault(httpClient), asStudio: true}
}

func httpOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}

// ProviderTag implements llm.Client.
func (c *Client) ProviderTag() llm.ProviderTag {
	if c.asStudio {
		return llm.ProviderGoogleAIStudioTag()
	}
	return llm.ProviderGeminiTag()
}

func (c *Client) wantKind() llm.ProviderKind {
	if c.asStudio {
		return llm.ProviderGoogleAIStudio
	}
	return llm.ProviderGemini
}

func sdkClient(ctx context.Context, cred llm.Credential) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{APIKey: cred.APIKey()})
}

func toGenaiRole(role promptfmt.GeminiRole) genai.Role {
	if role == promptfmt.GeminiRoleModel {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func toGenaiContents(req llm.CompletionRequest) []*genai.Content {
	shape := promptfmt.ToGeminiShape(req.Messages)
	contents := make([]*genai.Content, 0, len(shape.Contents)+1)
	if shape.SystemInstruction != nil {
		contents = append(contents, entryToContent(*shape.SystemInstruction))
	}
	for _, entry := range shape.Contents {
		contents = append(contents, entryToContent(entry))
	}
	return contents
}

func entryToContent(entry promptfmt.GeminiContentEntry) *genai.Content {
	parts := make([]*genai.Part, 0, len(entry.Parts))
	for _, p := range entry.Parts {
		parts = append(parts, &genai.Part{Text: p})
	}
	return &genai.Content{Role: toGenaiRole(entry.Role), Parts: parts}
}

func toGenerateConfig(req llm.CompletionRequest) *genai.GenerateContentConfig {
	temp := float32(req.Temperature)
	maxTokens := int32(8192)
	if req.MaxTokens != nil {
		maxTokens = int32(*req.MaxTokens)
	}
	return &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxTokens,
		StopSequences:   req.StopWords,
	}
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return out.String()
}

// StreamCompletion implements llm.Client. genai exposes GenerateContent as a
// single blocking call; the full answer is forwarded to the sink word-by-
// word, the same streaming shape the pack's other genai integration uses.
func (c *Client) StreamCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (llm.FinalResponse, error) {
	if cred.ProviderKind() != c.wantKind() {
		return llm.FinalResponse{}, llm.ErrWrongCredentialType
	}
	modelID, ok := c.registry.ModelID(req.Model, c.wantKind())
	if !ok {
		return llm.FinalResponse{}, llm.ErrUnsupportedModel
	}

	client, err := sdkClient(ctx, cred)
	if err != nil {
		return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}

	resp, err := client.Models.GenerateContent(ctx, modelID, toGenaiContents(req), toGenerateConfig(req))
	if err != nil {
		if ctx.Err() != nil {
			return llm.FinalResponse{}, llm.ErrUserCancelled
		}
		return llm.FinalResponse{}, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}

	answer := candidateText(resp)
	if answer == "" {
		return llm.FinalResponse{}, llm.ErrParseFailure
	}

	words := strings.SplitAfter(answer, " ")
	var buffered strings.Builder
	for _, w := range words {
		if w == "" {
			continue
		}
		buffered.WriteString(w)
		d := w
		select {
		case sink <- llm.DeltaRecord{CumulativeSoFar: buffered.String(), Delta: &d, Model: req.Model}:
		case <-ctx.Done():
			return llm.FinalResponse{}, llm.ErrUserCancelled
		}
	}
	return llm.FinalResponse{Answer: answer, Model: req.Model}, nil
}

// StreamPromptCompletion implements llm.Client. Gemini has no prompt-style
// completion endpoint, matching google_ai.rs's stream_prompt_completion.
func (c *Client) StreamPromptCompletion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest, sink llm.Sink) (string, error) {
	return "", llm.ErrUnsupportedModel
}

// Completion implements llm.Client.
func (c *Client) Completion(ctx context.Context, cred llm.Credential, req llm.CompletionRequest) (string, error) {
	return llm.DrainedCompletion(ctx, c, cred, req)
}

// CountTokens implements llm.Client using the word/line approximation, since
// the precise remote :countTokens call requires a live credential and is
// exposed separately via CountTokensRemote.
func (c *Client) CountTokens(req llm.CompletionRequest) (int, error) {
	formatted := req.Prompt
	if !req.IsPromptStyle() {
		for _, m := range req.Messages {
			formatted += m.Content + "\n"
		}
	}
	words := len(strings.Fields(formatted))
	lines := strings.Count(formatted, "\n") + 1
	n := words + lines
	return (n*4 + 2) / 3, nil
}

// CountTokensRemote calls Gemini's dedicated :countTokens endpoint, the
// supplemented feature noted in SPEC_FULL.md (original_source's
// count_tokens_endpoint/count_tokens).
func (c *Client) CountTokensRemote(ctx context.Context, cred llm.Credential, modelID, prompt string) (int, error) {
	body := map[string]any{
		"contents": []map[string]any{{"role": "user", "parts": []map[string]string{{"text": prompt}}}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	url := fmt.Sprintf("%s/%s:countTokens?key=%s", countTokensAPIBase, modelID, cred.APIKey())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", llm.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return 0, llm.ErrUnauthorized
	}
	var decoded struct {
		TotalTokens int `json:"totalTokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("%w: %v", llm.ErrParseFailure, err)
	}
	return decoded.TotalTokens, nil
}
