// Package openaicompat implements the OpenAI-shaped wire mechanics shared by
// nine of the twelve provider clients named in spec §4.E (Azure, Fireworks,
// TogetherAI, OpenRouter, Groq, Ollama, LMStudio, CodeStory, and the generic
// OpenAI-Compatible provider itself). Rather than duplicating the SSE
// streaming loop nine times, each of those packages supplies a small Profile
// and delegates to Client here.
//
// Grounded on the teacher's pkg/provider/llm/openai/openai.go streaming loop
// (stream.Next()/stream.Current() accumulation) and on
// original_source/sidebolt/sidecar/llm_client/src/clients/togetherai.rs for
// the [DONE]-sentinel handling and the dual choices[0].delta.content /
// choices[0].text shape.
package openaicompat

import (
	"fmt"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
)

// Profile configures Client for one specific provider.
type Profile struct {
	// ProviderKind identifies the provider for credential matching and
	// model-registry lookups.
	ProviderKind llm.ProviderKind

	// ProviderTag builds this profile's ProviderTag given a credential
	// (needed for tags parameterized by base_url/deployment_id).
	ProviderTag func(cred llm.Credential) llm.ProviderTag

	// ChatPath and CompletionsPath are joined with BaseURL to form the two
	// endpoints per spec §4.E's per-provider table.
	ChatPath        string
	CompletionsPath string

	// DefaultBaseURL is used when the credential carries no base_url
	// (plain bearer-auth providers like Groq/OpenRouter/Fireworks/TogetherAI).
	DefaultBaseURL string

	// AuthHeader returns the header name and value to attach for
	// authentication, e.g. ("Authorization", "Bearer "+apiKey) or Azure's
	// ("api-key", apiKey).
	AuthHeader func(cred llm.Credential) (name, value string)

	// StreamTokensField, when true, sets "stream_tokens":true instead of
	// "stream":true (TogetherAI's naming, per togetherai.rs).
	StreamTokensField bool

	// MaxStopWords caps the stop-word list sent on the wire; 0 means
	// unlimited. TogetherAI caps at 4 per spec §4.E.
	MaxStopWords int

	// TolerateFailedDeserializationPrefix enables the OpenAI-Compatible
	// quirk: a response body beginning with the literal
	// "failed deserialization of:" is stripped of that prefix and the tail
	// re-parsed for choices[0].text, per spec §4.E / open question in §9.
	TolerateFailedDeserializationPrefix bool
}

// ResolveModelID looks up the wire model-id string for tag under this
// profile's provider, using the shared Model Registry.
func ResolveModelID(registry *modelcatalog.Registry, profile Profile, tag llm.ModelTag) (string, error) {
	id, ok := registry.ModelID(tag, profile.ProviderKind)
	if !ok {
		return "", fmt.Errorf("openaicompat: %w for model %s under provider kind %d", llm.ErrUnsupportedModel, tag, profile.ProviderKind)
	}
	return id, nil
}

// BaseURL resolves the effective base URL: the credential's base_url if one
// is carried (OpenAI-Compatible/LMStudio/CodeStory/Azure), else the
// profile's default.
func BaseURL(profile Profile, cred llm.Credential) string {
	if cred.BaseURL() != "" {
		return cred.BaseURL()
	}
	return profile.DefaultBaseURL
}
