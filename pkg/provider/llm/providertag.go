package llm

import (
	"encoding/json"
	"fmt"
)

// ProviderKind is the closed set of remote API identities a ProviderTag can
// carry. Some kinds (Azure, OpenAICompatible, LMStudio, CodeStory) carry an
// associated payload; see the field accessors on ProviderTag.
type ProviderKind int

const (
	ProviderUnknown ProviderKind = iota
	ProviderOpenAI
	ProviderAnthropic
	ProviderAzureKind
	ProviderTogetherAI
	ProviderFireworks
	ProviderGemini
	ProviderGoogleAIStudio
	ProviderOpenAICompatibleKind
	ProviderOpenRouter
	ProviderGroq
	ProviderOllama
	ProviderLMStudioKind
	ProviderCodeStoryKind
)

var providerKindNames = map[ProviderKind]string{
	ProviderOpenAI:               "OpenAI",
	ProviderAnthropic:            "Anthropic",
	ProviderAzureKind:            "Azure",
	ProviderTogetherAI:           "TogetherAI",
	ProviderFireworks:            "Fireworks",
	ProviderGemini:               "Gemini",
	ProviderGoogleAIStudio:       "GoogleAIStudio",
	ProviderOpenAICompatibleKind: "OpenAI-Compatible",
	ProviderOpenRouter:           "OpenRouter",
	ProviderGroq:                "Groq",
	ProviderOllama:               "Ollama",
	ProviderLMStudioKind:         "LMStudio",
	ProviderCodeStoryKind:        "CodeStory",
}

// ProviderTag identifies a remote API, optionally parameterized by a
// deployment id, base URL, or preferred model tag. It is the Go analog of
// the Rust LLMProvider enum in provider.rs.
type ProviderTag struct {
	kind          ProviderKind
	deploymentID  string
	baseURL       string
	codeStoryTag  *ModelTag
}

// ProviderOpenAITag returns the plain OpenAI provider tag.
func ProviderOpenAITag() ProviderTag { return ProviderTag{kind: ProviderOpenAI} }

// ProviderAnthropicTag returns the plain Anthropic provider tag.
func ProviderAnthropicTag() ProviderTag { return ProviderTag{kind: ProviderAnthropic} }

// ProviderAzure returns an Azure provider tag carrying a deployment id.
func ProviderAzure(deploymentID string) ProviderTag {
	return ProviderTag{kind: ProviderAzureKind, deploymentID: deploymentID}
}

// ProviderTogetherAITag returns the plain TogetherAI provider tag.
func ProviderTogetherAITag() ProviderTag { return ProviderTag{kind: ProviderTogetherAI} }

// ProviderFireworksTag returns the plain Fireworks provider tag.
func ProviderFireworksTag() ProviderTag { return ProviderTag{kind: ProviderFireworks} }

// ProviderGeminiTag returns the plain Gemini provider tag.
func ProviderGeminiTag() ProviderTag { return ProviderTag{kind: ProviderGemini} }

// ProviderGoogleAIStudioTag returns the plain Google AI Studio provider tag.
func ProviderGoogleAIStudioTag() ProviderTag { return ProviderTag{kind: ProviderGoogleAIStudio} }

// ProviderOpenAICompatible returns an OpenAI-compatible provider tag carrying
// a caller-supplied base URL.
func ProviderOpenAICompatible(baseURL string) ProviderTag {
	return ProviderTag{kind: ProviderOpenAICompatibleKind, baseURL: baseURL}
}

// ProviderOpenRouterTag returns the plain OpenRouter provider tag.
func ProviderOpenRouterTag() ProviderTag { return ProviderTag{kind: ProviderOpenRouter} }

// ProviderGroqTag returns the plain Groq provider tag.
func ProviderGroqTag() ProviderTag { return ProviderTag{kind: ProviderGroq} }

// ProviderOllamaTag returns the plain Ollama provider tag.
func ProviderOllamaTag() ProviderTag { return ProviderTag{kind: ProviderOllama} }

// ProviderLMStudio returns an LMStudio provider tag carrying a local base URL.
func ProviderLMStudio(baseURL string) ProviderTag {
	return ProviderTag{kind: ProviderLMStudioKind, baseURL: baseURL}
}

// ProviderCodeStory returns a CodeStory provider tag with an optional
// preferred model tag. Pass nil for "no preference".
func ProviderCodeStory(preferred *ModelTag) ProviderTag {
	return ProviderTag{kind: ProviderCodeStoryKind, codeStoryTag: preferred}
}

// Kind returns the provider's closed-set identity.
func (p ProviderTag) Kind() ProviderKind { return p.kind }

// DeploymentID returns the Azure deployment id, or "" for non-Azure tags.
func (p ProviderTag) DeploymentID() string { return p.deploymentID }

// BaseURL returns the caller-supplied base URL for OpenAI-Compatible and
// LMStudio tags, or "" otherwise.
func (p ProviderTag) BaseURL() string { return p.baseURL }

// CodeStoryModel returns the preferred model tag for a CodeStory provider
// tag, or nil if none was set.
func (p ProviderTag) CodeStoryModel() *ModelTag { return p.codeStoryTag }

// String renders the tag for logging, matching the Rust Display impl's
// shape closely enough for log correlation.
func (p ProviderTag) String() string {
	name := providerKindNames[p.kind]
	switch p.kind {
	case ProviderAzureKind:
		return fmt.Sprintf("%s{deployment_id=%s}", name, p.deploymentID)
	case ProviderOpenAICompatibleKind, ProviderLMStudioKind:
		return fmt.Sprintf("%s{base_url=%s}", name, p.baseURL)
	case ProviderCodeStoryKind:
		if p.codeStoryTag != nil {
			return fmt.Sprintf("%s{model=%s}", name, p.codeStoryTag.String())
		}
		return name
	default:
		if name == "" {
			return "Unknown"
		}
		return name
	}
}

// jsonAzurePayload / jsonBaseURLPayload mirror the Rust serde shapes:
// {"Azure":{"deployment_id":"..."}} and bare-string variants otherwise.
type jsonAzurePayload struct {
	DeploymentID string `json:"deployment_id"`
}

type jsonBaseURLPayload struct {
	BaseURL string `json:"base_url"`
}

type jsonCodeStoryPayload struct {
	Model *string `json:"model,omitempty"`
}

// MarshalJSON implements the round-trip serialization required by spec
// invariant 9: bare-string variants for payload-less tags, a single-key
// object for Azure/OpenAI-Compatible/LMStudio/CodeStory.
func (p ProviderTag) MarshalJSON() ([]byte, error) {
	name := providerKindNames[p.kind]
	if name == "" {
		return nil, fmt.Errorf("llm: cannot marshal unknown ProviderTag")
	}
	switch p.kind {
	case ProviderAzureKind:
		return json.Marshal(map[string]jsonAzurePayload{name: {DeploymentID: p.deploymentID}})
	case ProviderOpenAICompatibleKind, ProviderLMStudioKind:
		return json.Marshal(map[string]jsonBaseURLPayload{name: {BaseURL: p.baseURL}})
	case ProviderCodeStoryKind:
		var payload jsonCodeStoryPayload
		if p.codeStoryTag != nil {
			s := p.codeStoryTag.Custom()
			if !p.codeStoryTag.IsCustom() {
				s = p.codeStoryTag.String()
			}
			payload.Model = &s
		}
		return json.Marshal(map[string]jsonCodeStoryPayload{name: payload})
	default:
		return json.Marshal(name)
	}
}

// UnmarshalJSON accepts either a bare string (payload-less variant) or a
// single-key object (Azure/OpenAI-Compatible/LMStudio/CodeStory).
func (p *ProviderTag) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		for kind, name := range providerKindNames {
			if name == bare {
				*p = ProviderTag{kind: kind}
				return nil
			}
		}
		return fmt.Errorf("llm: unknown ProviderTag %q", bare)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("llm: invalid ProviderTag encoding: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("llm: ProviderTag object must have exactly one key, got %d", len(obj))
	}
	for name, raw := range obj {
		var kind ProviderKind
		found := false
		for k, n := range providerKindNames {
			if n == name {
				kind, found = k, true
				break
			}
		}
		if !found {
			return fmt.Errorf("llm: unknown ProviderTag %q", name)
		}
		switch kind {
		case ProviderAzureKind:
			var payload jsonAzurePayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			*p = ProviderAzure(payload.DeploymentID)
		case ProviderOpenAICompatibleKind:
			var payload jsonBaseURLPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			*p = ProviderOpenAICompatible(payload.BaseURL)
		case ProviderLMStudioKind:
			var payload jsonBaseURLPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			*p = ProviderLMStudio(payload.BaseURL)
		case ProviderCodeStoryKind:
			var payload jsonCodeStoryPayload
			if err := json.Unmarshal(raw, &payload); err != nil {
				return err
			}
			if payload.Model != nil {
				t := CustomTag(*payload.Model)
				for k, n := range modelKindNames {
					if n == *payload.Model {
						t = Tag(k)
						break
					}
				}
				*p = ProviderCodeStory(&t)
			} else {
				*p = ProviderCodeStory(nil)
			}
		default:
			return fmt.Errorf("llm: ProviderTag %q does not take an object payload", name)
		}
		return nil
	}
	return nil
}
