// Package togetherai is a thin provider client for TogetherAI, built on the
// shared OpenAI-shaped wire mechanics in pkg/provider/llm/openaicompat.
//
// Grounded on
// original_source/sidebolt/sidecar/llm_client/src/clients/togetherai.rs:
// stream_tokens=true always, bearer auth, [DONE] sentinel, 4-entry stop-word
// cap, and the completions endpoint at /v1/completions.
package togetherai

import (
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

const defaultBaseURL = "https://api.together.xyz/v1"

func profile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind:    llm.ProviderTogetherAI,
		ProviderTag:     func(llm.Credential) llm.ProviderTag { return llm.ProviderTogetherAITag() },
		ChatPath:        "/chat/completions",
		CompletionsPath: "/completions",
		DefaultBaseURL:  defaultBaseURL,
		AuthHeader: func(cred llm.Credential) (string, string) {
			return "Authorization", "Bearer " + cred.APIKey()
		},
		StreamTokensField: true,
		MaxStopWords:      4,
	}
}

// New constructs a TogetherAI client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *openaicompat.Client {
	return openaicompat.New(profile(), registry, httpClient)
}
