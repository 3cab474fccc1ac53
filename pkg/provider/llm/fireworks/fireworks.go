// Package fireworks is a thin provider client for Fireworks AI, built on the
// shared OpenAI-shaped wire mechanics in pkg/provider/llm/openaicompat.
//
// Grounded on spec §4.E's Fireworks row: chat/completions and completions
// endpoints, SSE with a [DONE] sentinel, chunk text at
// choices[0].delta.content or .text, Llama/DeepSeek/CodeLlama model ids.
package fireworks

import (
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

const defaultBaseURL = "https://api.fireworks.ai/inference/v1"

func profile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind:    llm.ProviderFireworks,
		ProviderTag:     func(llm.Credential) llm.ProviderTag { return llm.ProviderFireworksTag() },
		ChatPath:        "/chat/completions",
		CompletionsPath: "/completions",
		DefaultBaseURL:  defaultBaseURL,
		AuthHeader: func(cred llm.Credential) (string, string) {
			return "Authorization", "Bearer " + cred.APIKey()
		},
	}
}

// New constructs a Fireworks client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *openaicompat.Client {
	return openaicompat.New(profile(), registry, httpClient)
}
