// Package codestory is a thin provider client for the CodeStory proxy, built
// on the shared OpenAI-shaped wire mechanics in
// pkg/provider/llm/openaicompat.
//
// Grounded on spec §4.E's CodeStory row: "CodeStory proxy | OpenAI-compatible
// shape | carries optional preferred model tag".
package codestory

import (
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

func profile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind: llm.ProviderCodeStoryKind,
		ProviderTag: func(cred llm.Credential) llm.ProviderTag {
			return llm.ProviderCodeStory(nil)
		},
		ChatPath:        "/chat/completions",
		CompletionsPath: "/completions",
		DefaultBaseURL:  "https://codestory.example/api/v1",
		AuthHeader: func(cred llm.Credential) (string, string) {
			return "Authorization", "Bearer " + cred.APIKey()
		},
	}
}

// New constructs a CodeStory client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *openaicompat.Client {
	return openaicompat.New(profile(), registry, httpClient)
}
