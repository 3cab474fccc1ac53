// Package openrouter is a thin provider client for OpenRouter, built on the
// shared OpenAI-shaped wire mechanics in pkg/provider/llm/openaicompat.
//
// Grounded on spec §4.E's "Groq, OpenRouter | OpenAI-shape" row: bearer auth,
// standard chat/completions framing.
package openrouter

import (
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

func profile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind:    llm.ProviderOpenRouter,
		ProviderTag:     func(llm.Credential) llm.ProviderTag { return llm.ProviderOpenRouterTag() },
		ChatPath:        "/chat/completions",
		CompletionsPath: "/completions",
		DefaultBaseURL:  defaultBaseURL,
		AuthHeader: func(cred llm.Credential) (string, string) {
			return "Authorization", "Bearer " + cred.APIKey()
		},
	}
}

// New constructs an OpenRouter client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *openaicompat.Client {
	return openaicompat.New(profile(), registry, httpClient)
}
