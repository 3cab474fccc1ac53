// Package lmstudio is a thin provider client for a local LMStudio install,
// built on the shared OpenAI-shaped wire mechanics in
// pkg/provider/llm/openaicompat.
package lmstudio

import (
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

func profile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind: llm.ProviderLMStudioKind,
		ProviderTag: func(cred llm.Credential) llm.ProviderTag {
			return llm.ProviderLMStudio(cred.BaseURL())
		},
		ChatPath:        "/chat/completions",
		CompletionsPath: "/completions",
		DefaultBaseURL:  "http://localhost:1234/v1",
		AuthHeader:      func(llm.Credential) (string, string) { return "", "" },
	}
}

// New constructs an LMStudio client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *openaicompat.Client {
	return openaicompat.New(profile(), registry, httpClient)
}
