// Package ollama is a thin provider client for a local Ollama install,
// built on the shared OpenAI-shaped wire mechanics in
// pkg/provider/llm/openaicompat.
//
// Grounded on spec §4.E's "Ollama, LMStudio | local base URL |
// OpenAI-compatible" row: base_url supplied by the credential, no auth
// header.
package ollama

import (
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

const defaultBaseURL = "http://localhost:11434/v1"

func profile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind:    llm.ProviderOllama,
		ProviderTag:     func(llm.Credential) llm.ProviderTag { return llm.ProviderOllamaTag() },
		ChatPath:        "/chat/completions",
		CompletionsPath: "/completions",
		DefaultBaseURL:  defaultBaseURL,
		AuthHeader:      func(llm.Credential) (string, string) { return "", "" },
	}
}

// New constructs an Ollama client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *openaicompat.Client {
	return openaicompat.New(profile(), registry, httpClient)
}
