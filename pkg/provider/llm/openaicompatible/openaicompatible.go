// Package openaicompatible is the generic "bring your own OpenAI-compatible
// endpoint" provider client, built on the shared wire mechanics in
// pkg/provider/llm/openaicompat.
//
// Grounded on spec §4.E's OpenAI-Compatible row, including the
// "failed deserialization of:" response-body quirk noted as an open
// question in spec §9.
package openaicompatible

import (
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompat"
)

func profile() openaicompat.Profile {
	return openaicompat.Profile{
		ProviderKind: llm.ProviderOpenAICompatibleKind,
		ProviderTag: func(cred llm.Credential) llm.ProviderTag {
			return llm.ProviderOpenAICompatible(cred.BaseURL())
		},
		ChatPath:        "/chat/completions",
		CompletionsPath: "/completions",
		AuthHeader: func(cred llm.Credential) (string, string) {
			if cred.APIKey() == "" {
				return "", ""
			}
			return "Authorization", "Bearer " + cred.APIKey()
		},
		TolerateFailedDeserializationPrefix: true,
	}
}

// New constructs an OpenAI-Compatible client.
func New(registry *modelcatalog.Registry, httpClient *http.Client) *openaicompat.Client {
	return openaicompat.New(profile(), registry, httpClient)
}
