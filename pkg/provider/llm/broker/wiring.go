package broker

import (
	"log/slog"
	"net/http"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/anthropic"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/azure"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/codestory"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/fireworks"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/gemini"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/groq"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/llmobserve"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/lmstudio"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/ollama"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openai"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openaicompatible"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/openrouter"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/togetherai"
)

// NewDefaultResolver builds a ClientResolver wired to every provider client
// package in pkg/provider/llm, matching the twelve-provider list in spec
// §3's ProviderTag enumeration. Every HTTP-speaking client's *http.Client is
// wrapped by the llmobserve logging hook (spec §4.H), so the Completion
// Broker's attempt metadata is observed uniformly regardless of which
// provider an Attempt resolves to.
//
// Anthropic is the one exception: it delegates wire mechanics to
// github.com/mozilla-ai/any-llm-go, which manages its own transport rather
// than accepting an *http.Client, so the logging hook does not reach it; see
// DESIGN.md for the justification.
func NewDefaultResolver(registry *modelcatalog.Registry, logger *slog.Logger) StaticResolver {
	httpClient := llmobserve.WrapClient(http.DefaultClient, logger)

	return StaticResolver{
		llm.ProviderOpenAI:               openai.NewBrokerClient(registry, httpClient),
		llm.ProviderAnthropic:            anthropic.New(registry),
		llm.ProviderAzureKind:            azure.New(registry, httpClient),
		llm.ProviderTogetherAI:           togetherai.New(registry, httpClient),
		llm.ProviderFireworks:            fireworks.New(registry, httpClient),
		llm.ProviderGemini:               gemini.New(registry, httpClient),
		llm.ProviderGoogleAIStudio:       gemini.NewGoogleAIStudio(registry, httpClient),
		llm.ProviderOpenAICompatibleKind: openaicompatible.New(registry, httpClient),
		llm.ProviderOpenRouter:           openrouter.New(registry, httpClient),
		llm.ProviderGroq:                 groq.New(registry, httpClient),
		llm.ProviderOllama:               ollama.New(registry, httpClient),
		llm.ProviderLMStudioKind:         lmstudio.New(registry, httpClient),
		llm.ProviderCodeStoryKind:        codestory.New(registry, httpClient),
	}
}
