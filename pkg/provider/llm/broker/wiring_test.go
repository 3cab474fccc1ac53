package broker

import (
	"testing"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
)

func TestNewDefaultResolver_CoversEveryProviderKind(t *testing.T) {
	resolver := NewDefaultResolver(modelcatalog.NewRegistry(), nil)

	kinds := []llm.ProviderKind{
		llm.ProviderOpenAI,
		llm.ProviderAnthropic,
		llm.ProviderAzureKind,
		llm.ProviderTogetherAI,
		llm.ProviderFireworks,
		llm.ProviderGemini,
		llm.ProviderGoogleAIStudio,
		llm.ProviderOpenAICompatibleKind,
		llm.ProviderOpenRouter,
		llm.ProviderGroq,
		llm.ProviderOllama,
		llm.ProviderLMStudioKind,
		llm.ProviderCodeStoryKind,
	}
	for _, k := range kinds {
		if _, ok := resolver.ClientFor(k); !ok {
			t.Errorf("no client registered for provider kind %v", k)
		}
	}
}
