// Package modelcatalog implements the Model Registry (spec component B):
// it maps neutral ModelTags to provider-specific model-id strings and to
// model-family capability/budget metadata.
//
// Token budget constants and stop-word lists are grounded on
// original_source/sidebolt/sidecar/llm_prompts/src/answer_model/mod.rs
// (the AnswerModel table and CODE_LLAMA_STOP_WORDS / DEEPSEEK_STOP_WORDS).
package modelcatalog

import "github.com/MrWong99/glyphoxa/pkg/provider/llm"

// Entry is the per-model metadata the registry tracks.
type Entry struct {
	// ProviderModelIDs maps a ProviderKind to the model-id string that
	// provider expects for this ModelTag. A kind absent from the map means
	// that provider does not serve this model.
	ProviderModelIDs map[llm.ProviderKind]string

	ContextTokens         int
	AnswerTokens          int
	PromptTokensLimit     int
	HistoryTokensLimit    int
	InlineCompletionTokens *int

	// StopWords applies specifically to fill-in-middle completions for this
	// family (e.g. <PRE>/<SUF>/<MID>/<EOT> for Code Llama).
	StopWords []string
}

// defaultEntry is returned for unknown tags: a generous 128k-ish context
// with no inline completion budget, per spec §4.B.
var defaultEntry = Entry{
	ProviderModelIDs:   map[llm.ProviderKind]string{},
	ContextTokens:      128000,
	AnswerTokens:       4096,
	PromptTokensLimit:  120000,
	HistoryTokensLimit: 100000,
}

var codeLlamaStopWords = []string{"<PRE>", "<SUF>", "<MID>", "<EOT>"}
var deepSeekStopWords = []string{"<｜fim▁begin｜>", "<｜fim▁hole｜>", "<｜fim▁end｜>", "<|EOT|>"}

// Registry is an immutable-after-init map of ModelTag to Entry, freely
// shareable across goroutines once built, matching the teacher's pattern of
// config-constructed-once-shared-by-pointer brokers.
type Registry struct {
	entries map[llm.ModelKind]Entry
}

// NewRegistry builds the default registry covering every named ModelTag in
// spec §3.
func NewRegistry() *Registry {
	inline8k := 8192
	r := &Registry{entries: map[llm.ModelKind]Entry{
		llm.Gpt35Turbo16k: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "gpt-3.5-turbo-16k"},
			ContextTokens:      16385, AnswerTokens: 4096, PromptTokensLimit: 12000, HistoryTokensLimit: 10000,
		},
		llm.Gpt4: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "gpt-4"},
			ContextTokens:      8192, AnswerTokens: 4096, PromptTokensLimit: 6000, HistoryTokensLimit: 4000,
		},
		llm.Gpt4_32k: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "gpt-4-32k"},
			ContextTokens:      32768, AnswerTokens: 4096, PromptTokensLimit: 28000, HistoryTokensLimit: 24000,
		},
		llm.Gpt4Turbo128k: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "gpt-4-turbo-preview", llm.ProviderAzureKind: "gpt-4-turbo-preview"},
			ContextTokens:      128000, AnswerTokens: 4096, PromptTokensLimit: 120000, HistoryTokensLimit: 100000,
		},
		llm.Gpt4O: {
			ProviderModelIDs: map[llm.ProviderKind]string{
				llm.ProviderOpenAI: "gpt-4o", llm.ProviderAzureKind: "gpt-4o",
				llm.ProviderOpenRouter: "openai/gpt-4o",
			},
			ContextTokens: 128000, AnswerTokens: 16384, PromptTokensLimit: 120000, HistoryTokensLimit: 100000,
		},
		llm.Gpt4OMini: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "gpt-4o-mini"},
			ContextTokens:      128000, AnswerTokens: 16384, PromptTokensLimit: 120000, HistoryTokensLimit: 100000,
		},
		llm.O1: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "o1"},
			ContextTokens:      200000, AnswerTokens: 100000, PromptTokensLimit: 190000, HistoryTokensLimit: 150000,
		},
		llm.O1Preview: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "o1-preview"},
			ContextTokens:      128000, AnswerTokens: 32768, PromptTokensLimit: 120000, HistoryTokensLimit: 100000,
		},
		llm.O1Mini: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "o1-mini"},
			ContextTokens:      128000, AnswerTokens: 65536, PromptTokensLimit: 120000, HistoryTokensLimit: 100000,
		},
		llm.O3MiniHigh: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderOpenAI: "o3-mini"},
			ContextTokens:      200000, AnswerTokens: 100000, PromptTokensLimit: 190000, HistoryTokensLimit: 150000,
		},
		llm.ClaudeOpus: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderAnthropic: "claude-3-opus-20240229"},
			ContextTokens:      200000, AnswerTokens: 4096, PromptTokensLimit: 190000, HistoryTokensLimit: 150000,
		},
		llm.ClaudeSonnet: {
			ProviderModelIDs: map[llm.ProviderKind]string{
				llm.ProviderAnthropic: "claude-3-5-sonnet-20241022",
				llm.ProviderOpenRouter: "anthropic/claude-3.5-sonnet",
			},
			ContextTokens: 200000, AnswerTokens: 8192, PromptTokensLimit: 190000, HistoryTokensLimit: 150000,
		},
		llm.ClaudeHaiku: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderAnthropic: "claude-3-haiku-20240307"},
			ContextTokens:      200000, AnswerTokens: 4096, PromptTokensLimit: 190000, HistoryTokensLimit: 150000,
		},
		llm.GeminiPro: {
			ProviderModelIDs: map[llm.ProviderKind]string{
				llm.ProviderGemini: "gemini-1.5-pro", llm.ProviderGoogleAIStudio: "gemini-1.5-pro",
			},
			ContextTokens: 1048576, AnswerTokens: 8192, PromptTokensLimit: 1000000, HistoryTokensLimit: 900000,
		},
		llm.GeminiProFlash: {
			ProviderModelIDs: map[llm.ProviderKind]string{
				llm.ProviderGemini: "gemini-1.5-flash", llm.ProviderGoogleAIStudio: "gemini-1.5-flash",
			},
			ContextTokens: 1048576, AnswerTokens: 8192, PromptTokensLimit: 1000000, HistoryTokensLimit: 900000,
		},
		llm.Gemini2_0Flash: {
			ProviderModelIDs: map[llm.ProviderKind]string{
				llm.ProviderGemini: "gemini-2.0-flash", llm.ProviderGoogleAIStudio: "gemini-2.0-flash",
			},
			ContextTokens: 1048576, AnswerTokens: 8192, PromptTokensLimit: 1000000, HistoryTokensLimit: 900000,
		},
		llm.MistralInstruct: {
			ProviderModelIDs: map[llm.ProviderKind]string{
				llm.ProviderTogetherAI: "mistralai/Mistral-7B-Instruct-v0.1",
				llm.ProviderFireworks:  "accounts/fireworks/models/mistral-7b-instruct-4k",
			},
			ContextTokens: 8192, AnswerTokens: 2048, PromptTokensLimit: 6000, HistoryTokensLimit: 4000,
		},
		llm.Mixtral: {
			ProviderModelIDs: map[llm.ProviderKind]string{
				llm.ProviderTogetherAI: "mistralai/Mixtral-8x7B-Instruct-v0.1",
				llm.ProviderFireworks:  "accounts/fireworks/models/mixtral-8x7b-instruct",
			},
			ContextTokens: 32768, AnswerTokens: 4096, PromptTokensLimit: 28000, HistoryTokensLimit: 24000,
		},
		llm.Llama3_8bInstruct: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderTogetherAI: "meta-llama/Meta-Llama-3-8B-Instruct"},
			ContextTokens:      8192, AnswerTokens: 2048, PromptTokensLimit: 6000, HistoryTokensLimit: 4000,
		},
		llm.Llama3_1_8bInstruct: {
			ProviderModelIDs:   map[llm.ProviderKind]string{llm.ProviderFireworks: "accounts/fireworks/models/llama-v3p1-8b-instruct"},
			ContextTokens:      131072, AnswerTokens: 4096, PromptTokensLimit: 120000, HistoryTokensLimit: 100000,
		},
		llm.CodeLlama7BInstruct: {
			ProviderModelIDs:       map[llm.ProviderKind]string{llm.ProviderTogetherAI: "codellama/CodeLlama-7b-Instruct-hf"},
			ContextTokens:          16384, AnswerTokens: 2048, PromptTokensLimit: 12000, HistoryTokensLimit: 8000,
			InlineCompletionTokens: &inline8k,
			StopWords:              codeLlamaStopWords,
		},
		llm.CodeLlama13BInstruct: {
			ProviderModelIDs:       map[llm.ProviderKind]string{llm.ProviderTogetherAI: "codellama/CodeLlama-13b-Instruct-hf"},
			ContextTokens:          16384, AnswerTokens: 2048, PromptTokensLimit: 12000, HistoryTokensLimit: 8000,
			InlineCompletionTokens: &inline8k,
			StopWords:              codeLlamaStopWords,
		},
		llm.CodeLlama70BInstruct: {
			ProviderModelIDs:       map[llm.ProviderKind]string{llm.ProviderTogetherAI: "codellama/CodeLlama-70b-Instruct-hf"},
			ContextTokens:          16384, AnswerTokens: 2048, PromptTokensLimit: 12000, HistoryTokensLimit: 8000,
			InlineCompletionTokens: &inline8k,
			StopWords:              codeLlamaStopWords,
		},
		llm.DeepSeekCoder1_3BInstruct: {
			ProviderModelIDs:       map[llm.ProviderKind]string{llm.ProviderTogetherAI: "deepseek-ai/deepseek-coder-1.3b-instruct"},
			ContextTokens:          16384, AnswerTokens: 2048, PromptTokensLimit: 12000, HistoryTokensLimit: 8000,
			InlineCompletionTokens: &inline8k,
			StopWords:              deepSeekStopWords,
		},
		llm.DeepSeekCoder6BInstruct: {
			ProviderModelIDs:       map[llm.ProviderKind]string{llm.ProviderTogetherAI: "deepseek-ai/deepseek-coder-6.7b-instruct"},
			ContextTokens:          16384, AnswerTokens: 2048, PromptTokensLimit: 12000, HistoryTokensLimit: 8000,
			InlineCompletionTokens: &inline8k,
			StopWords:              deepSeekStopWords,
		},
		llm.DeepSeekCoder33BInstruct: {
			ProviderModelIDs:       map[llm.ProviderKind]string{llm.ProviderTogetherAI: "deepseek-ai/deepseek-coder-33b-instruct"},
			ContextTokens:          16384, AnswerTokens: 2048, PromptTokensLimit: 12000, HistoryTokensLimit: 8000,
			InlineCompletionTokens: &inline8k,
			StopWords:              deepSeekStopWords,
		},
	}}
	return r
}

// Lookup returns the Entry for a tag, or the shared default entry for
// unknown/custom tags.
func (r *Registry) Lookup(tag llm.ModelTag) Entry {
	if tag.IsCustom() {
		return defaultEntry
	}
	if e, ok := r.entries[tag.Kind()]; ok {
		return e
	}
	return defaultEntry
}

// ModelID returns the provider-specific model-id string for tag under
// provider, or ok=false if that provider does not serve this model (for
// custom tags, the custom name itself is returned verbatim).
func (r *Registry) ModelID(tag llm.ModelTag, provider llm.ProviderKind) (string, bool) {
	if tag.IsCustom() {
		return tag.Custom(), true
	}
	entry := r.Lookup(tag)
	id, ok := entry.ProviderModelIDs[provider]
	return id, ok
}

// FillInMiddleStopWords merges the family's registered stop words with any
// caller-supplied words, deduplicated, preserving the family's words first.
// If maxCount is > 0 the result is truncated to that many entries (e.g. 4
// for TogetherAI per spec §4.E).
func FillInMiddleStopWords(entry Entry, callerSupplied []string, maxCount int) []string {
	seen := make(map[string]bool, len(entry.StopWords)+len(callerSupplied))
	out := make([]string, 0, len(entry.StopWords)+len(callerSupplied))
	for _, w := range entry.StopWords {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, w := range callerSupplied {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	if maxCount > 0 && len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}
