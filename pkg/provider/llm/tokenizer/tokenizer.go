// Package tokenizer implements the Tokenizer Broker (spec component D):
// per-model-family token counting, with an approximate fast path.
//
// OpenAI-family counting uses github.com/pkoukk/tiktoken-go, replacing the
// teacher's openai.go ~4-chars-per-token placeholder (marked
// "TODO: replace with tiktoken-go" in pkg/provider/llm/openai/openai.go)
// with the real BPE tokenizer that TODO called for.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/promptfmt"
)

// Broker counts tokens for a ModelTag plus either a literal prompt string or
// a ChatMessage sequence.
type Broker struct {
	encodingCache map[string]*tiktoken.Tiktoken
}

// NewBroker constructs an empty Broker. Tiktoken encodings are loaded lazily
// at first use and cached for the Broker's lifetime, matching spec §6's
// "process-wide singletons loaded lazily at first use".
func NewBroker() *Broker {
	return &Broker{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// CountTokens implements spec §4.D's count_tokens(model, input) operation.
// Exactly one of prompt or messages should be supplied; if messages is
// non-empty it takes precedence.
func (b *Broker) CountTokens(model llm.ModelTag, prompt string, messages []llm.ChatMessage) (int, error) {
	if len(messages) > 0 {
		return b.countMessages(model, messages)
	}
	return b.countPrompt(model, prompt)
}

func (b *Broker) countPrompt(model llm.ModelTag, prompt string) (int, error) {
	if model.IsOpenAI() {
		enc, err := b.encodingFor(model)
		if err != nil {
			return 0, fmt.Errorf("tokenizer: %w", err)
		}
		return len(enc.Encode(prompt, nil, nil)), nil
	}
	// Non-OpenAI families: no dedicated tokenizer is loaded, fall back to
	// the prompt's raw length per spec §4.D.
	return len(prompt), nil
}

func (b *Broker) countMessages(model llm.ModelTag, messages []llm.ChatMessage) (int, error) {
	if model.IsOpenAI() {
		enc, err := b.encodingFor(model)
		if err != nil {
			return 0, fmt.Errorf("tokenizer: %w", err)
		}
		total := 0
		for _, m := range messages {
			// Per-message overhead mirrors OpenAI's documented
			// chat-format accounting (role + separators ~= 4 tokens).
			total += 4 + len(enc.Encode(m.Content, nil, nil))
		}
		return total + 2, nil
	}
	formatter := promptfmt.ForModel(model)
	return len(formatter.ToPrompt(messages)), nil
}

func (b *Broker) encodingFor(model llm.ModelTag) (*tiktoken.Tiktoken, error) {
	modelID := openAIEncodingName(model)
	if enc, ok := b.encodingCache[modelID]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(modelID)
	if err != nil {
		return nil, err
	}
	b.encodingCache[modelID] = enc
	return enc, nil
}

// openAIEncodingName maps a ModelTag to the model-id string tiktoken-go
// recognizes for encoding selection.
func openAIEncodingName(model llm.ModelTag) string {
	switch model.Kind() {
	case llm.Gpt35Turbo16k:
		return "gpt-3.5-turbo-16k"
	case llm.Gpt4, llm.Gpt4_32k:
		return "gpt-4"
	case llm.Gpt4Turbo128k:
		return "gpt-4-turbo"
	case llm.Gpt4O, llm.Gpt4OMini:
		return "gpt-4o"
	case llm.O1, llm.O1Preview, llm.O1Mini, llm.O3MiniHigh:
		return "gpt-4o"
	default:
		return "gpt-4o"
	}
}

// CountTokensApprox implements spec §4.D's fast-path approximation:
// ceil((word_count + line_count) * 4/3). The returned error is always nil.
func CountTokensApprox(prompt string) (int, error) {
	words := len(strings.Fields(prompt))
	lines := strings.Count(prompt, "\n") + 1
	n := words + lines
	return (n*4 + 2) / 3, nil
}
