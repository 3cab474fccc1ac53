// Package promptfmt implements the Prompt Formatter Broker (spec component
// C): converts provider-neutral ChatMessages into either a single prompt
// string (fill-in-middle families) or a normalized chat message sequence
// (chat-native providers).
//
// Message-shape normalization rules are grounded on
// original_source/sidebolt/sidecar/llm_client/src/clients/google_ai.rs
// (get_system_message/get_role/get_messages, for Gemini coalescing) and on
// llm_prompts/src/in_line_edit/anthropic.rs (same-role merge for Claude-style
// line-edit assistants).
package promptfmt

import (
	"strings"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
)

// Formatter converts a chat message sequence into a single prompt string,
// for model families served through a text completion endpoint.
type Formatter interface {
	ToPrompt(messages []llm.ChatMessage) string
}

// mixtralFormatter renders the Mistral/Mixtral instruct template:
// <s>[INST] {system}\n{user} [/INST] {assistant}</s>...
type mixtralFormatter struct{}

func (mixtralFormatter) ToPrompt(messages []llm.ChatMessage) string {
	var b strings.Builder
	var pendingSystem string
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			pendingSystem = m.Content
		case llm.RoleUser:
			b.WriteString("<s>[INST] ")
			if pendingSystem != "" {
				b.WriteString(pendingSystem)
				b.WriteString("\n")
				pendingSystem = ""
			}
			b.WriteString(m.Content)
			b.WriteString(" [/INST]")
		case llm.RoleAssistant:
			b.WriteString(" ")
			b.WriteString(m.Content)
			b.WriteString("</s>")
		}
	}
	return b.String()
}

// MistralInstruct and Mixtral share the same instruct template.
var MistralInstructFormatter Formatter = mixtralFormatter{}
var MixtralFormatter Formatter = mixtralFormatter{}

// deepSeekCoderFormatter renders the DeepSeek Coder chat template.
type deepSeekCoderFormatter struct{}

func (deepSeekCoderFormatter) ToPrompt(messages []llm.ChatMessage) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			b.WriteString(m.Content)
			b.WriteString("\n")
		case llm.RoleUser:
			b.WriteString("### Instruction:\n")
			b.WriteString(m.Content)
			b.WriteString("\n")
		case llm.RoleAssistant:
			b.WriteString("### Response:\n")
			b.WriteString(m.Content)
			b.WriteString("\n<|EOT|>\n")
		}
	}
	b.WriteString("### Response:\n")
	return b.String()
}

var DeepSeekCoderFormatter Formatter = deepSeekCoderFormatter{}

// codeLlamaInstructFormatter renders the Code Llama instruct template,
// shared across the 7B/13B/70B variants.
type codeLlamaInstructFormatter struct{}

func (codeLlamaInstructFormatter) ToPrompt(messages []llm.ChatMessage) string {
	var b strings.Builder
	var pendingSystem string
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			pendingSystem = m.Content
		case llm.RoleUser:
			b.WriteString("[INST] ")
			if pendingSystem != "" {
				b.WriteString("<<SYS>>\n")
				b.WriteString(pendingSystem)
				b.WriteString("\n<</SYS>>\n\n")
				pendingSystem = ""
			}
			b.WriteString(m.Content)
			b.WriteString(" [/INST]")
		case llm.RoleAssistant:
			b.WriteString(" ")
			b.WriteString(m.Content)
			b.WriteString(" ")
		}
	}
	return b.String()
}

// CodeLlamaInstructFormatter serves the 7B/13B/70B Code Llama instruct
// variants (they share one template; only the model-id string differs).
var CodeLlamaInstructFormatter Formatter = codeLlamaInstructFormatter{}

// claudeFormatter renders Claude-style Human/Assistant turns, after the
// same-role merge normalization has run. Used both as the Anthropic text
// formatter and, per spec §4.C, as the Gemini token-counting fallback.
type claudeFormatter struct{}

func (claudeFormatter) ToPrompt(messages []llm.ChatMessage) string {
	merged := MergeAdjacentSameRole(messages)
	var b strings.Builder
	for _, m := range merged {
		switch m.Role {
		case llm.RoleSystem:
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		case llm.RoleUser:
			b.WriteString("\n\nHuman: ")
			b.WriteString(m.Content)
		case llm.RoleAssistant:
			b.WriteString("\n\nAssistant: ")
			b.WriteString(m.Content)
		}
	}
	b.WriteString("\n\nAssistant:")
	return b.String()
}

var ClaudeFormatter Formatter = claudeFormatter{}

// ForModel resolves the Formatter for a ModelTag. Unknown/non-matching tags
// fall back to ClaudeFormatter, per spec §4.D's tokenizer fallback rule
// reused here for any caller that needs a best-effort formatter.
func ForModel(tag llm.ModelTag) Formatter {
	switch tag.Kind() {
	case llm.MistralInstruct:
		return MistralInstructFormatter
	case llm.Mixtral:
		return MixtralFormatter
	case llm.DeepSeekCoder1_3BInstruct, llm.DeepSeekCoder6BInstruct, llm.DeepSeekCoder33BInstruct:
		return DeepSeekCoderFormatter
	case llm.CodeLlama7BInstruct, llm.CodeLlama13BInstruct, llm.CodeLlama70BInstruct:
		return CodeLlamaInstructFormatter
	case llm.ClaudeOpus, llm.ClaudeSonnet, llm.ClaudeHaiku:
		return ClaudeFormatter
	default:
		return ClaudeFormatter
	}
}

// MergeAdjacentSameRole merges adjacent messages sharing the same role into
// a single message whose content is the newline-joined concatenation of the
// sources, preserving order. Grounded on the Anthropic line-edit assistant's
// pre-send fixup (spec invariant 6: [S,U,U,U] -> [S,U] with "U1\nU2\nU3").
func MergeAdjacentSameRole(messages []llm.ChatMessage) []llm.ChatMessage {
	if len(messages) == 0 {
		return nil
	}
	out := make([]llm.ChatMessage, 0, len(messages))
	current := messages[0]
	for _, m := range messages[1:] {
		if m.Role == current.Role {
			current.Content = current.Content + "\n" + m.Content
			current.Images = append(current.Images, m.Images...)
			current.ToolUses = append(current.ToolUses, m.ToolUses...)
			current.ToolReturns = append(current.ToolReturns, m.ToolReturns...)
			current.CacheMarker = current.CacheMarker || m.CacheMarker
			continue
		}
		out = append(out, current)
		current = m
	}
	out = append(out, current)
	return out
}
