package promptfmt

import "github.com/MrWong99/glyphoxa/pkg/provider/llm"

// OpenAIRole is the wire-level role OpenAI's chat endpoint expects.
type OpenAIRole string

const (
	OpenAIRoleSystem    OpenAIRole = "system"
	OpenAIRoleDeveloper OpenAIRole = "developer"
	OpenAIRoleUser      OpenAIRole = "user"
	OpenAIRoleAssistant OpenAIRole = "assistant"
	OpenAIRoleTool      OpenAIRole = "tool"
)

// OpenAIMessage is one entry of the wire-level `messages` array.
type OpenAIMessage struct {
	Role    OpenAIRole
	Content string
}

// ToOpenAIMessages applies spec §4.C's OpenAI reasoning-model rule: for O1,
// O1Preview, O1Mini, and O3MiniHigh, System becomes "developer"; all other
// tags keep "system". Tool-use/tool-return shaping is left to the client,
// which serializes ToolUses/ToolReturns alongside these base messages.
//
// Grounded on o1_preview_messages in
// original_source/.../clients/openai.rs.
func ToOpenAIMessages(tag llm.ModelTag, messages []llm.ChatMessage) []OpenAIMessage {
	systemRole := OpenAIRoleSystem
	if tag.IsReasoning() {
		systemRole = OpenAIRoleDeveloper
	}
	out := make([]OpenAIMessage, 0, len(messages))
	for _, m := range messages {
		role := OpenAIRoleUser
		switch m.Role {
		case llm.RoleSystem:
			role = systemRole
		case llm.RoleAssistant:
			role = OpenAIRoleAssistant
		case llm.RoleFunction:
			role = OpenAIRoleTool
		}
		out = append(out, OpenAIMessage{Role: role, Content: m.Content})
	}
	return out
}

// ReasoningParams describes the parameter restrictions spec §4.C imposes on
// OpenAI reasoning models: temperature is omitted entirely, and
// reasoning_effort is forced to "high" for O1 and O3MiniHigh.
type ReasoningParams struct {
	OmitTemperature bool
	ReasoningEffort string // "" when not applicable
	DisableStream   bool
}

// ReasoningParamsFor returns the parameter restrictions for tag. Non-
// reasoning tags get a zero-value ReasoningParams (no restrictions).
func ReasoningParamsFor(tag llm.ModelTag) ReasoningParams {
	if !tag.IsReasoning() {
		return ReasoningParams{}
	}
	p := ReasoningParams{OmitTemperature: true}
	switch tag.Kind() {
	case llm.O1, llm.O3MiniHigh:
		p.ReasoningEffort = "high"
	}
	if tag.Kind() == llm.O1 {
		p.DisableStream = true
	}
	return p
}
