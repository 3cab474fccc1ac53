package promptfmt

import "github.com/MrWong99/glyphoxa/pkg/provider/llm"

// GeminiRole is the two-role vocabulary Gemini's wire format uses.
type GeminiRole string

const (
	GeminiRoleUser  GeminiRole = "user"
	GeminiRoleModel GeminiRole = "model"
)

// GeminiContentEntry is one entry of Gemini's `contents` array: a role plus
// an ordered list of text parts.
type GeminiContentEntry struct {
	Role  GeminiRole
	Parts []string
}

// GeminiShape is the result of applying the Gemini normalization rules to a
// ChatMessage sequence: an optional system instruction (always role MODEL)
// plus the coalesced contents array.
type GeminiShape struct {
	SystemInstruction *GeminiContentEntry
	Contents          []GeminiContentEntry
}

// ToGeminiShape applies spec §4.C's Gemini normalization: drop system
// messages from the body, extract the first as a separate system_instruction
// with role MODEL; map {System,Assistant}->model, User->user for the rest;
// coalesce runs of same-role messages into one entry whose Parts holds each
// source message's text in order.
//
// Grounded on get_system_message/get_role/get_messages in
// original_source/.../clients/google_ai.rs.
func ToGeminiShape(messages []llm.ChatMessage) GeminiShape {
	var shape GeminiShape
	var body []llm.ChatMessage
	sawSystem := false
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			if !sawSystem {
				shape.SystemInstruction = &GeminiContentEntry{Role: GeminiRoleModel, Parts: []string{m.Content}}
				sawSystem = true
			}
			continue
		}
		body = append(body, m)
	}

	for _, m := range body {
		role := GeminiRoleUser
		if m.Role == llm.RoleAssistant {
			role = GeminiRoleModel
		}
		if n := len(shape.Contents); n > 0 && shape.Contents[n-1].Role == role {
			shape.Contents[n-1].Parts = append(shape.Contents[n-1].Parts, m.Content)
			continue
		}
		shape.Contents = append(shape.Contents, GeminiContentEntry{Role: role, Parts: []string{m.Content}})
	}
	return shape
}
