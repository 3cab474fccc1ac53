package promptfmt

import (
	"testing"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
)

// TestToGeminiShape_RoleCoalescing covers spec invariant 5: feeding
// [U, U, A, U] yields three content entries with roles user, model, user,
// and the first's parts hold both original user texts in order.
func TestToGeminiShape_RoleCoalescing(t *testing.T) {
	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "a"},
		{Role: llm.RoleUser, Content: "b"},
		{Role: llm.RoleAssistant, Content: "c"},
		{Role: llm.RoleUser, Content: "d"},
	}

	shape := ToGeminiShape(messages)

	if shape.SystemInstruction == nil || shape.SystemInstruction.Role != GeminiRoleModel {
		t.Fatal("expected a MODEL-role system instruction")
	}
	if len(shape.SystemInstruction.Parts) != 1 || shape.SystemInstruction.Parts[0] != "sys" {
		t.Fatalf("system instruction parts = %v", shape.SystemInstruction.Parts)
	}

	if len(shape.Contents) != 3 {
		t.Fatalf("got %d content entries, want 3: %+v", len(shape.Contents), shape.Contents)
	}
	if shape.Contents[0].Role != GeminiRoleUser || shape.Contents[1].Role != GeminiRoleModel || shape.Contents[2].Role != GeminiRoleUser {
		t.Fatalf("roles = %v, %v, %v", shape.Contents[0].Role, shape.Contents[1].Role, shape.Contents[2].Role)
	}
	if len(shape.Contents[0].Parts) != 2 || shape.Contents[0].Parts[0] != "a" || shape.Contents[0].Parts[1] != "b" {
		t.Fatalf("first entry parts = %v, want [a b]", shape.Contents[0].Parts)
	}
}

// TestMergeAdjacentSameRole covers spec invariant 6: [S,U,U,U] -> [S,U]
// with the second's content "U1\nU2\nU3".
func TestMergeAdjacentSameRole(t *testing.T) {
	messages := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: "s"},
		{Role: llm.RoleUser, Content: "U1"},
		{Role: llm.RoleUser, Content: "U2"},
		{Role: llm.RoleUser, Content: "U3"},
	}

	merged := MergeAdjacentSameRole(messages)

	if len(merged) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(merged), merged)
	}
	if merged[0].Role != llm.RoleSystem || merged[0].Content != "s" {
		t.Fatalf("first merged message = %+v", merged[0])
	}
	if merged[1].Role != llm.RoleUser || merged[1].Content != "U1\nU2\nU3" {
		t.Fatalf("second merged message = %+v, want content U1\\nU2\\nU3", merged[1])
	}
}

// TestReasoningParamsFor covers spec invariant 7 for O1 and O3MiniHigh.
func TestReasoningParamsFor(t *testing.T) {
	o1 := ReasoningParamsFor(llm.Tag(llm.O1))
	if !o1.OmitTemperature || o1.ReasoningEffort != "high" || !o1.DisableStream {
		t.Fatalf("O1 params = %+v", o1)
	}

	o3 := ReasoningParamsFor(llm.Tag(llm.O3MiniHigh))
	if !o3.OmitTemperature || o3.ReasoningEffort != "high" || o3.DisableStream {
		t.Fatalf("O3MiniHigh params = %+v, want streaming enabled", o3)
	}

	gpt4o := ReasoningParamsFor(llm.Tag(llm.Gpt4O))
	if gpt4o.OmitTemperature || gpt4o.ReasoningEffort != "" || gpt4o.DisableStream {
		t.Fatalf("Gpt4O params = %+v, want no restrictions", gpt4o)
	}
}

func TestToOpenAIMessages_ReasoningModelUsesDeveloperRole(t *testing.T) {
	messages := []llm.ChatMessage{{Role: llm.RoleSystem, Content: "s"}, {Role: llm.RoleUser, Content: "u"}}

	got := ToOpenAIMessages(llm.Tag(llm.O1), messages)
	if got[0].Role != OpenAIRoleDeveloper {
		t.Errorf("O1 system role = %v, want developer", got[0].Role)
	}

	got = ToOpenAIMessages(llm.Tag(llm.Gpt4O), messages)
	if got[0].Role != OpenAIRoleSystem {
		t.Errorf("Gpt4O system role = %v, want system", got[0].Role)
	}
}
