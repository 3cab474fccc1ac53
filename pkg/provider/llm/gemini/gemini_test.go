package gemini

import (
	"context"
	"testing"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
	"github.com/MrWong99/glyphoxa/pkg/provider/llm/modelcatalog"
)

// TestToRequestBody_SystemAndSafety covers spec scenario S2: the system
// message is extracted into system_instruction (role model), adjacent
// same-role messages coalesce, and the four BLOCK_ONLY_HIGH safety settings
// are always attached.
func TestToRequestBody_SystemAndSafety(t *testing.T) {
	req := llm.CompletionRequest{
		Model: llm.Tag(llm.GeminiPro),
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: "be terse"},
			{Role: llm.RoleUser, Content: "hi"},
			{Role: llm.RoleAssistant, Content: "hello"},
			{Role: llm.RoleUser, Content: "bye"},
		},
		Temperature: 0.3,
	}
	body := toRequestBody(req)

	if body.SystemInstruction == nil || body.SystemInstruction.Role != "model" {
		t.Fatalf("SystemInstruction = %+v, want role model", body.SystemInstruction)
	}
	if len(body.Contents) != 3 {
		t.Fatalf("Contents = %d entries, want 3 (user,model,user)", len(body.Contents))
	}
	if body.Contents[0].Role != "user" || body.Contents[1].Role != "model" || body.Contents[2].Role != "user" {
		t.Errorf("role sequence = %v/%v/%v, want user/model/user", body.Contents[0].Role, body.Contents[1].Role, body.Contents[2].Role)
	}
	if len(body.SafetySettings) != 4 {
		t.Fatalf("SafetySettings = %d entries, want 4", len(body.SafetySettings))
	}
	for _, s := range body.SafetySettings {
		if s.Threshold != "BLOCK_ONLY_HIGH" {
			t.Errorf("threshold = %q, want BLOCK_ONLY_HIGH", s.Threshold)
		}
	}
	if body.GenerationConfig.MaxOutputTokens != 8192 || body.GenerationConfig.CandidateCount != 1 {
		t.Errorf("GenerationConfig = %+v, want MaxOutputTokens 8192, CandidateCount 1", body.GenerationConfig)
	}
}

func TestStreamPromptCompletion_AlwaysUnsupported(t *testing.T) {
	client := New(modelcatalog.NewRegistry(), nil)
	_, err := client.StreamPromptCompletion(context.Background(), llm.NewAPIKeyCredential(llm.ProviderGemini, "k"), llm.CompletionRequest{}, make(chan llm.DeltaRecord, 1))
	if err != llm.ErrUnsupportedModel {
		t.Fatalf("err = %v, want ErrUnsupportedModel", err)
	}
}

func TestWrongCredential(t *testing.T) {
	client := New(modelcatalog.NewRegistry(), nil)
	wrongCred := llm.NewAPIKeyCredential(llm.ProviderAnthropic, "k")
	_, err := client.StreamCompletion(context.Background(), wrongCred, llm.CompletionRequest{Model: llm.Tag(llm.GeminiPro)}, make(chan llm.DeltaRecord, 1))
	if err != llm.ErrWrongCredentialType {
		t.Fatalf("err = %v, want ErrWrongCredentialType", err)
	}
}
