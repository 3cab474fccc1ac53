package modelcatalog

import (
	"testing"

	"github.com/MrWong99/glyphoxa/pkg/provider/llm"
)

func TestModelID_KnownMapping(t *testing.T) {
	r := NewRegistry()
	id, ok := r.ModelID(llm.Tag(llm.Gpt4O), llm.ProviderOpenAI)
	if !ok || id != "gpt-4o" {
		t.Fatalf("ModelID = (%q, %v), want (gpt-4o, true)", id, ok)
	}
}

func TestModelID_UnservedProvider(t *testing.T) {
	r := NewRegistry()
	_, ok := r.ModelID(llm.Tag(llm.ClaudeOpus), llm.ProviderOpenAI)
	if ok {
		t.Fatal("expected Claude Opus to have no OpenAI model id")
	}
}

func TestModelID_CustomTagPassesThrough(t *testing.T) {
	r := NewRegistry()
	id, ok := r.ModelID(llm.CustomTag("my-finetune"), llm.ProviderOllama)
	if !ok || id != "my-finetune" {
		t.Fatalf("ModelID = (%q, %v), want (my-finetune, true)", id, ok)
	}
}

func TestLookup_UnknownTagUsesDefault(t *testing.T) {
	r := NewRegistry()
	e := r.Lookup(llm.CustomTag("whatever"))
	if e.ContextTokens != defaultEntry.ContextTokens {
		t.Errorf("expected default context window for unknown tag")
	}
	if e.InlineCompletionTokens != nil {
		t.Errorf("expected no inline completion budget for unknown tag")
	}
}

func TestFillInMiddleStopWords_S4Scenario(t *testing.T) {
	r := NewRegistry()
	entry := r.Lookup(llm.Tag(llm.CodeLlama13BInstruct))

	got := FillInMiddleStopWords(entry, nil, 4)
	want := []string{"<PRE>", "<SUF>", "<MID>", "<EOT>"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFillInMiddleStopWords_DedupesAndCaps(t *testing.T) {
	r := NewRegistry()
	entry := r.Lookup(llm.Tag(llm.CodeLlama13BInstruct))

	got := FillInMiddleStopWords(entry, []string{"<PRE>", "custom-stop"}, 4)
	if len(got) != 4 {
		t.Fatalf("expected truncation to 4, got %d: %v", len(got), got)
	}
	if got[len(got)-1] == "custom-stop" {
		t.Error("custom-stop should have been truncated away after the 4 family words")
	}
}
