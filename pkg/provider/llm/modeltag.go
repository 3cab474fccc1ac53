package llm

// ModelKind is a closed enumeration of model identities known to the broker.
// Unrecognized models are carried through ModelTag's Custom field instead of
// growing this set, mirroring the provider.rs LLMType enum's Custom(String)
// escape hatch.
type ModelKind int

const (
	// ModelUnknown is the zero value; a valid ModelTag is never ModelUnknown
	// unless it carries a Custom name.
	ModelUnknown ModelKind = iota

	Gpt35Turbo16k
	Gpt4
	Gpt4_32k
	Gpt4Turbo128k
	Gpt4O
	Gpt4OMini
	O1
	O1Preview
	O1Mini
	O3MiniHigh

	ClaudeOpus
	ClaudeSonnet
	ClaudeHaiku

	GeminiPro
	GeminiProFlash
	Gemini2_0Flash

	MistralInstruct
	Mixtral

	Llama3_8bInstruct
	Llama3_1_8bInstruct

	CodeLlama7BInstruct
	CodeLlama13BInstruct
	CodeLlama70BInstruct

	DeepSeekCoder1_3BInstruct
	DeepSeekCoder6BInstruct
	DeepSeekCoder33BInstruct
)

var modelKindNames = map[ModelKind]string{
	Gpt35Turbo16k:             "Gpt35Turbo16k",
	Gpt4:                      "Gpt4",
	Gpt4_32k:                  "Gpt4_32k",
	Gpt4Turbo128k:             "Gpt4Turbo128k",
	Gpt4O:                     "Gpt4O",
	Gpt4OMini:                 "Gpt4OMini",
	O1:                        "O1",
	O1Preview:                 "O1Preview",
	O1Mini:                    "O1Mini",
	O3MiniHigh:                "O3MiniHigh",
	ClaudeOpus:                "ClaudeOpus",
	ClaudeSonnet:              "ClaudeSonnet",
	ClaudeHaiku:               "ClaudeHaiku",
	GeminiPro:                 "GeminiPro",
	GeminiProFlash:            "GeminiProFlash",
	Gemini2_0Flash:            "Gemini2_0Flash",
	MistralInstruct:           "MistralInstruct",
	Mixtral:                   "Mixtral",
	Llama3_8bInstruct:         "Llama3_8bInstruct",
	Llama3_1_8bInstruct:       "Llama3_1_8bInstruct",
	CodeLlama7BInstruct:       "CodeLlama7BInstruct",
	CodeLlama13BInstruct:      "CodeLlama13BInstruct",
	CodeLlama70BInstruct:      "CodeLlama70BInstruct",
	DeepSeekCoder1_3BInstruct: "DeepSeekCoder1_3BInstruct",
	DeepSeekCoder6BInstruct:   "DeepSeekCoder6BInstruct",
	DeepSeekCoder33BInstruct:  "DeepSeekCoder33BInstruct",
}

// ModelTag is a provider-neutral name for a model family/variant. The zero
// value is invalid; use one of the exported constructors below.
type ModelTag struct {
	kind   ModelKind
	custom string
}

// Tag constructs a known ModelTag from a ModelKind constant.
func Tag(k ModelKind) ModelTag { return ModelTag{kind: k} }

// CustomTag constructs a ModelTag carrying an arbitrary model-id string not
// covered by the closed enumeration, analogous to LLMType::Custom.
func CustomTag(name string) ModelTag { return ModelTag{kind: ModelUnknown, custom: name} }

// IsCustom reports whether this tag is an escape-hatch custom name.
func (t ModelTag) IsCustom() bool { return t.kind == ModelUnknown && t.custom != "" }

// Kind returns the underlying ModelKind, or ModelUnknown for custom tags.
func (t ModelTag) Kind() ModelKind { return t.kind }

// Custom returns the custom model name, or "" if this is not a custom tag.
func (t ModelTag) Custom() string { return t.custom }

// String renders the tag for logging.
func (t ModelTag) String() string {
	if t.IsCustom() {
		return "Custom(" + t.custom + ")"
	}
	if name, ok := modelKindNames[t.kind]; ok {
		return name
	}
	return "Unknown"
}

// IsOpenAI reports whether the tag names an OpenAI-family model.
func (t ModelTag) IsOpenAI() bool {
	switch t.kind {
	case Gpt35Turbo16k, Gpt4, Gpt4_32k, Gpt4Turbo128k, Gpt4O, Gpt4OMini,
		O1, O1Preview, O1Mini, O3MiniHigh:
		return true
	default:
		return false
	}
}

// IsAnthropic reports whether the tag names a Claude-family model.
func (t ModelTag) IsAnthropic() bool {
	switch t.kind {
	case ClaudeOpus, ClaudeSonnet, ClaudeHaiku:
		return true
	default:
		return false
	}
}

// IsReasoning reports whether the tag names an OpenAI reasoning model with a
// restricted parameter set (no temperature, forced reasoning_effort).
func (t ModelTag) IsReasoning() bool {
	switch t.kind {
	case O1, O1Preview, O1Mini, O3MiniHigh:
		return true
	default:
		return false
	}
}

// SupportsStreaming reports whether the family exposes a streaming endpoint.
// O1 disables streaming and is served via a single synthesized delta; all
// other reasoning and non-reasoning tags stream normally.
func (t ModelTag) SupportsStreaming() bool {
	return t.kind != O1
}

// SupportsTemperature reports whether a temperature parameter may be sent.
// Reasoning models reject it entirely.
func (t ModelTag) SupportsTemperature() bool {
	return !t.IsReasoning()
}

// IsFillInMiddle reports whether this tag belongs to a family normally
// served through the provider's prompt-style (non-chat) completion endpoint:
// the Code Llama and DeepSeek Coder families.
func (t ModelTag) IsFillInMiddle() bool {
	switch t.kind {
	case CodeLlama7BInstruct, CodeLlama13BInstruct, CodeLlama70BInstruct,
		DeepSeekCoder1_3BInstruct, DeepSeekCoder6BInstruct, DeepSeekCoder33BInstruct:
		return true
	default:
		return false
	}
}
