package llm

// ChatRole is the provider-neutral role of a ChatMessage.
type ChatRole int

const (
	RoleSystem ChatRole = iota
	RoleUser
	RoleAssistant
	RoleFunction
)

func (r ChatRole) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleFunction:
		return "function"
	default:
		return "unknown"
	}
}

// ImagePart is an inline image attached to a ChatMessage.
type ImagePart struct {
	// MediaType is the image MIME type, e.g. "image/png".
	MediaType string
	// Data is the base64-encoded (or raw, provider-dependent) image payload.
	Data string
}

// ToolUse is an assistant-issued tool/function invocation.
type ToolUse struct {
	Name      string
	ID        string
	InputJSON string
}

// ToolReturn is the result of executing a ToolUse, carried on a Function-role
// message.
type ToolReturn struct {
	ToolUseID string
	ToolName  string
	Content   string
}

// ChatMessage is the provider-neutral message shape consumed by the Prompt
// Formatter Broker and Provider Clients. It generalizes the teacher's
// Message type with image parts, tool use/return parts, and a cache marker.
type ChatMessage struct {
	Role        ChatRole
	Content     string
	Images      []ImagePart
	ToolUses    []ToolUse
	ToolReturns []ToolReturn
	// CacheMarker instructs providers that support prompt caching (notably
	// Anthropic) that the prefix up to and including this message is
	// cache-eligible.
	CacheMarker bool
}

// CompletionRequest carries everything needed to drive a single completion,
// either as a chat message sequence or as a literal prompt string for
// fill-in-middle style completions. Exactly one of Messages or Prompt should
// be populated; Provider Clients reject a request that sets neither.
type CompletionRequest struct {
	Model            ModelTag
	Messages         []ChatMessage
	Prompt           string
	Temperature      float64
	FrequencyPenalty *float64
	StopWords        []string
	MaxTokens        *int
}

// IsPromptStyle reports whether this request should be routed through a
// provider's prompt/completions (non-chat) endpoint.
func (r CompletionRequest) IsPromptStyle() bool {
	return r.Prompt != "" && len(r.Messages) == 0
}

// DeltaRecord is one streamed increment: the newest chunk plus the
// cumulative text observed so far for this call. Invariant: for any two
// consecutive records of one call, the later's CumulativeSoFar starts with
// the earlier's.
type DeltaRecord struct {
	CumulativeSoFar string
	Delta           *string
	Model           ModelTag
}

// FinalResponse is returned when a stream_completion call terminates
// normally. Answer always equals the last observed CumulativeSoFar.
type FinalResponse struct {
	Answer string
	Model  ModelTag
}

// Sink is the caller-supplied channel receiving DeltaRecords for one call.
// Implementations must treat a send failure (e.g. a closed channel panicking,
// or a context done while sending to a bounded channel) as ErrSinkClosed.
type Sink chan<- DeltaRecord
