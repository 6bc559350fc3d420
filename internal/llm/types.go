package llm

// Role names the speaker of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in the conversation sent to the model: the system
// instruction, prior question/answer turns, or the current question with
// its retrieved context.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest parameterizes a single completion. JSONMode asks the
// backend for a JSON-only response and is used for structured outputs such
// as follow-up question suggestions.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the model's reply plus usage accounting.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
