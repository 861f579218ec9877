package llmstream

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Request contains the parameters for one generation request.
type Request struct {
	// Model is the model identifier, in the provider's own naming.
	Model string

	// Messages is the conversation history.
	Messages []Message

	// Params holds optional sampling parameters. Provider adapters extract
	// what their API supports and ignore the rest.
	Params *Params

	// Tools declares the tools the model may call. Translation only; this
	// library never executes or validates calls.
	Tools []Tool
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string

	// ToolCalls replays earlier assistant tool invocations.
	ToolCalls []ToolCall

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string
}

// Params are the common sampling parameters shared across dialects.
// Nil pointer means "provider default".
type Params struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Stop        []string
}

// Tool declares a callable tool in provider-agnostic form.
type Tool struct {
	Name        string
	Description string

	// Parameters is the JSON schema for the tool arguments, passed through
	// to the provider verbatim.
	Parameters map[string]any
}
