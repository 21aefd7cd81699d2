package chat

// Roles used in the backend request payload.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of the conversation history. History ordering is
// append-only; the system message, when present, is prepended at request
// build time and never stored.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func ToolMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, Name: toolName, Content: content}
}

// ToolCall is a completed tool invocation request from the backend. ID is
// assigned by the backend and stable once assigned; Arguments is a JSON
// object serialized as a string.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef advertises one callable tool to the backend.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}
