package chat

// Event is the decoded form of one streaming turn. Exactly one Started
// opens the turn and exactly one Completed closes it; Content and
// ToolCallIntent events arrive in stream order between them.
type Event interface {
	chatEvent()
}

type Started struct{}

// Content carries one text fragment, emitted as soon as it is decoded.
type Content struct {
	Text string
}

// ToolCallIntent carries a fully reassembled tool call.
type ToolCallIntent struct {
	Call ToolCall
}

// Completed closes the turn. Err is nil on a normal end of stream.
type Completed struct {
	Err error
}

func (Started) chatEvent()        {}
func (Content) chatEvent()        {}
func (ToolCallIntent) chatEvent() {}
func (Completed) chatEvent()      {}

func (c Completed) Success() bool { return c.Err == nil }
