package chat

import (
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// assembler reassembles fragmented tool-call arguments. The backend splits
// one call across many deltas: the first fragment carries the id and the
// function name, later fragments carry only argument text. The protocol
// contract guarantees unfinished calls never interleave, so a single
// active accumulator is enough; a fresh id discards whatever came before.
type assembler struct {
	active *accumulator
}

type accumulator struct {
	id   string
	name string
	args strings.Builder
}

// push feeds one delta fragment in and returns the completed call, if the
// accumulated argument string just became a whole JSON object.
func (a *assembler) push(delta openai.ToolCall) *ToolCall {
	if delta.ID != "" {
		a.active = &accumulator{id: delta.ID, name: delta.Function.Name}
	}
	if a.active == nil {
		return nil
	}
	a.active.args.WriteString(delta.Function.Arguments)

	return a.tryComplete()
}

// tryComplete promotes the active accumulator once its argument string
// parses as a JSON object. The leading/trailing brace check is a cheap
// pre-filter, not a balanced-brace scan: an argument value containing a
// literal '}' before the object actually closes can trip it early. That
// matches the upstream fragmentation contract, which always closes the
// object last; do not harden it without revisiting that contract.
func (a *assembler) tryComplete() *ToolCall {
	args := a.active.args.String()
	if args == "" || !strings.HasPrefix(args, "{") || !strings.HasSuffix(args, "}") {
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(args), &probe); err != nil {
		return nil
	}

	call := &ToolCall{
		ID:        a.active.id,
		Name:      a.active.name,
		Arguments: args,
	}
	a.active = nil
	return call
}
