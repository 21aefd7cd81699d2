package tool

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/harunnryd/kakehashi/internal/chat"
)

// Tool represents an executable capability advertised to the backend.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// Registry holds all available tools.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(t Tool) {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		panic("tool: empty tool name")
	}
	r.tools[name] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[strings.TrimSpace(name)]
	return t, ok
}

// Definitions returns the wire definitions of the tools accepted by keep,
// in deterministic order.
func (r *Registry) Definitions(keep func(name string) bool) []chat.ToolDef {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		if keep == nil || keep(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	defs := make([]chat.ToolDef, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, chat.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}
