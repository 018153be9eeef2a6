// Package tools holds the registry and executor for tools invoked from the
// stream. Execution failures are converted into error-bearing results here;
// nothing in this package ever aborts a run.
package tools

import (
	"context"

	"github.com/invopop/jsonschema"
)

// Handler executes a tool against its string-valued attributes.
type Handler func(ctx context.Context, input map[string]string) (any, error)

// Definition describes a tool available to the model.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
	Handler     Handler            `json:"-"`
}

// ReflectParameters derives the parameter schema from a Go struct. Definitions
// are expanded inline and the root is forced to an object so the schema can be
// handed to providers directly.
func ReflectParameters(v any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := reflector.Reflect(v)
	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}
	return schema
}

// Builtin tool names the scanner always treats as tags, whether or not a
// handler is registered for them.
const (
	ToolReadFiles   = "read_files"
	ToolWriteFile   = "write_file"
	ToolStrReplace  = "str_replace"
	ToolRunCommand  = "run_terminal_command"
	ToolCodeSearch  = "code_search"
	ToolSpawnAgents = "spawn_agents"
	ToolEndTurn     = "end_turn"
	ToolSetOutput   = "set_output"
	ToolSetMessages = "set_messages"
	ToolAddMessage  = "add_message"
)

// BuiltinNames returns the static builtin tool name set.
func BuiltinNames() []string {
	return []string{
		ToolReadFiles,
		ToolWriteFile,
		ToolStrReplace,
		ToolRunCommand,
		ToolCodeSearch,
		ToolSpawnAgents,
		ToolEndTurn,
		ToolSetOutput,
		ToolSetMessages,
		ToolAddMessage,
	}
}

// IsBuiltin reports whether name is part of the static builtin set.
func IsBuiltin(name string) bool {
	switch name {
	case ToolReadFiles, ToolWriteFile, ToolStrReplace, ToolRunCommand,
		ToolCodeSearch, ToolSpawnAgents, ToolEndTurn, ToolSetOutput,
		ToolSetMessages, ToolAddMessage:
		return true
	}
	return false
}
