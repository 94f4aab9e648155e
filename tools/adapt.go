package tools

import (
	"context"
	"encoding/json"

	"github.com/voocel/agentcore"
)

// MapFunc is a tool body operating on a decoded parameter map rather than
// raw JSON. It lets simple, hand-written tools avoid repeating
// marshal/unmarshal boilerplate.
type MapFunc func(ctx context.Context, params map[string]any) (any, error)

// mapTool adapts a MapFunc and a static schema into an agentcore.Tool.
type mapTool struct {
	name        string
	description string
	schema      map[string]any
	fn          MapFunc
}

// NewMapTool builds an agentcore.Tool whose Execute unmarshals its JSON
// arguments into a map before invoking fn, and marshals fn's return value
// back into the tool result.
func NewMapTool(name, description string, schema map[string]any, fn MapFunc) agentcore.Tool {
	return &mapTool{name: name, description: description, schema: schema, fn: fn}
}

func (t *mapTool) Name() string           { return t.name }
func (t *mapTool) Description() string    { return t.description }
func (t *mapTool) Schema() map[string]any { return t.schema }

func (t *mapTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	params := map[string]any{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, err
		}
	}
	result, err := t.fn(ctx, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}
