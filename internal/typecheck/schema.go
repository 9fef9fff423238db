package typecheck

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
)

// CheckArgumentSchemas validates every node's Arguments against the JSON
// Schema document named by its ArgsSchemaResource, when one is declared.
// Resources are expected to already be materialized by LoadResources; a
// node naming a resource that failed to load, or whose schema the
// arguments don't satisfy, gets an Error diagnostic.
func CheckArgumentSchemas(g *graph.Graph, bag *diagnostics.Bag) {
	for _, nodeID := range g.NodeIDs() {
		node := g.Nodes[nodeID]
		if node.ArgsSchemaResource == "" {
			continue
		}

		resourceID, known := g.NameToResource[node.ArgsSchemaResource]
		if !known {
			bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "declared here"},
				"node %q: args-schema references unknown resource %q", node.Name, node.ArgsSchemaResource)
			continue
		}
		resource := g.Resources[resourceID]
		if len(resource.Data) == 0 {
			bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "declared here"},
				"node %q: args-schema resource %q has no data", node.Name, node.ArgsSchemaResource)
			continue
		}

		schema, err := compileSchema(resource.Data)
		if err != nil {
			bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "declared here"},
				"node %q: compiling args-schema %q: %v", node.Name, node.ArgsSchemaResource, err)
			continue
		}

		args := argumentsToJSON(node.Arguments)
		if err := schema.Validate(args); err != nil {
			bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "declared here"},
				"node %q: arguments do not satisfy %q: %v", node.Name, node.ArgsSchemaResource, err)
		}
	}
}

func compileSchema(raw []byte) (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("args-schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile("args-schema.json")
}

// argumentsToJSON converts a node's string-valued Arguments into a
// map[string]any suitable for schema validation, coercing each value
// through JSON so numeric/boolean schema constraints still work against
// Runefile arguments that are always written as plain YAML scalars.
func argumentsToJSON(args *graph.Arguments) map[string]any {
	out := map[string]any{}
	for _, name := range args.Keys() {
		raw, _ := args.Get(name)
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[name] = v
	}
	return out
}
