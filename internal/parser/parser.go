// Package parser turns Runefile source bytes into a Document AST. It is a
// pure function of its input: it never touches the filesystem, and every
// problem short of malformed YAML itself is reported as a diagnostic rather
// than a Go error so the lowerer can still walk whatever did parse.
package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rune-sh/rune/internal/diagnostics"
)

// StageKind discriminates the four pipeline stage shapes by which field was
// present in the source, exactly as spec'd: `capability`, `proc-block`,
// `model`, `out`.
type StageKind int

const (
	StageCapability StageKind = iota
	StageProcBlock
	StageModel
	StageSink
)

func (k StageKind) String() string {
	switch k {
	case StageCapability:
		return "capability"
	case StageProcBlock:
		return "proc-block"
	case StageModel:
		return "model"
	case StageSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Span locates a node in the original YAML document for diagnostics.
type Span struct {
	Line   int
	Column int
}

// Stage is one entry in the pipeline map.
type Stage struct {
	Name string
	Kind StageKind

	// Capability holds the source kind (RAND/SOUND/ACCEL/IMAGE/RAW/FLOAT_IMAGE)
	// when Kind == StageCapability.
	Capability string
	// ProcBlock holds the package reference URI when Kind == StageProcBlock.
	ProcBlock string
	// Model holds the model file reference when Kind == StageModel.
	Model string
	// Sink holds the sink kind (SERIAL/TENSOR) when Kind == StageSink.
	Sink string

	Args    []Arg
	Inputs  []string // raw "name" or "name.index" references
	Outputs []string // raw Shape text, one per output slot

	// InputTypes optionally declares the shape a downstream stage expects
	// on each positional input, parallel to Inputs. The type-checker treats
	// these as assertions against the producer's actual shape, never as the
	// edge's canonical shape (spec.md §9's shape-inference open question).
	InputTypes []string

	// ArgsSchema optionally names a resource holding a JSON Schema document
	// that Args must validate against, for proc-block/model stages whose
	// author wants their argument contract enforced at compile time.
	ArgsSchema string

	Span Span
}

// Arg is one name/value pair from a stage's `args` map, kept in source
// declaration order (Go maps do not preserve it).
type Arg struct {
	Name  string
	Value string
}

// ResourceDeclaration is one entry in the resources map. At most one of Path
// or Inline is populated in a well-formed document; both populated is a
// diagnostic, not a parse failure.
type ResourceDeclaration struct {
	Name string

	Path       string
	HasPath    bool
	Inline     string
	HasInline  bool
	ElementType string

	Span Span
}

// Document is the parsed, unresolved Runefile AST.
type Document struct {
	Image     string
	Version   int
	Pipeline  map[string]Stage
	Resources map[string]ResourceDeclaration
}

// Parse decodes Runefile source text into a Document. Malformed YAML is
// fatal and returned as err; every other problem (ambiguous stage kind,
// resource with both path and inline, unresolvable shape text left for the
// lowerer) is reported through the returned Bag instead.
func Parse(src []byte) (*Document, *diagnostics.Bag, error) {
	bag := diagnostics.NewBag()

	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, bag, fmt.Errorf("parser: malformed YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return &Document{Pipeline: map[string]Stage{}, Resources: map[string]ResourceDeclaration{}}, bag, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, bag, fmt.Errorf("parser: malformed YAML: root is not a mapping")
	}

	result := &Document{
		Pipeline:  map[string]Stage{},
		Resources: map[string]ResourceDeclaration{},
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		val := doc.Content[i+1]
		switch key.Value {
		case "image":
			result.Image = val.Value
		case "version":
			var v int
			if err := val.Decode(&v); err != nil {
				bag.Errorf(nil, "parser: version is not an integer: %v", err)
			} else {
				result.Version = v
			}
		case "pipeline":
			parsePipeline(val, result.Pipeline, bag)
		case "resources":
			parseResources(val, result.Resources, bag)
		}
	}

	return result, bag, nil
}

func parsePipeline(node *yaml.Node, out map[string]Stage, bag *diagnostics.Bag) {
	if node.Kind != yaml.MappingNode {
		bag.Errorf(nil, "parser: pipeline is not a mapping")
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		nameNode := node.Content[i]
		stageNode := node.Content[i+1]
		name := nameNode.Value
		if _, dup := out[name]; dup {
			bag.Errorf(nil, "parser: duplicate pipeline entry %q at line %d", name, nameNode.Line)
			continue
		}
		stage, ok := parseStage(name, stageNode, bag)
		if !ok {
			continue
		}
		out[name] = stage
	}
}

func parseStage(name string, node *yaml.Node, bag *diagnostics.Bag) (Stage, bool) {
	stage := Stage{
		Name: name,
		Span: Span{Line: node.Line, Column: node.Column},
	}

	var capability, procBlock, model, sink string
	var haveCapability, haveProcBlock, haveModel, haveSink bool

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		val := node.Content[i+1]
		switch key.Value {
		case "capability":
			capability, haveCapability = val.Value, true
		case "proc-block":
			procBlock, haveProcBlock = val.Value, true
		case "model":
			model, haveModel = val.Value, true
		case "out":
			sink, haveSink = val.Value, true
		case "args":
			stage.Args = decodeArgs(val, bag)
		case "inputs":
			stage.Inputs = decodeStringSeq(val)
		case "outputs":
			stage.Outputs = decodeStringSeq(val)
		case "input-types":
			stage.InputTypes = decodeStringSeq(val)
		case "args-schema":
			stage.ArgsSchema = val.Value
		}
	}

	switch {
	case haveCapability:
		stage.Kind = StageCapability
		stage.Capability = capability
	case haveProcBlock:
		stage.Kind = StageProcBlock
		stage.ProcBlock = procBlock
	case haveModel:
		stage.Kind = StageModel
		stage.Model = model
	case haveSink:
		stage.Kind = StageSink
		stage.Sink = sink
	default:
		bag.Errorf(nil, "parser: stage %q has no discriminating field (capability/proc-block/model/out)", name)
		return Stage{}, false
	}

	return stage, true
}

func parseResources(node *yaml.Node, out map[string]ResourceDeclaration, bag *diagnostics.Bag) {
	if node.Kind != yaml.MappingNode {
		bag.Errorf(nil, "parser: resources is not a mapping")
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		nameNode := node.Content[i]
		resNode := node.Content[i+1]
		name := nameNode.Value
		if _, dup := out[name]; dup {
			bag.Errorf(nil, "parser: duplicate resource entry %q at line %d", name, nameNode.Line)
			continue
		}
		decl := ResourceDeclaration{Name: name, Span: Span{Line: resNode.Line, Column: resNode.Column}}

		for j := 0; j+1 < len(resNode.Content); j += 2 {
			key := resNode.Content[j]
			val := resNode.Content[j+1]
			switch key.Value {
			case "path":
				decl.Path, decl.HasPath = val.Value, true
			case "inline":
				decl.Inline, decl.HasInline = val.Value, true
			case "type":
				decl.ElementType = val.Value
			}
		}

		if decl.HasPath && decl.HasInline {
			bag.Warnf(nil, "parser: resource %q declares both path and inline; resource skipped", name)
			continue
		}

		out[name] = decl
	}
}

func decodeArgs(node *yaml.Node, bag *diagnostics.Bag) []Arg {
	if node.Kind != yaml.MappingNode {
		bag.Warnf(nil, "parser: args is not a mapping")
		return nil
	}
	out := make([]Arg, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		val := node.Content[i+1]
		out = append(out, Arg{Name: key.Value, Value: val.Value})
	}
	return out
}

func decodeStringSeq(node *yaml.Node) []string {
	if node.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		out = append(out, item.Value)
	}
	return out
}
