package limacharlie

import (
	"github.com/markuskont/go-sigma-limacharlie"
)

// ActionReport is the only response emitted for translated rules
const ActionReport = "report"

// Input is everything the assembler needs from a parsed sigma rule
// Optional metadata fields are nil when missing from rule
type Input struct {
	Product  string
	Category string
	Service  string

	Root sigma.Expr

	Title       string
	Tags        []string
	Description *string
	References  []string
	Level       *string
	Author      *string
}

// FromTree collects assembler input from a parsed rule tree
func FromTree(t *sigma.Tree) Input {
	in := Input{Root: t.Root}
	if t.Rule == nil {
		return in
	}
	r := t.Rule
	in.Product = r.Product
	in.Category = r.Category
	in.Service = r.Service
	in.Title = r.Title
	in.Description = r.Description
	in.References = r.References
	in.Level = r.Level
	in.Author = r.Author
	if r.Tags != nil {
		in.Tags = []string(r.Tags)
	}
	return in
}

// Document is a complete detection & response rule
type Document struct {
	Detect  Detect
	Respond []Action
}

// Detect is the detection component, params are emitted next to the node keys
type Detect struct {
	Node   *Node
	Params Params
}

// Action is a single response action
type Action struct {
	Action   string
	Name     string
	Metadata *Metadata
}

// Metadata carries descriptive rule fields into report actions
type Metadata struct {
	Tags        []string
	Description *string
	References  []string
	Level       *string
	Author      *string
}

func (m Metadata) empty() bool {
	return m.Tags == nil && m.Description == nil && m.References == nil && m.Level == nil && m.Author == nil
}

// Translator assembles D&R documents from sigma expression trees
// It is safe for concurrent use as long as the registry is not modified
type Translator struct {
	registry Registry
}

// NewTranslator instantiates a translator, nil registry falls back to built in mappings
func NewTranslator(r Registry) *Translator {
	if r == nil {
		r = DefaultRegistry()
	}
	return &Translator{registry: r}
}

// Registry exposes the log source mappings used by translator
func (t Translator) Registry() Registry { return t.registry }

// Context resolves the mapping context for a log source
// Exact match is tried first, then the same product and category without service
func (t Translator) Context(product, category, service string) (MappingContext, error) {
	ctx, err := t.registry.Lookup(product, category, service)
	if err == nil || service == "" {
		return ctx, err
	}
	if fallback, fallbackErr := t.registry.Lookup(product, category, ""); fallbackErr == nil {
		return fallback, nil
	}
	return ctx, err
}

// Translate builds a full D&R document for a single rule
func (t Translator) Translate(in Input) (*Document, error) {
	if in.Title == "" {
		return nil, ErrMissingTitle{}
	}
	ctx, err := t.Context(in.Product, in.Category, in.Service)
	if err != nil {
		return nil, err
	}
	node, err := TranslateDetection(ctx, in.Root)
	if err != nil {
		return nil, err
	}
	return &Document{
		Detect: Detect{
			Node:   node,
			Params: ctx.TopLevelParams.clone(),
		},
		Respond: []Action{newReport(in)},
	}, nil
}

// TranslateTree is a convenience wrapper for parsed sigma rules
func (t Translator) TranslateTree(tree *sigma.Tree) (*Document, error) {
	return t.Translate(FromTree(tree))
}

// TranslateDetection converts an expression tree into a single detection node
// Mapping context precondition is combined with result, but never mutated
func TranslateDetection(ctx MappingContext, root sigma.Expr) (*Node, error) {
	if root == nil {
		return nil, ErrMalformedSelection{Key: ctx.Key, Msg: "missing root expression"}
	}
	r, err := translateExpr(&ctx, root)
	if err != nil {
		return nil, err
	}
	if r.kind != resultNode {
		return nil, ErrMalformedSelection{
			Kind: root.Kind(),
			Key:  ctx.Key,
			Msg:  "rule does not translate into a detection node",
		}
	}
	if ctx.Precondition == nil {
		return r.node, nil
	}
	return newCombinator(OpAnd, []*Node{ctx.Precondition.Clone(), r.node}), nil
}

func newReport(in Input) Action {
	meta := Metadata{
		Tags:        in.Tags,
		Description: in.Description,
		References:  in.References,
		Level:       in.Level,
		Author:      in.Author,
	}
	a := Action{Action: ActionReport, Name: in.Title}
	if !meta.empty() {
		a.Metadata = &meta
	}
	return a
}
