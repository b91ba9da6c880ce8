// Package limacharlie translates sigma expression trees into LimaCharlie
// detection & response rules.
package limacharlie

// Op is a D&R rule detection operator
type Op string

const (
	OpIs         Op = "is"
	OpContains   Op = "contains"
	OpStartsWith Op = "starts with"
	OpEndsWith   Op = "ends with"
	OpMatches    Op = "matches"
	OpExists     Op = "exists"
	OpAnd        Op = "and"
	OpOr         Op = "or"
	OpIsWindows  Op = "is windows"
	OpIsLinux    Op = "is linux"
)

// Node is a single detection node
// Leaf nodes carry a path and either a value or a regular expression
// Combinators carry rules
type Node struct {
	Op    Op
	Not   bool
	Path  string
	Value interface{}
	Re    string
	// CaseSensitive is nil when the key is not emitted
	CaseSensitive *bool
	Rules         []*Node
}

// Clone returns a deep copy, so shared nodes such as preconditions never leak mutation
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.CaseSensitive != nil {
		cs := *n.CaseSensitive
		c.CaseSensitive = &cs
	}
	if n.Rules != nil {
		c.Rules = make([]*Node, len(n.Rules))
		for i, r := range n.Rules {
			c.Rules[i] = r.Clone()
		}
	}
	return &c
}

func newMatch(op Op, path string, value interface{}) *Node {
	insensitive := false
	return &Node{
		Op:            op,
		Path:          path,
		Value:         value,
		CaseSensitive: &insensitive,
	}
}

func newCombinator(op Op, rules []*Node) *Node {
	return &Node{Op: op, Rules: rules}
}

// Params are top level detect parameters merged next to the detection node
type Params map[string]interface{}

func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		if s, ok := v.([]string); ok {
			v = append([]string(nil), s...)
		}
		out[k] = v
	}
	return out
}
