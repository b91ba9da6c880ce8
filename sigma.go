package sigma

import "fmt"

// NodeKind identifies the type of a node in the expression tree
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindAnd
	KindOr
	KindNot
	KindSubexpression
	KindList
	KindMapItem
	KindValue
)

func (k NodeKind) String() string {
	switch k {
	case KindAnd:
		return "AND"
	case KindOr:
		return "OR"
	case KindNot:
		return "NOT"
	case KindSubexpression:
		return "SUBEXPRESSION"
	case KindList:
		return "LIST"
	case KindMapItem:
		return "MAPITEM"
	case KindValue:
		return "VALUE"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Expr is a node of the vendor neutral expression tree built from sigma detection
// Backends walk the tree with a type switch on concrete node types
type Expr interface {
	// Kind implements Expr
	Kind() NodeKind
}

// TypeModifier is a typed value attached to a map item
// Backends that do not recognize the modifier must refuse the value
type TypeModifier interface {
	// Modifier returns the sigma modifier name, for example "re"
	Modifier() string
}

// Regex is a value that was declared with the re modifier
type Regex string

// Modifier implements TypeModifier
func (r Regex) Modifier() string { return "re" }

func (r Regex) String() string { return string(r) }
